package testing

import (
	"time"

	"github.com/aristath/screener/internal/domain"
)

func mustPeriod(key domain.PeriodKey, meta domain.PeriodMeta, items map[string]float64) domain.FinancialPeriod {
	p, err := domain.NewFinancialPeriod(key, meta, items)
	if err != nil {
		panic(err)
	}
	return p
}

func annualMeta(year int) domain.PeriodMeta {
	return domain.PeriodMeta{
		EndDate: time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		Form:    domain.Form10K,
		FiledAt: time.Date(year+1, 2, 15, 0, 0, 0, 0, time.UTC),
	}
}

// SemiconductorEntity returns three fiscal years of a chipmaker that passes
// every rule of the default semiconductor ruleset.
func SemiconductorEntity(id string) domain.Entity {
	revenue := 10e9
	periods := make([]domain.FinancialPeriod, 0, 3)
	for year := 2021; year <= 2023; year++ {
		periods = append(periods, mustPeriod(domain.Annual(year), annualMeta(year), map[string]float64{
			"revenue":             revenue,
			"cogs":                revenue * 0.55,
			"operating_income":    revenue * 0.22,
			"net_income":          revenue * 0.18,
			"rnd_expense":         revenue * 0.14,
			"sga_expense":         revenue * 0.08,
			"inventory":           1.1e9,
			"inventory_prior":     1.0e9,
			"accounts_receivable": 1.5e9,
			"accounts_payable":    0.8e9,
			"cash":                2e9,
			"current_assets":      6e9,
			"current_liabilities": 3e9,
			"total_assets":        20e9,
			"total_debt":          3e9,
			"total_equity":        12e9,
			"shares_outstanding":  1e9,
		}))
		revenue *= 1.12
	}
	return domain.Entity{ID: id, Name: id + " Semiconductor", Sector: domain.SectorSemiconductor, Periods: periods}
}

// REITEntity returns three fiscal years of a REIT that passes the default
// REIT ruleset.
func REITEntity(id string) domain.Entity {
	periods := make([]domain.FinancialPeriod, 0, 3)
	netIncome := 300e6
	for year := 2021; year <= 2023; year++ {
		periods = append(periods, mustPeriod(domain.Annual(year), annualMeta(year), map[string]float64{
			"revenue":                  1e9,
			"net_income":               netIncome,
			"real_estate_depreciation": 200e6,
			"gains_on_property_sales":  10e6,
			"dividends_paid":           -400e6,
			"net_operating_income":     620e6,
			"operating_income":         450e6,
			"interest_expense":         100e6,
			"total_assets":             8e9,
			"total_debt":               3.2e9,
			"occupied_area":            9.5e6,
			"leasable_area":            10e6,
		}))
		netIncome *= 1.05
	}
	return domain.Entity{ID: id, Name: id + " Realty", Sector: domain.SectorREIT, Periods: periods}
}

// BrokenEntity returns an entity whose periods are out of order.
func BrokenEntity(id string) domain.Entity {
	e := SemiconductorEntity(id)
	e.Periods[0], e.Periods[2] = e.Periods[2], e.Periods[0]
	return e
}
