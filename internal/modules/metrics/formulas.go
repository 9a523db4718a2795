package metrics

import (
	"math"

	"github.com/aristath/screener/internal/domain"
)

// Metric names with a registered formula.
const (
	GrossMargin              domain.MetricName = "gross_margin"
	OperatingMargin          domain.MetricName = "operating_margin"
	NetMargin                domain.MetricName = "net_margin"
	RnDIntensity             domain.MetricName = "rnd_intensity"
	SGAIntensity             domain.MetricName = "sga_intensity"
	InventoryTurns           domain.MetricName = "inventory_turns"
	DaysInventoryOutstanding domain.MetricName = "days_inventory_outstanding"
	DaysSalesOutstanding     domain.MetricName = "days_sales_outstanding"
	DaysPayableOutstanding   domain.MetricName = "days_payable_outstanding"
	CashConversionCycle      domain.MetricName = "cash_conversion_cycle"
	CapexIntensity           domain.MetricName = "capex_intensity"
	FCFMargin                domain.MetricName = "fcf_margin"
	CurrentRatio             domain.MetricName = "current_ratio"
	QuickRatio               domain.MetricName = "quick_ratio"
	DebtToEquity             domain.MetricName = "debt_to_equity"
	DebtToAssets             domain.MetricName = "debt_to_assets"
	InterestCoverage         domain.MetricName = "interest_coverage"
	ROIC                     domain.MetricName = "roic"
	AssetTurnover            domain.MetricName = "asset_turnover"
	FFO                      domain.MetricName = "ffo"
	FFOPayout                domain.MetricName = "ffo_payout"
	NOIMargin                domain.MetricName = "noi_margin"
	OccupancyRate            domain.MetricName = "occupancy_rate"
	NetInterestMargin        domain.MetricName = "net_interest_margin"
	Revenue                  domain.MetricName = "revenue"
	SharesOutstanding        domain.MetricName = "shares_outstanding"
)

// DefaultTaxRate is used by roic when the period has no usable effective rate.
const DefaultTaxRate = 0.21

func builtinFormulas() []formula {
	return []formula{
		{Name: GrossMargin, Description: "(revenue - cogs) / revenue", Compute: func(e *evaluator) float64 {
			revenue := e.get(domain.Revenue)
			cogs := e.get(domain.COGS)
			return e.div(revenue-cogs, revenue, "revenue")
		}},
		{Name: OperatingMargin, Description: "operating_income / revenue", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.OperatingIncome, domain.Revenue)
		}},
		{Name: NetMargin, Description: "net_income / revenue", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.NetIncome, domain.Revenue)
		}},
		{Name: RnDIntensity, Description: "rnd_expense / revenue", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.RnDExpense, domain.Revenue)
		}},
		{Name: SGAIntensity, Description: "sga_expense / revenue", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.SGAExpense, domain.Revenue)
		}},
		{Name: InventoryTurns, Description: "cogs / average inventory", Compute: func(e *evaluator) float64 {
			cogs := e.get(domain.COGS)
			return e.div(cogs, e.averageInventory(), "average_inventory")
		}},
		{Name: DaysInventoryOutstanding, Description: "average inventory / cogs * days", Compute: daysInventory},
		{Name: DaysSalesOutstanding, Description: "accounts_receivable / revenue * days", Compute: daysSales},
		{Name: DaysPayableOutstanding, Description: "accounts_payable / cogs * days", Compute: daysPayable},
		{Name: CashConversionCycle, Description: "DSO + DIO - DPO", Compute: func(e *evaluator) float64 {
			return daysSales(e) + daysInventory(e) - daysPayable(e)
		}},
		{Name: CapexIntensity, Description: "|capex| / revenue", Compute: func(e *evaluator) float64 {
			capex := math.Abs(e.get(domain.Capex))
			return e.div(capex, e.get(domain.Revenue), "revenue")
		}},
		{Name: FCFMargin, Description: "(operating_cash_flow - |capex|) / revenue", Compute: func(e *evaluator) float64 {
			fcf := e.get(domain.OperatingCashFlow) - math.Abs(e.get(domain.Capex))
			return e.div(fcf, e.get(domain.Revenue), "revenue")
		}},
		{Name: CurrentRatio, Description: "current_assets / current_liabilities", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.CurrentAssets, domain.CurrentLiabilities)
		}},
		{Name: QuickRatio, Description: "(current_assets - inventory) / current_liabilities", Compute: func(e *evaluator) float64 {
			quick := e.get(domain.CurrentAssets) - e.optional(domain.Inventory)
			return e.div(quick, e.get(domain.CurrentLiabilities), string(domain.CurrentLiabilities))
		}},
		{Name: DebtToEquity, Description: "total_debt / total_equity", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.TotalDebt, domain.TotalEquity)
		}},
		{Name: DebtToAssets, Description: "total_debt / total_assets", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.TotalDebt, domain.TotalAssets)
		}},
		{Name: InterestCoverage, Description: "operating_income / interest_expense", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.OperatingIncome, domain.InterestExpense)
		}},
		{Name: ROIC, Description: "operating_income * (1 - tax rate) / (total_debt + total_equity - cash)", Compute: func(e *evaluator) float64 {
			nopat := e.get(domain.OperatingIncome) * (1 - e.taxRate())
			invested := e.get(domain.TotalDebt) + e.get(domain.TotalEquity) - e.optional(domain.Cash)
			return e.div(nopat, invested, "invested_capital")
		}},
		{Name: AssetTurnover, Description: "revenue / total_assets", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.Revenue, domain.TotalAssets)
		}},
		{Name: FFO, Description: "net_income + real estate depreciation - gains on property sales", Compute: fundsFromOperations},
		{Name: FFOPayout, Description: "|dividends_paid| / ffo", Compute: func(e *evaluator) float64 {
			dividends := math.Abs(e.get(domain.DividendsPaid))
			return e.div(dividends, fundsFromOperations(e), string(FFO))
		}},
		{Name: NOIMargin, Description: "net_operating_income / revenue", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.NetOperatingIncome, domain.Revenue)
		}},
		{Name: OccupancyRate, Description: "occupied_area / leasable_area", Compute: func(e *evaluator) float64 {
			return e.ratio(domain.OccupiedArea, domain.LeasableArea)
		}},
		{Name: NetInterestMargin, Description: "(interest_income - interest_expense) / interest_earning_assets", Compute: func(e *evaluator) float64 {
			spread := e.get(domain.InterestIncome) - e.get(domain.InterestExpense)
			return e.div(spread, e.get(domain.InterestEarningAssets), string(domain.InterestEarningAssets))
		}},
		{Name: Revenue, Description: "revenue", Compute: func(e *evaluator) float64 {
			return e.get(domain.Revenue)
		}},
		{Name: SharesOutstanding, Description: "shares_outstanding", Compute: func(e *evaluator) float64 {
			return e.get(domain.SharesOutstanding)
		}},
	}
}

func daysInventory(e *evaluator) float64 {
	inventory := e.averageInventory()
	return e.div(inventory, e.get(domain.COGS), string(domain.COGS)) * e.days()
}

func daysSales(e *evaluator) float64 {
	return e.ratio(domain.AccountsReceivable, domain.Revenue) * e.days()
}

func daysPayable(e *evaluator) float64 {
	return e.ratio(domain.AccountsPayable, domain.COGS) * e.days()
}

func fundsFromOperations(e *evaluator) float64 {
	netIncome := e.get(domain.NetIncome)
	depreciation, ok := e.lookup(domain.RealEstateDepreciation)
	if !ok {
		depreciation = e.get(domain.DepreciationAmortization)
	}
	return netIncome + depreciation - e.optional(domain.GainsOnPropertySales)
}
