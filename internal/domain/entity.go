package domain

import (
	"fmt"
	"strings"
)

// Sector selects the ruleset an entity is screened against.
type Sector string

const (
	SectorSemiconductor Sector = "semiconductor"
	SectorREIT          Sector = "reit"
	SectorPennyStock    Sector = "penny_stock"
)

// Sectors lists the supported sectors.
func Sectors() []Sector {
	return []Sector{SectorSemiconductor, SectorREIT, SectorPennyStock}
}

// ParseSector normalises a sector name.
func ParseSector(s string) (Sector, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, sector := range Sectors() {
		if string(sector) == normalized {
			return sector, nil
		}
	}
	return "", &UnknownSectorError{Sector: s}
}

// Entity is a company with its reported periods.
type Entity struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Sector  Sector            `json:"sector"`
	Periods []FinancialPeriod `json:"periods"`
}

// Validate checks identity fields. Period ordering is checked during aggregation.
func (e Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity id is required")
	}
	if _, err := ParseSector(string(e.Sector)); err != nil {
		return fmt.Errorf("entity %s: %w", e.ID, err)
	}
	return nil
}
