// Package domain holds the core types of the screener: period identifiers,
// immutable financial periods, entities and the error taxonomy.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// PeriodType tags a reporting interval.
type PeriodType string

const (
	PeriodAnnual    PeriodType = "annual"
	PeriodQuarterly PeriodType = "quarterly"
)

// Days returns the day count used for turnover-style ratios.
func (t PeriodType) Days() float64 {
	if t == PeriodQuarterly {
		return 365.0 / 4
	}
	return 365
}

// PeriodKey identifies a reporting period. Quarter 0 means the fiscal year,
// 1-4 a fiscal quarter.
type PeriodKey struct {
	Year    int
	Quarter int
}

// Annual returns the key for fiscal year y.
func Annual(year int) PeriodKey {
	return PeriodKey{Year: year}
}

// Quarter returns the key for quarter q of fiscal year y.
func Quarter(year, quarter int) PeriodKey {
	return PeriodKey{Year: year, Quarter: quarter}
}

// Type reports whether the key is annual or quarterly.
func (k PeriodKey) Type() PeriodType {
	if k.Quarter == 0 {
		return PeriodAnnual
	}
	return PeriodQuarterly
}

// Index is a monotonic period number in the key's own unit: the year for
// annual keys, year*4+quarter-1 for quarterly keys. Consecutive periods differ
// by exactly one, so a jump marks a gap.
func (k PeriodKey) Index() int {
	if k.Quarter == 0 {
		return k.Year
	}
	return k.Year*4 + k.Quarter - 1
}

// Before reports whether k sorts strictly before other. Keys of different
// types are not comparable and always return false.
func (k PeriodKey) Before(other PeriodKey) bool {
	return k.Type() == other.Type() && k.Index() < other.Index()
}

// Next returns the key immediately following k.
func (k PeriodKey) Next() PeriodKey {
	if k.Quarter == 0 {
		return Annual(k.Year + 1)
	}
	if k.Quarter == 4 {
		return Quarter(k.Year+1, 1)
	}
	return Quarter(k.Year, k.Quarter+1)
}

// Validate checks the year and quarter ranges.
func (k PeriodKey) Validate() error {
	if k.Year < 1900 || k.Year > 2200 {
		return fmt.Errorf("period year %d out of range", k.Year)
	}
	if k.Quarter < 0 || k.Quarter > 4 {
		return fmt.Errorf("period quarter %d out of range", k.Quarter)
	}
	return nil
}

func (k PeriodKey) String() string {
	if k.Quarter == 0 {
		return strconv.Itoa(k.Year)
	}
	return fmt.Sprintf("%dQ%d", k.Year, k.Quarter)
}

// ParsePeriodKey parses "2023", "FY2023", "2023Q2" or "2023-Q2".
func ParsePeriodKey(s string) (PeriodKey, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	raw = strings.TrimPrefix(raw, "FY")

	var key PeriodKey
	yearPart, quarterPart, hasQuarter := strings.Cut(strings.ReplaceAll(raw, "-", ""), "Q")

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return PeriodKey{}, fmt.Errorf("invalid period key %q", s)
	}
	key.Year = year

	if hasQuarter {
		quarter, err := strconv.Atoi(quarterPart)
		if err != nil || quarter < 1 || quarter > 4 {
			return PeriodKey{}, fmt.Errorf("invalid quarter in period key %q", s)
		}
		key.Quarter = quarter
	}

	if err := key.Validate(); err != nil {
		return PeriodKey{}, fmt.Errorf("invalid period key %q: %w", s, err)
	}
	return key, nil
}

// MarshalText renders the key in its canonical string form.
func (k PeriodKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the canonical string form.
func (k *PeriodKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriodKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// FilingForm is the SEC form a period was reported on.
type FilingForm string

const (
	Form10K FilingForm = "10-K"
	Form10Q FilingForm = "10-Q"
)

// PeriodType returns the period type the form reports, or "" for unknown forms.
func (f FilingForm) PeriodType() PeriodType {
	switch f {
	case Form10K:
		return PeriodAnnual
	case Form10Q:
		return PeriodQuarterly
	default:
		return ""
	}
}
