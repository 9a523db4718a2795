package domain

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// FinancialPeriod is one entity's reported line items for one period.
// It is immutable: build it with NewFinancialPeriod.
type FinancialPeriod struct {
	key     PeriodKey
	endDate time.Time
	form    FilingForm
	filedAt time.Time
	items   map[LineItem]float64
}

// PeriodMeta carries the optional filing metadata of a period.
type PeriodMeta struct {
	EndDate time.Time
	Form    FilingForm
	FiledAt time.Time
}

// NewFinancialPeriod validates and copies the given line items.
func NewFinancialPeriod(key PeriodKey, meta PeriodMeta, items map[string]float64) (FinancialPeriod, error) {
	if err := key.Validate(); err != nil {
		return FinancialPeriod{}, err
	}
	if meta.Form != "" {
		expected := meta.Form.PeriodType()
		if expected == "" {
			return FinancialPeriod{}, fmt.Errorf("period %s: unsupported filing form %q", key, meta.Form)
		}
		if expected != key.Type() {
			return FinancialPeriod{}, fmt.Errorf("period %s: form %s reports %s periods", key, meta.Form, expected)
		}
	}

	copied := make(map[LineItem]float64, len(items))
	for name, value := range items {
		item := LineItem(name)
		if !item.IsKnown() {
			return FinancialPeriod{}, &UnknownLineItemError{Item: name}
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return FinancialPeriod{}, &InvalidValueError{Item: item, Value: value, Period: key}
		}
		copied[item] = value
	}

	return FinancialPeriod{
		key:     key,
		endDate: meta.EndDate,
		form:    meta.Form,
		filedAt: meta.FiledAt,
		items:   copied,
	}, nil
}

// MustFinancialPeriod is NewFinancialPeriod for literals known to be valid.
func MustFinancialPeriod(key PeriodKey, items map[string]float64) FinancialPeriod {
	p, err := NewFinancialPeriod(key, PeriodMeta{}, items)
	if err != nil {
		panic(err)
	}
	return p
}

func (p FinancialPeriod) Key() PeriodKey     { return p.key }
func (p FinancialPeriod) Type() PeriodType   { return p.key.Type() }
func (p FinancialPeriod) EndDate() time.Time { return p.endDate }
func (p FinancialPeriod) Form() FilingForm   { return p.form }
func (p FinancialPeriod) FiledAt() time.Time { return p.filedAt }

// Meta returns the filing metadata.
func (p FinancialPeriod) Meta() PeriodMeta {
	return PeriodMeta{EndDate: p.endDate, Form: p.form, FiledAt: p.filedAt}
}

// Value returns a line item and whether the period reports it.
func (p FinancialPeriod) Value(item LineItem) (float64, bool) {
	v, ok := p.items[item]
	return v, ok
}

// Items returns a copy of the line items.
func (p FinancialPeriod) Items() map[string]float64 {
	out := make(map[string]float64, len(p.items))
	for k, v := range p.items {
		out[string(k)] = v
	}
	return out
}

type periodJSON struct {
	Period  PeriodKey          `json:"period"`
	EndDate *time.Time         `json:"end_date,omitempty"`
	Form    FilingForm         `json:"form,omitempty"`
	FiledAt *time.Time         `json:"filed_at,omitempty"`
	Items   map[string]float64 `json:"items"`
}

func (p FinancialPeriod) MarshalJSON() ([]byte, error) {
	out := periodJSON{Period: p.key, Form: p.form, Items: p.Items()}
	if !p.endDate.IsZero() {
		out.EndDate = &p.endDate
	}
	if !p.filedAt.IsZero() {
		out.FiledAt = &p.filedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes and validates a period through NewFinancialPeriod.
func (p *FinancialPeriod) UnmarshalJSON(data []byte) error {
	var in periodJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var meta PeriodMeta
	meta.Form = in.Form
	if in.EndDate != nil {
		meta.EndDate = *in.EndDate
	}
	if in.FiledAt != nil {
		meta.FiledAt = *in.FiledAt
	}
	parsed, err := NewFinancialPeriod(in.Period, meta, in.Items)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// CheckPeriodOrder requires strictly increasing keys of a single period type
// and returns that type.
func CheckPeriodOrder(keys []PeriodKey) (PeriodType, error) {
	if len(keys) == 0 {
		return "", nil
	}
	periodType := keys[0].Type()
	for i, key := range keys {
		if key.Type() != periodType {
			return "", &MixedPeriodTypeError{Expected: periodType, Got: key.Type(), Period: key}
		}
		if i > 0 && key.Index() <= keys[i-1].Index() {
			return "", &OutOfOrderPeriodError{Previous: keys[i-1], Current: key}
		}
	}
	return periodType, nil
}

// SortPeriods returns a chronologically sorted copy of periods. Duplicate
// keys yield OutOfOrderPeriodError; annual and quarterly periods together
// yield MixedPeriodTypeError.
func SortPeriods(periods []FinancialPeriod) ([]FinancialPeriod, error) {
	sorted := slices.Clone(periods)
	slices.SortStableFunc(sorted, func(a, b FinancialPeriod) int {
		if a.Type() != b.Type() {
			return strings.Compare(string(a.Type()), string(b.Type()))
		}
		return cmp.Compare(a.Key().Index(), b.Key().Index())
	})

	keys := make([]PeriodKey, len(sorted))
	for i, p := range sorted {
		keys[i] = p.Key()
	}
	if _, err := CheckPeriodOrder(keys); err != nil {
		return nil, err
	}
	return sorted, nil
}
