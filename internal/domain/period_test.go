package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriodKey(t *testing.T) {
	tests := []struct {
		input    string
		expected PeriodKey
		wantErr  bool
	}{
		{"2023", Annual(2023), false},
		{"FY2024", Annual(2024), false},
		{"2023Q2", Quarter(2023, 2), false},
		{"2023-q4", Quarter(2023, 4), false},
		{" 2021Q1 ", Quarter(2021, 1), false},
		{"2023Q5", PeriodKey{}, true},
		{"2023Q0", PeriodKey{}, true},
		{"abc", PeriodKey{}, true},
		{"", PeriodKey{}, true},
		{"1850", PeriodKey{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			key, err := ParsePeriodKey(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestPeriodKey_StringRoundTrip(t *testing.T) {
	for _, key := range []PeriodKey{Annual(2023), Quarter(2023, 2)} {
		parsed, err := ParsePeriodKey(key.String())
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	}
	assert.Equal(t, "2023", Annual(2023).String())
	assert.Equal(t, "2023Q2", Quarter(2023, 2).String())
}

func TestPeriodKey_IndexAndOrdering(t *testing.T) {
	assert.Equal(t, 2023, Annual(2023).Index())
	assert.Equal(t, Quarter(2023, 4).Index()+1, Quarter(2024, 1).Index())

	assert.True(t, Annual(2022).Before(Annual(2023)))
	assert.False(t, Annual(2023).Before(Annual(2023)))
	assert.True(t, Quarter(2023, 4).Before(Quarter(2024, 1)))
	assert.False(t, Annual(2022).Before(Quarter(2023, 1)), "mixed types are not ordered")

	assert.Equal(t, Annual(2024), Annual(2023).Next())
	assert.Equal(t, Quarter(2024, 1), Quarter(2023, 4).Next())
	assert.Equal(t, Quarter(2023, 3), Quarter(2023, 2).Next())
}

func TestPeriodKey_Type(t *testing.T) {
	assert.Equal(t, PeriodAnnual, Annual(2023).Type())
	assert.Equal(t, PeriodQuarterly, Quarter(2023, 1).Type())
	assert.InDelta(t, 365.0, PeriodAnnual.Days(), 1e-9)
	assert.InDelta(t, 91.25, PeriodQuarterly.Days(), 1e-9)
}

func TestPeriodKey_JSONMapKey(t *testing.T) {
	in := map[PeriodKey]float64{Annual(2023): 0.4, Quarter(2024, 1): 0.5}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2023":0.4,"2024Q1":0.5}`, string(data))

	var out map[PeriodKey]float64
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestFilingForm_PeriodType(t *testing.T) {
	assert.Equal(t, PeriodAnnual, Form10K.PeriodType())
	assert.Equal(t, PeriodQuarterly, Form10Q.PeriodType())
	assert.Equal(t, PeriodType(""), FilingForm("8-K").PeriodType())
}
