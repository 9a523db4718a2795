package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopMeanStdDev(t *testing.T) {
	tests := []struct {
		name         string
		data         []float64
		expectedMean float64
		expectedStd  float64
		tolerance    float64
	}{
		{
			name:         "empty data",
			data:         []float64{},
			expectedMean: 0,
			expectedStd:  0,
		},
		{
			name:         "single value has no dispersion",
			data:         []float64{0.42},
			expectedMean: 0.42,
			expectedStd:  0,
		},
		{
			name:         "population not sample deviation",
			data:         []float64{2, 4, 4, 4, 5, 5, 7, 9},
			expectedMean: 5,
			expectedStd:  2, // sample deviation would be ~2.138
			tolerance:    1e-12,
		},
		{
			name:         "two gross margins",
			data:         []float64{0.40, 0.4166666666666667},
			expectedMean: 0.4083333333333333,
			expectedStd:  0.0083333333333333,
			tolerance:    1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := PopMeanStdDev(tt.data)
			if math.Abs(mean-tt.expectedMean) > tt.tolerance {
				t.Errorf("mean = %v, want %v", mean, tt.expectedMean)
			}
			if math.Abs(std-tt.expectedStd) > tt.tolerance {
				t.Errorf("std = %v, want %v", std, tt.expectedStd)
			}
		})
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 4.5, Mean([]float64{5.2, 4.8, 3.5}), 1e-12)
}

func TestMinMax(t *testing.T) {
	minVal, minIdx, maxVal, maxIdx := MinMax([]float64{5.2, 4.8, 3.5})

	assert.Equal(t, 3.5, minVal)
	assert.Equal(t, 2, minIdx)
	assert.Equal(t, 5.2, maxVal)
	assert.Equal(t, 0, maxIdx)
}

func TestLinearSlope(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		y        []float64
		expected float64
	}{
		{"perfect line", []float64{1, 2, 3}, []float64{2, 4, 6}, 2},
		{"declining", []float64{2021, 2022, 2023}, []float64{5.2, 4.8, 3.5}, -0.85},
		{"constant series", []float64{1, 2, 3}, []float64{7, 7, 7}, 0},
		{"gap in x axis", []float64{0, 1, 3}, []float64{0, 1, 3}, 1},
		{"identical x", []float64{4, 4}, []float64{1, 2}, 0},
		{"single point", []float64{1}, []float64{1}, 0},
		{"mismatched lengths", []float64{1, 2}, []float64{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, LinearSlope(tt.x, tt.y), 1e-9)
		})
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	cv := CoefficientOfVariation(0.5, 0.1)
	require.NotNil(t, cv)
	assert.InDelta(t, 0.2, *cv, 1e-12)

	negative := CoefficientOfVariation(-2, 1)
	require.NotNil(t, negative)
	assert.InDelta(t, 0.5, *negative, 1e-12)

	assert.Nil(t, CoefficientOfVariation(0, 1))
}

func TestTrailingMean(t *testing.T) {
	data := []float64{1, 2, 3, 4}

	got := TrailingMean(data, 2)
	require.NotNil(t, got)
	assert.InDelta(t, 3.5, *got, 1e-12)

	full := TrailingMean(data, 4)
	require.NotNil(t, full)
	assert.InDelta(t, 2.5, *full, 1e-12)

	last := TrailingMean(data, 1)
	require.NotNil(t, last)
	assert.Equal(t, 4.0, *last)

	assert.Nil(t, TrailingMean(data, 5))
	assert.Nil(t, TrailingMean(data, 0))
}
