// Package timeseries assembles per-period metric values into ordered series.
package timeseries

import (
	"encoding/json"

	"github.com/aristath/screener/internal/domain"
)

// Point is one metric value for one period.
type Point struct {
	Key   domain.PeriodKey `json:"period"`
	Value float64          `json:"value"`
}

// Series is a chronologically ordered, duplicate-free sequence of points for
// one metric. Periods without a value are simply absent.
type Series struct {
	metric     domain.MetricName
	periodType domain.PeriodType
	points     []Point
}

// NewSeries validates ordering and copies the points.
func NewSeries(metric domain.MetricName, points ...Point) (Series, error) {
	keys := make([]domain.PeriodKey, len(points))
	for i, p := range points {
		keys[i] = p.Key
	}
	periodType, err := domain.CheckPeriodOrder(keys)
	if err != nil {
		return Series{}, err
	}

	copied := make([]Point, len(points))
	copy(copied, points)
	return Series{metric: metric, periodType: periodType, points: copied}, nil
}

func (s Series) Metric() domain.MetricName     { return s.metric }
func (s Series) PeriodType() domain.PeriodType { return s.periodType }
func (s Series) Len() int                      { return len(s.points) }

// Points returns a copy of the points.
func (s Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Values returns the values in period order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Indices returns each point's period index, the x-axis for trend fits.
func (s Series) Indices() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = float64(p.Key.Index())
	}
	return out
}

// Value returns the value at key, if present.
func (s Series) Value(key domain.PeriodKey) (float64, bool) {
	for _, p := range s.points {
		if p.Key == key {
			return p.Value, true
		}
	}
	return 0, false
}

// Gaps lists the periods between the first and last point that have no value.
func (s Series) Gaps() []domain.PeriodKey {
	var gaps []domain.PeriodKey
	for i := 1; i < len(s.points); i++ {
		for key := s.points[i-1].Key.Next(); key.Index() < s.points[i].Key.Index(); key = key.Next() {
			gaps = append(gaps, key)
		}
	}
	return gaps
}

func (s Series) MarshalJSON() ([]byte, error) {
	points := s.points
	if points == nil {
		points = []Point{}
	}
	return json.Marshal(struct {
		Metric     domain.MetricName  `json:"metric"`
		PeriodType domain.PeriodType  `json:"period_type,omitempty"`
		Points     []Point            `json:"points"`
		Gaps       []domain.PeriodKey `json:"gaps,omitempty"`
	}{s.metric, s.periodType, points, s.Gaps()})
}
