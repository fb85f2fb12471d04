package forecast

import "air-quality-stack/internal/models"

const (
	// ShortTermWindow is 7 days of hourly samples
	ShortTermWindow = 7 * HoursPerDay
	// LongTermWindow is 30 days of hourly samples
	LongTermWindow = 30 * HoursPerDay
)

// TrendLine is an ordinary-least-squares line value = Intercept + Slope*index
type TrendLine struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	Points    int     `json:"points"`
}

// At evaluates the line at a sample offset. Offsets past Points-1 extrapolate.
func (t TrendLine) At(offset int) float64 {
	return t.Intercept + t.Slope*float64(offset)
}

// FitTrend fits a line over the last window readings (all of them if fewer
// exist), indexing them 0..k-1 in the order given. At least two points are
// required.
func FitTrend(history []models.Reading, window int) (TrendLine, error) {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	n := len(history)
	if n < 2 {
		return TrendLine{}, ErrInsufficientData
	}

	values := make([]float64, n)
	for i, r := range history {
		values[i] = r.Value
	}
	intercept, slope := leastSquares(values)

	return TrendLine{Intercept: intercept, Slope: slope, Points: n}, nil
}

// leastSquares fits y = a + b*x for x = 0..len(y)-1. It centres x on its mean
// before summing so large windows keep precision.
func leastSquares(y []float64) (a, b float64) {
	n := float64(len(y))
	meanX := (n - 1) / 2

	var meanY float64
	for _, v := range y {
		meanY += v
	}
	meanY /= n

	var sxy, sxx float64
	for i, v := range y {
		dx := float64(i) - meanX
		sxy += dx * (v - meanY)
		sxx += dx * dx
	}

	b = sxy / sxx
	a = meanY - b*meanX
	return a, b
}
