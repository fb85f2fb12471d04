// Package forecast turns a history of hourly readings into a 7-day forecast.
//
// Each day blends two linear trend extrapolations (7-day and 30-day windows)
// with an hour-of-day seasonal profile. The engine holds no state between
// calls: every Predict recomputes the profile and both trend lines.
package forecast

import (
	"fmt"
	"math"
	"time"

	"air-quality-stack/internal/models"
)

const (
	// ForecastDays is the number of points Predict returns
	ForecastDays = 7

	// DisplayDateLayout renders "15 Oct"
	DisplayDateLayout = "2 Jan"
)

// FormatDisplayDate renders date the British short way, "15 Oct". September
// is abbreviated "Sept".
func FormatDisplayDate(date time.Time) string {
	if date.Month() == time.September {
		return fmt.Sprintf("%d Sept", date.Day())
	}
	return date.Format(DisplayDateLayout)
}

// Weights are the per-day blend factors. They are not normalised: the sum
// is 1.0 on days 1 and 7 and peaks near 1.37 on day 4.
type Weights struct {
	Recent   float64
	LongTerm float64
	Seasonal float64
}

// BlendWeights returns the weights for day d (1-based)
func BlendWeights(d int) Weights {
	dayWeight := float64(d-1) / ForecastDays
	return Weights{
		Recent:   math.Max(0.2, 1-dayWeight),
		LongTerm: math.Min(0.4, dayWeight),
		Seasonal: math.Min(0.4, dayWeight),
	}
}

// Engine produces forecasts for one pollutant scale and time zone
type Engine struct {
	classifier  *Classifier
	location    *time.Location
	shortWindow int
	longWindow  int
}

// NewEngine builds an engine. loc decides both the hour-of-day buckets and
// the calendar days of the forecast; nil means time.Local.
func NewEngine(thresholds models.Thresholds, loc *time.Location) (*Engine, error) {
	classifier, err := NewClassifier(thresholds)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		classifier:  classifier,
		location:    loc,
		shortWindow: ShortTermWindow,
		longWindow:  LongTermWindow,
	}, nil
}

// Predict is a convenience wrapper that uses now's location
func Predict(history []models.Reading, thresholds models.Thresholds, now time.Time) ([]models.ForecastPoint, error) {
	engine, err := NewEngine(thresholds, now.Location())
	if err != nil {
		return nil, stageError("thresholds", err)
	}
	return engine.Predict(history, now)
}

func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

func (e *Engine) Location() *time.Location {
	return e.location
}

// Predict returns exactly ForecastDays points ordered by day, or a
// *PredictionError. history must be in ascending timestamp order.
//
// Every day reuses the current clock hour for the seasonal lookup: a point
// means "this time of day, d days out".
func (e *Engine) Predict(history []models.Reading, now time.Time) ([]models.ForecastPoint, error) {
	if len(history) == 0 {
		return nil, stageError("history", ErrEmptyHistory)
	}

	profile, err := EstimateHourlyProfile(history, e.location)
	if err != nil {
		return nil, stageError("profile", err)
	}

	// A failed fit aborts the whole forecast rather than degrading single days
	shortTerm, err := FitTrend(history, e.shortWindow)
	if err != nil {
		return nil, stageError("short-term trend", err)
	}
	longTerm, err := FitTrend(history, e.longWindow)
	if err != nil {
		return nil, stageError("long-term trend", err)
	}

	local := now.In(e.location)
	points := make([]models.ForecastPoint, 0, ForecastDays)

	for d := 1; d <= ForecastDays; d++ {
		date := local.AddDate(0, 0, d)
		step := (d - 1) * HoursPerDay

		seasonal := profile[date.Hour()]
		recent := shortTerm.At(e.shortWindow + step)
		long := longTerm.At(e.longWindow + step)

		w := BlendWeights(d)
		value := math.Max(0, roundTenth(recent*w.Recent+long*w.LongTerm+seasonal*w.Seasonal))

		points = append(points, models.ForecastPoint{
			Date:        date,
			DisplayDate: FormatDisplayDate(date),
			Value:       value,
			Category:    e.classifier.Classify(value),
		})
	}

	return points, nil
}

// Current classifies the most recent reading
func (e *Engine) Current(history []models.Reading) (models.CurrentStatus, error) {
	if len(history) == 0 {
		return models.CurrentStatus{}, stageError("current status", ErrEmptyHistory)
	}
	latest := history[len(history)-1]
	return models.CurrentStatus{
		Reading:  latest,
		Category: e.classifier.Classify(latest.Value),
	}, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
