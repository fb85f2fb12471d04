package models

import "time"

// ForecastPoint is one day's predicted value
type ForecastPoint struct {
	Date        time.Time `json:"date"`
	DisplayDate string    `json:"display_date"` // e.g. "15 Oct"
	Value       float64   `json:"value"`        // rounded to 0.1, never negative
	Category    Category  `json:"category"`
}

// CurrentStatus is the classification of the most recent reading
type CurrentStatus struct {
	Reading  Reading  `json:"reading"`
	Category Category `json:"category"`
}

// AirQualityReport is everything a consumer needs to render one refresh
type AirQualityReport struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	LocationName string          `json:"location_name"`
	Measurement  string          `json:"measurement"`
	Unit         string          `json:"unit"`
	Thresholds   Thresholds      `json:"thresholds"`
	ReadingsUsed int             `json:"readings_used"`
	Current      CurrentStatus   `json:"current"`
	Forecast     []ForecastPoint `json:"forecast"`
	Advisory     string          `json:"advisory,omitempty"`
}

// Worst returns the most severe category across the current status and the forecast
func (r *AirQualityReport) Worst() Category {
	worst := r.Current.Category
	for _, p := range r.Forecast {
		if p.Category.Severity() > worst.Severity() {
			worst = p.Category
		}
	}
	return worst
}
