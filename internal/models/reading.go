package models

import (
	"fmt"
	"time"
)

// Reading is a single timestamped sensor measurement
type Reading struct {
	SensorID  string    `json:"sensor_id,omitempty"`
	Type      string    `json:"type,omitempty"` // e.g. "pm10"
	Value     float64   `json:"value"`          // µg/m³, never negative
	Timestamp time.Time `json:"timestamp"`
}

// Category is the qualitative health classification of a concentration
type Category string

const (
	CategoryGood      Category = "good"
	CategoryModerate  Category = "moderate"
	CategoryUnhealthy Category = "unhealthy"
)

// Severity orders categories: good < moderate < unhealthy
func (c Category) Severity() int {
	switch c {
	case CategoryGood:
		return 0
	case CategoryModerate:
		return 1
	case CategoryUnhealthy:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether c is as severe as other or worse
func (c Category) AtLeast(other Category) bool {
	return c.Severity() >= other.Severity() && other.Severity() >= 0
}

// ParseCategory converts a config string into a Category
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryGood, CategoryModerate, CategoryUnhealthy:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q (want good, moderate or unhealthy)", s)
}

// Thresholds are the upper bounds of the good and moderate bands
type Thresholds struct {
	Good     float64 `yaml:"good" json:"good"`
	Moderate float64 `yaml:"moderate" json:"moderate"`
}

// Validate checks that the bands are ordered
func (t Thresholds) Validate() error {
	if t.Good < 0 || t.Moderate < 0 {
		return fmt.Errorf("thresholds must not be negative (good=%.1f, moderate=%.1f)", t.Good, t.Moderate)
	}
	if t.Good >= t.Moderate {
		return fmt.Errorf("good threshold (%.1f) must be below moderate threshold (%.1f)", t.Good, t.Moderate)
	}
	return nil
}
