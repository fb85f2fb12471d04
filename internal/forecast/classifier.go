package forecast

import "air-quality-stack/internal/models"

// Classifier maps a concentration onto the three health bands
type Classifier struct {
	thresholds models.Thresholds
}

func NewClassifier(thresholds models.Thresholds) (*Classifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: thresholds}, nil
}

// Classify: value <= good is good, value <= moderate is moderate, anything above is unhealthy
func (c *Classifier) Classify(value float64) models.Category {
	switch {
	case value <= c.thresholds.Good:
		return models.CategoryGood
	case value <= c.thresholds.Moderate:
		return models.CategoryModerate
	default:
		return models.CategoryUnhealthy
	}
}

func (c *Classifier) Thresholds() models.Thresholds {
	return c.thresholds
}
