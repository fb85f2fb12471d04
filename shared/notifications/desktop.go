// Package notifications sends desktop alerts for bad air quality
package notifications

import (
	"fmt"
	"sync"
	"time"

	"air-quality-stack/internal/models"

	"github.com/gen2brain/beeep"
)

// sendDesktop is swapped out in tests
var sendDesktop = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Desktop posts one notification per worst category, at most once per
// repeat window.
type Desktop struct {
	repeat        time.Duration
	lastAlertTime map[models.Category]time.Time
	mu            sync.Mutex
	now           func() time.Time
}

func NewDesktop(repeat time.Duration) *Desktop {
	return &Desktop{
		repeat:        repeat,
		lastAlertTime: make(map[models.Category]time.Time),
		now:           time.Now,
	}
}

// Notify alerts for report.Worst(). It reports whether a notification
// was actually shown.
func (d *Desktop) Notify(report *models.AirQualityReport) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	worst := report.Worst()
	if last, ok := d.lastAlertTime[worst]; ok && d.now().Sub(last) < d.repeat {
		return false, nil
	}

	title, message := formatNotification(report, worst)
	if err := sendDesktop(title, message); err != nil {
		return false, fmt.Errorf("failed to send desktop notification: %w", err)
	}

	d.lastAlertTime[worst] = d.now()
	return true, nil
}

func formatNotification(report *models.AirQualityReport, worst models.Category) (string, string) {
	health := worst.Health()
	title := fmt.Sprintf("%s %s: %s", health.Icon, report.LocationName, health.Subtitle)

	message := fmt.Sprintf("Now %.1f %s (%s).", report.Current.Reading.Value, report.Unit, report.Current.Category)
	for _, p := range report.Forecast {
		if p.Category == worst {
			message += fmt.Sprintf(" %s: %.1f %s expected.", p.DisplayDate, p.Value, report.Unit)
			break
		}
	}
	return title, message + " " + health.Recommendation
}
