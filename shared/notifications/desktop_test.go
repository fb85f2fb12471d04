package notifications

import (
	"errors"
	"strings"
	"testing"
	"time"

	"air-quality-stack/internal/models"
)

type sent struct{ title, message string }

func captureDesktop(t *testing.T, err error) *[]sent {
	t.Helper()
	var calls []sent
	orig := sendDesktop
	sendDesktop = func(title, message string) error {
		calls = append(calls, sent{title, message})
		return err
	}
	t.Cleanup(func() { sendDesktop = orig })
	return &calls
}

func unhealthyReport() *models.AirQualityReport {
	return &models.AirQualityReport{
		LocationName: "Skopje",
		Unit:         "µg/m³",
		Current: models.CurrentStatus{
			Reading:  models.Reading{Value: 38},
			Category: models.CategoryModerate,
		},
		Forecast: []models.ForecastPoint{
			{DisplayDate: "15 Oct", Value: 41, Category: models.CategoryModerate},
			{DisplayDate: "16 Oct", Value: 63.2, Category: models.CategoryUnhealthy},
		},
	}
}

func TestDesktopNotify(t *testing.T) {
	calls := captureDesktop(t, nil)
	d := NewDesktop(time.Hour)

	shown, err := d.Notify(unhealthyReport())
	if err != nil || !shown {
		t.Fatalf("Notify() = %v, %v", shown, err)
	}
	if len(*calls) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(*calls))
	}

	got := (*calls)[0]
	if !strings.Contains(got.title, "Skopje") || !strings.Contains(got.title, "😷") {
		t.Errorf("Unexpected title %q", got.title)
	}
	if !strings.Contains(got.message, "16 Oct: 63.2") {
		t.Errorf("Expected worst day in message, got %q", got.message)
	}
}

func TestDesktopNotifySuppressesRepeats(t *testing.T) {
	calls := captureDesktop(t, nil)
	d := NewDesktop(time.Hour)
	clock := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	d.Notify(unhealthyReport())
	clock = clock.Add(15 * time.Minute)
	if shown, _ := d.Notify(unhealthyReport()); shown {
		t.Error("Expected repeat within the window to be suppressed")
	}

	clock = clock.Add(time.Hour)
	if shown, _ := d.Notify(unhealthyReport()); !shown {
		t.Error("Expected notification after the window")
	}
	if len(*calls) != 2 {
		t.Errorf("Expected 2 notifications, got %d", len(*calls))
	}
}

func TestDesktopNotifyError(t *testing.T) {
	captureDesktop(t, errors.New("no notification daemon"))
	d := NewDesktop(time.Hour)

	if _, err := d.Notify(unhealthyReport()); err == nil {
		t.Fatal("Expected error")
	}

	// A failed attempt must not start the repeat window
	captureDesktop(t, nil)
	if shown, err := d.Notify(unhealthyReport()); err != nil || !shown {
		t.Errorf("Expected retry to be shown, got %v, %v", shown, err)
	}
}
