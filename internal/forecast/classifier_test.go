package forecast

import (
	"math"
	"testing"

	"air-quality-stack/internal/models"
)

var pm10 = models.Thresholds{Good: 20, Moderate: 50}

func TestClassify(t *testing.T) {
	classifier, err := NewClassifier(pm10)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	tests := []struct {
		name  string
		value float64
		want  models.Category
	}{
		{"zero", 0, models.CategoryGood},
		{"at good threshold", 20, models.CategoryGood},
		{"just above good", math.Nextafter(20, 21), models.CategoryModerate},
		{"middle of moderate", 35, models.CategoryModerate},
		{"at moderate threshold", 50, models.CategoryModerate},
		{"just above moderate", math.Nextafter(50, 51), models.CategoryUnhealthy},
		{"very high", 400, models.CategoryUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.Classify(tt.value); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestClassifyMonotonic(t *testing.T) {
	classifier, err := NewClassifier(models.Thresholds{Good: 12, Moderate: 35.4})
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	prev := -1
	seen := make(map[models.Category]bool)
	for v := 0.0; v <= 100; v += 0.1 {
		c := classifier.Classify(v)
		if c.Severity() < prev {
			t.Fatalf("Classify(%v) = %s went down in severity", v, c)
		}
		prev = c.Severity()
		seen[c] = true
	}
	if len(seen) != 3 {
		t.Errorf("Expected three categories across the sweep, saw %v", seen)
	}
}

func TestNewClassifierRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name       string
		thresholds models.Thresholds
	}{
		{"equal", models.Thresholds{Good: 20, Moderate: 20}},
		{"inverted", models.Thresholds{Good: 50, Moderate: 20}},
		{"negative", models.Thresholds{Good: -1, Moderate: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClassifier(tt.thresholds); err == nil {
				t.Error("Expected error for invalid thresholds")
			}
		})
	}
}
