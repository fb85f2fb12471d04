package models

import "testing"

func TestCategoryAtLeast(t *testing.T) {
	tests := []struct {
		c, other Category
		want     bool
	}{
		{CategoryUnhealthy, CategoryModerate, true},
		{CategoryModerate, CategoryModerate, true},
		{CategoryGood, CategoryModerate, false},
		{CategoryGood, CategoryGood, true},
		{Category("bogus"), CategoryGood, false},
		{CategoryUnhealthy, Category("bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.c.AtLeast(tt.other); got != tt.want {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tt.c, tt.other, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"good", "moderate", "unhealthy"} {
		c, err := ParseCategory(s)
		if err != nil {
			t.Errorf("ParseCategory(%q) error = %v", s, err)
		}
		if string(c) != s {
			t.Errorf("ParseCategory(%q) = %q", s, c)
		}
	}

	if _, err := ParseCategory("hazardous"); err == nil {
		t.Error("Expected error for unknown category")
	}
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name       string
		thresholds Thresholds
		wantErr    bool
	}{
		{"pm10 defaults", Thresholds{Good: 20, Moderate: 50}, false},
		{"zero good", Thresholds{Good: 0, Moderate: 1}, false},
		{"equal", Thresholds{Good: 20, Moderate: 20}, true},
		{"inverted", Thresholds{Good: 50, Moderate: 20}, true},
		{"negative", Thresholds{Good: -1, Moderate: 20}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.thresholds.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
