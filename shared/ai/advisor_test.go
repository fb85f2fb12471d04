package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"air-quality-stack/internal/models"
)

func testReport() *models.AirQualityReport {
	return &models.AirQualityReport{
		LocationName: "Skopje",
		Measurement:  "pm10",
		Unit:         "µg/m³",
		Thresholds:   models.Thresholds{Good: 20, Moderate: 50},
		Current: models.CurrentStatus{
			Reading:  models.Reading{Value: 48.2, Timestamp: time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)},
			Category: models.CategoryModerate,
		},
		Forecast: []models.ForecastPoint{
			{DisplayDate: "15 Oct", Value: 52.1, Category: models.CategoryUnhealthy},
			{DisplayDate: "16 Oct", Value: 31.0, Category: models.CategoryModerate},
		},
	}
}

func TestBuildAdvisoryPrompt(t *testing.T) {
	prompt := buildAdvisoryPrompt(testReport())

	for _, want := range []string{
		"residents of Skopje",
		"good up to 20, moderate up to 50",
		"- 15 Oct: 52.1 µg/m³ (unhealthy)",
		"WORST CATEGORY: unhealthy",
		"Consider reducing outdoor activities",
		`"risk": number`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestParseAdvisoryResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantRisk int
		wantErr  bool
	}{
		{
			name:     "plain JSON",
			response: `{"headline": "Poor air tomorrow.", "advice": "Stay in.", "risk": 7}`,
			wantRisk: 7,
		},
		{
			name:     "fenced with prose",
			response: "Here you go:\n```json\n{\"headline\": \"Fine week.\", \"advice\": \"Go out.\", \"risk\": 2}\n```",
			wantRisk: 2,
		},
		{
			name:     "risk clamped high",
			response: `{"headline": "Bad.", "advice": "Masks.", "risk": 14}`,
			wantRisk: 10,
		},
		{
			name:     "risk clamped low",
			response: `{"headline": "Clean.", "advice": "Enjoy.", "risk": 0}`,
			wantRisk: 1,
		},
		{
			name:     "unescaped quotes",
			response: "{\n\"headline\": \"The \"worst\" day is Thursday\",\n\"advice\": \"Close windows\",\n\"risk\": 6\n}",
			wantRisk: 6,
		},
		{
			name:     "risk as text",
			response: "{\n\"headline\": \"Smog midweek.\",\n\"advice\": \"Avoid runs.\",\n\"risk\": \"7/10\"\n}",
			wantRisk: 7,
		},
		{
			name:     "fractional risk and trailing comma",
			response: "{\n\"headline\": \"Hazy.\",\n\"advice\": \"Keep \"sensitive\" groups inside.\",\n\"risk\": 6.5,\n}",
			wantRisk: 7,
		},
		{name: "no JSON", response: "I cannot help with that", wantErr: true},
		{name: "empty fields", response: `{"risk": 3}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv, err := parseAdvisoryResponse(tt.response)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAdvisoryResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if adv.Risk != tt.wantRisk {
				t.Errorf("Expected risk %d, got %d", tt.wantRisk, adv.Risk)
			}
		})
	}
}

func TestAdvise(t *testing.T) {
	var gotPrompt string
	a := &Advisor{generate: func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return `{"headline": "Unhealthy air on 15 Oct.", "advice": "Limit outdoor exercise.", "risk": 8}`, nil
	}}

	adv, err := a.Advise(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Advise() error = %v", err)
	}
	if !strings.Contains(gotPrompt, "Skopje") {
		t.Error("Expected report to reach the prompt")
	}
	if got := adv.String(); got != "Unhealthy air on 15 Oct. Limit outdoor exercise. (risk 8/10)" {
		t.Errorf("String() = %q", got)
	}
}

func TestAdviseErrors(t *testing.T) {
	failing := &Advisor{generate: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	if _, err := failing.Advise(context.Background(), testReport()); err == nil {
		t.Error("Expected generation error")
	}

	empty := &Advisor{generate: func(ctx context.Context, prompt string) (string, error) {
		return "", nil
	}}
	if _, err := empty.Advise(context.Background(), testReport()); err == nil {
		t.Error("Expected error for empty response")
	}

	if _, err := empty.Advise(context.Background(), &models.AirQualityReport{}); err == nil {
		t.Error("Expected error for report without forecast")
	}
}

func TestSanitizeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "inner quotes escaped once",
			input: "{\n\"advice\": \"Say \"no\" to \\\"jogging\\\"\",\n\"risk\": 4\n}",
			want:  "{\n\"advice\": \"Say \\\"no\\\" to \\\"jogging\\\"\",\n\"risk\": 4\n}",
		},
		{
			name:  "quoted risk",
			input: "{\n\"risk\": \"8\"\n}",
			want:  "{\n\"risk\": 8\n}",
		},
		{
			name:  "risk without number",
			input: "{\n\"risk\": \"high\"\n}",
			want:  "{\n\"risk\": 0\n}",
		},
		{
			name:  "other lines untouched",
			input: "{\n\"note\": \"a \"b\"\"\n}",
			want:  "{\n\"note\": \"a \"b\"\"\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeJSON(tt.input); got != tt.want {
				t.Errorf("sanitizeJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("µµµµ", 2); got != "µµ..." {
		t.Errorf("truncateString() = %q", got)
	}
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q", got)
	}
}
