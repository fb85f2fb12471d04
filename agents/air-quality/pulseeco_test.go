package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"air-quality-stack/shared/config"
)

var skopje = time.FixedZone("CEST", 2*3600)

func newTestPulseEco(url string) *PulseEcoSource {
	return NewPulseEcoSource(&config.PulseEcoConfig{
		BaseURL:           url + "/",
		Username:          "user",
		Password:          "secret",
		SensorID:          "sensor-1",
		RequestsPerSecond: 1000,
		Burst:             10,
	}, "pm10", skopje)
}

// hourlyHandler serves one reading per hour over [from, to], both inclusive
func hourlyHandler(t *testing.T, requests *int32, value func(ts time.Time) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)

		if r.URL.Path != "/dataRaw" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "user" || pass != "secret" {
			t.Errorf("Expected basic auth, got %q %q %v", user, pass, ok)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected JSON accept header")
		}
		q := r.URL.Query()
		if q.Get("type") != "pm10" || q.Get("sensorId") != "sensor-1" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}

		from, err := time.Parse(pulseEcoTimeLayout, q.Get("from"))
		if err != nil {
			t.Errorf("bad from %q: %v", q.Get("from"), err)
			return
		}
		to, err := time.Parse(pulseEcoTimeLayout, q.Get("to"))
		if err != nil {
			t.Errorf("bad to %q: %v", q.Get("to"), err)
			return
		}
		if to.Sub(from) > maxPulseEcoSpan {
			t.Errorf("Request spans %v, more than a week", to.Sub(from))
		}

		var out []pulseEcoReading
		for ts := from; !ts.After(to); ts = ts.Add(time.Hour) {
			out = append(out, pulseEcoReading{
				SensorID: "sensor-1",
				Stamp:    ts.Format(time.RFC3339),
				Type:     "pm10",
				Value:    value(ts),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func TestPulseEcoFetchChunksLongRanges(t *testing.T) {
	var requests int32
	server := httptest.NewServer(hourlyHandler(t, &requests, func(time.Time) string { return "25.5" }))
	defer server.Close()

	to := time.Date(2026, 10, 14, 10, 0, 0, 0, skopje)
	from := to.AddDate(0, 0, -30)

	readings, err := newTestPulseEco(server.URL).FetchReadings(context.Background(), from, to)
	if err != nil {
		t.Fatalf("FetchReadings() error = %v", err)
	}

	// 30 days = four full weeks plus two days
	if requests != 5 {
		t.Errorf("Expected 5 requests, got %d", requests)
	}
	if want := 30*24 + 1; len(readings) != want {
		t.Errorf("Expected %d readings after merging chunk boundaries, got %d", want, len(readings))
	}
	for i := 1; i < len(readings); i++ {
		if !readings[i].Timestamp.After(readings[i-1].Timestamp) {
			t.Fatalf("Boundary reading repeated at %d", i)
		}
	}
	if readings[0].Value != 25.5 || readings[0].SensorID != "sensor-1" {
		t.Errorf("Unexpected first reading %+v", readings[0])
	}
}

// fixedHandler serves the readings of data that fall within [from, to]
func fixedHandler(t *testing.T, data []pulseEcoReading) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := time.Parse(pulseEcoTimeLayout, q.Get("from"))
		if err != nil {
			t.Errorf("bad from %q: %v", q.Get("from"), err)
			return
		}
		to, err := time.Parse(pulseEcoTimeLayout, q.Get("to"))
		if err != nil {
			t.Errorf("bad to %q: %v", q.Get("to"), err)
			return
		}

		out := []pulseEcoReading{}
		for _, d := range data {
			ts, _ := time.Parse(time.RFC3339, d.Stamp)
			if !ts.Before(from) && !ts.After(to) {
				out = append(out, d)
			}
		}
		json.NewEncoder(w).Encode(out)
	}
}

func TestPulseEcoFetchKeepsDuplicateStamps(t *testing.T) {
	tests := []struct {
		name   string
		from   time.Time
		to     time.Time
		data   []pulseEcoReading
		values []float64
	}{
		{
			name: "single response",
			from: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC),
			data: []pulseEcoReading{
				{Stamp: "2026-10-14T01:00:00Z", Value: "10"},
				{Stamp: "2026-10-14T01:00:00Z", Value: "40"},
				{Stamp: "2026-10-14T02:00:00Z", Value: "20"},
			},
			values: []float64{10, 40, 20},
		},
		{
			name: "on chunk boundary",
			from: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			to:   time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC),
			data: []pulseEcoReading{
				{Stamp: "2026-10-07T23:00:00Z", Value: "5"},
				{Stamp: "2026-10-08T00:00:00Z", Value: "30"},
				{Stamp: "2026-10-08T00:00:00Z", Value: "35"},
				{Stamp: "2026-10-08T01:00:00Z", Value: "15"},
			},
			values: []float64{5, 30, 35, 15},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(fixedHandler(t, tt.data))
			defer server.Close()

			readings, err := newTestPulseEco(server.URL).FetchReadings(context.Background(), tt.from, tt.to)
			if err != nil {
				t.Fatalf("FetchReadings() error = %v", err)
			}
			if len(readings) != len(tt.values) {
				t.Fatalf("Expected %d readings, got %d", len(tt.values), len(readings))
			}
			for i, want := range tt.values {
				if readings[i].Value != want {
					t.Errorf("Expected reading %d to be %.0f, got %.0f", i, want, readings[i].Value)
				}
			}
		})
	}
}

func TestPulseEcoFetchCleansValues(t *testing.T) {
	var requests int32
	server := httptest.NewServer(hourlyHandler(t, &requests, func(ts time.Time) string {
		switch ts.Hour() {
		case 3:
			return "n/a"
		case 4:
			return "-7"
		default:
			return " 12 "
		}
	}))
	defer server.Close()

	from := time.Date(2026, 10, 14, 0, 0, 0, 0, skopje)
	readings, err := newTestPulseEco(server.URL).FetchReadings(context.Background(), from, from.Add(5*time.Hour))
	if err != nil {
		t.Fatalf("FetchReadings() error = %v", err)
	}

	if len(readings) != 5 {
		t.Fatalf("Expected unparseable value skipped (5 readings), got %d", len(readings))
	}
	for _, r := range readings {
		if r.Timestamp.Hour() == 4 && r.Value != 0 {
			t.Errorf("Expected negative value clamped to 0, got %v", r.Value)
		}
		if r.Timestamp.Hour() != 4 && r.Value != 12 {
			t.Errorf("Expected 12, got %v", r.Value)
		}
	}
}

func TestPulseEcoTimeFormatIsEncoded(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	from := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	readings, err := newTestPulseEco(server.URL).FetchReadings(context.Background(), from, from.Add(time.Hour))
	if err != nil {
		t.Fatalf("FetchReadings() error = %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("Expected no readings, got %d", len(readings))
	}

	// Station-local time with an escaped "+" offset
	if !strings.Contains(rawQuery, "from=2026-10-14T10%3A00%3A00%2B02%3A00") {
		t.Errorf("Unexpected query encoding %s", rawQuery)
	}
}

func TestPulseEcoFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "{not json")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
			if _, err := newTestPulseEco(server.URL).FetchReadings(context.Background(), from, from.AddDate(0, 0, 3)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	t.Run("empty range", func(t *testing.T) {
		now := time.Now()
		if _, err := newTestPulseEco("http://unused").FetchReadings(context.Background(), now, now); err == nil {
			t.Error("Expected error for empty range")
		}
	})
}
