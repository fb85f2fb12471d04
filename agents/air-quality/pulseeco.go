package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"air-quality-stack/internal/models"
	"air-quality-stack/shared/config"

	"golang.org/x/time/rate"
)

const (
	// pulse.eco wants an explicit offset; url.Values turns "+" into %2B
	pulseEcoTimeLayout = "2006-01-02T15:04:05-07:00"

	// Longest range the dataRaw endpoint serves in one request
	maxPulseEcoSpan = 7 * 24 * time.Hour
)

// PulseEcoSource reads raw sensor data from a pulse.eco city instance
type PulseEcoSource struct {
	baseURL     string
	username    string
	password    string
	sensorID    string
	measurement string
	location    *time.Location
	httpClient  *http.Client
	limiter     *rate.Limiter // per HTTP request
}

type pulseEcoReading struct {
	SensorID string `json:"sensorId"`
	Stamp    string `json:"stamp"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

func NewPulseEcoSource(cfg *config.PulseEcoConfig, measurement string, loc *time.Location) *PulseEcoSource {
	if loc == nil {
		loc = time.Local
	}
	return &PulseEcoSource{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		username:    cfg.Username,
		password:    cfg.Password,
		sensorID:    cfg.SensorID,
		measurement: measurement,
		location:    loc,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

func (p *PulseEcoSource) Name() string {
	return "pulse.eco"
}

// FetchReadings splits the range into week-long requests and merges them
func (p *PulseEcoSource) FetchReadings(ctx context.Context, from, to time.Time) ([]models.Reading, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("invalid range: from %s is not before to %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	var readings, previous []models.Reading
	for start := from; start.Before(to); start = start.Add(maxPulseEcoSpan) {
		end := start.Add(maxPulseEcoSpan)
		if end.After(to) {
			end = to
		}

		chunk, err := p.fetchChunk(ctx, start, end)
		if err != nil {
			return nil, err
		}
		if start.After(from) && hasStamp(previous, start) {
			chunk = dropStamp(chunk, start)
		}
		readings = append(readings, chunk...)
		previous = chunk
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return readings, nil
}

func (p *PulseEcoSource) fetchChunk(ctx context.Context, from, to time.Time) ([]models.Reading, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	params := url.Values{}
	params.Set("type", p.measurement)
	params.Set("from", from.In(p.location).Format(pulseEcoTimeLayout))
	params.Set("to", to.In(p.location).Format(pulseEcoTimeLayout))
	params.Set("sensorId", p.sensorID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/dataRaw?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(p.username, p.password)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sensor data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pulse.eco returned status %d for sensor %s", resp.StatusCode, p.sensorID)
	}

	var raw []pulseEcoReading
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode sensor data: %w", err)
	}

	readings := make([]models.Reading, 0, len(raw))
	for _, r := range raw {
		reading, err := r.toReading()
		if err != nil {
			log.Printf("Warning: skipping pulse.eco reading %+v: %v", r, err)
			continue
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

func (r pulseEcoReading) toReading() (models.Reading, error) {
	ts, err := time.Parse(time.RFC3339, r.Stamp)
	if err != nil {
		return models.Reading{}, fmt.Errorf("bad stamp: %w", err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return models.Reading{}, fmt.Errorf("bad value %q", r.Value)
	}
	return models.Reading{
		SensorID:  r.SensorID,
		Type:      r.Type,
		Value:     math.Max(0, value),
		Timestamp: ts,
	}, nil
}

// Both ends of a request are inclusive, so readings stamped exactly on a
// chunk boundary come back twice. The earlier chunk keeps them.

func hasStamp(readings []models.Reading, ts time.Time) bool {
	for _, r := range readings {
		if r.Timestamp.Equal(ts) {
			return true
		}
	}
	return false
}

func dropStamp(readings []models.Reading, ts time.Time) []models.Reading {
	out := readings[:0]
	for _, r := range readings {
		if !r.Timestamp.Equal(ts) {
			out = append(out, r)
		}
	}
	return out
}
