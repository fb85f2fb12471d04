package airquality

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"air-quality-stack/internal/models"
	"air-quality-stack/shared/config"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// connectInflux creates the client and verifies connectivity
func connectInflux(ctx context.Context, cfg config.InfluxDBConfig) (influxdb2.Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	return client, nil
}

// InfluxSource reads an archived reading series from InfluxDB
type InfluxSource struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	config   config.InfluxDBConfig
	sensorID string
	readType string
}

func NewInfluxSource(ctx context.Context, cfg config.InfluxDBConfig, sensorID, measurement string) (*InfluxSource, error) {
	client, err := connectInflux(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newInfluxSource(client, cfg, sensorID, measurement), nil
}

func newInfluxSource(client influxdb2.Client, cfg config.InfluxDBConfig, sensorID, measurement string) *InfluxSource {
	return &InfluxSource{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Org),
		config:   cfg,
		sensorID: sensorID,
		readType: measurement,
	}
}

func (s *InfluxSource) Name() string {
	return "InfluxDB"
}

func (s *InfluxSource) FetchReadings(ctx context.Context, from, to time.Time) ([]models.Reading, error) {
	result, err := s.queryAPI.Query(ctx, buildFluxQuery(s.config, s.sensorID, s.readType, from, to))
	if err != nil {
		return nil, fmt.Errorf("failed to query InfluxDB: %w", err)
	}
	defer result.Close()

	var readings []models.Reading
	for result.Next() {
		record := result.Record()

		value, ok := toFloat(record.Value())
		if !ok {
			log.Printf("Warning: skipping non-numeric InfluxDB value %v at %s", record.Value(), record.Time())
			continue
		}
		readings = append(readings, models.Reading{
			SensorID:  s.sensorID,
			Type:      s.readType,
			Value:     math.Max(0, value),
			Timestamp: record.Time(),
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to read InfluxDB result: %w", result.Err())
	}

	return readings, nil
}

func (s *InfluxSource) Close() error {
	s.client.Close()
	return nil
}

// buildFluxQuery selects one field of one sensor for [from, to), oldest first
func buildFluxQuery(cfg config.InfluxDBConfig, sensorID, readType string, from, to time.Time) string {
	query := fmt.Sprintf(`from(bucket: %s)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %s and r._field == %s)`,
		strconv.Quote(cfg.Bucket),
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
		strconv.Quote(cfg.Measurement),
		strconv.Quote(cfg.Field),
	)
	if sensorID != "" {
		query += fmt.Sprintf("\n  |> filter(fn: (r) => r[%s] == %s)", strconv.Quote(cfg.SensorTag), strconv.Quote(sensorID))
	}
	if readType != "" {
		query += fmt.Sprintf("\n  |> filter(fn: (r) => not exists r.type or r.type == %s)", strconv.Quote(readType))
	}
	return query + "\n  |> sort(columns: [\"_time\"])"
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// InfluxMirror archives raw readings, so InfluxSource can later replay them
type InfluxMirror struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	config   config.InfluxDBConfig
}

func NewInfluxMirror(ctx context.Context, cfg config.InfluxDBConfig) (*InfluxMirror, error) {
	client, err := connectInflux(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newInfluxMirror(client, cfg), nil
}

func newInfluxMirror(client influxdb2.Client, cfg config.InfluxDBConfig) *InfluxMirror {
	return &InfluxMirror{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		config:   cfg,
	}
}

// WriteReadings stores every reading as one point; rewriting the same
// timestamp overwrites, so overlapping windows are harmless
func (m *InfluxMirror) WriteReadings(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(readings))
	for _, r := range readings {
		tags := map[string]string{}
		if r.SensorID != "" {
			tags[m.config.SensorTag] = r.SensorID
		}
		if r.Type != "" {
			tags["type"] = r.Type
		}
		points = append(points, write.NewPoint(
			m.config.Measurement,
			tags,
			map[string]interface{}{
				m.config.Field: r.Value,
			},
			r.Timestamp,
		))
	}

	if err := m.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write %d readings to InfluxDB: %w", len(points), err)
	}
	return nil
}

func (m *InfluxMirror) Close() error {
	m.client.Close()
	return nil
}
