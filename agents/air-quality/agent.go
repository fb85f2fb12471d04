package airquality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"air-quality-stack/internal/forecast"
	"air-quality-stack/internal/models"
	"air-quality-stack/shared/ai"
	"air-quality-stack/shared/chart"
	"air-quality-stack/shared/config"
	"air-quality-stack/shared/email"
	"air-quality-stack/shared/notifications"
	"air-quality-stack/shared/publish"
	"air-quality-stack/shared/scheduler"
	"air-quality-stack/shared/storage"
)

// AirQualityMetrics represents the metrics collected during one refresh
type AirQualityMetrics struct {
	ReadingsFetched int             `json:"readings_fetched"`
	CurrentCategory models.Category `json:"current_category"`
	WorstCategory   models.Category `json:"worst_category"`
	AlertSent       bool            `json:"alert_sent"`
	Published       bool            `json:"published"`
}

// GetSummary implements the scheduler.Metrics interface
func (m AirQualityMetrics) GetSummary() string {
	summary := fmt.Sprintf("%d readings, now %s, worst %s", m.ReadingsFetched, m.CurrentCategory, m.WorstCategory)
	if m.AlertSent {
		summary += ", alert sent"
	}
	if m.Published {
		summary += ", published"
	}
	return summary
}

type readingWriter interface {
	WriteReadings(ctx context.Context, readings []models.Reading) error
}

type advisor interface {
	Advise(ctx context.Context, report *models.AirQualityReport) (*ai.Advisory, error)
}

type desktopNotifier interface {
	Notify(report *models.AirQualityReport) (bool, error)
}

type reportPublisher interface {
	Publish(report *models.AirQualityReport) error
}

// AirQualityAgent implements the scheduler.Agent interface
type AirQualityAgent struct {
	config    *config.Config
	source    Source
	mirror    readingWriter
	engine    *forecast.Engine
	alerts    *storage.AlertTracker
	sender    email.Sender
	advisor   advisor
	desktop   desktopNotifier
	publisher reportPublisher
	now       func() time.Time

	lastReport *models.AirQualityReport
}

func NewAirQualityAgent(cfg *config.Config) *AirQualityAgent {
	return &AirQualityAgent{
		config: cfg,
		now:    time.Now,
	}
}

func (a *AirQualityAgent) Name() string {
	return "Air Quality Agent"
}

// Initialize builds every collaborator that has not been set yet
func (a *AirQualityAgent) Initialize() error {
	log.Printf("Initializing %s...", a.Name())
	ctx := context.Background()
	aq := a.config.AirQuality

	loc, err := aq.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", aq.Timezone, err)
	}

	if a.engine == nil {
		a.engine, err = forecast.NewEngine(aq.Thresholds, loc)
		if err != nil {
			return fmt.Errorf("failed to create forecast engine: %w", err)
		}
		log.Printf("Forecast engine ready (good <= %.0f, moderate <= %.0f, zone %s)", aq.Thresholds.Good, aq.Thresholds.Moderate, loc)
	}

	if a.source == nil {
		switch aq.Source {
		case config.SourceInfluxDB:
			influx, err := NewInfluxSource(ctx, a.config.InfluxDB, a.config.PulseEco.SensorID, aq.Measurement)
			if err != nil {
				return err
			}
			a.source = NewRateLimitedSource(influx, a.config.PulseEco.RequestsPerSecond, a.config.PulseEco.Burst)
		default:
			a.source = NewPulseEcoSource(&a.config.PulseEco, aq.Measurement, loc)
		}
		log.Printf("Reading source: %s", a.source.Name())
	}

	if a.mirror == nil && a.config.InfluxDB.Mirror {
		mirror, err := NewInfluxMirror(ctx, a.config.InfluxDB)
		if err != nil {
			return err
		}
		a.mirror = mirror
		log.Println("InfluxDB mirror initialized")
	}

	if a.alerts == nil {
		a.alerts, err = storage.NewAlertTracker(a.config.Storage.DataDir, aq.AlertRepeat())
		if err != nil {
			return fmt.Errorf("failed to open alert tracker: %w", err)
		}
		log.Printf("Alert tracker loaded (%d recent alerts)", a.alerts.Count())
	}

	if a.sender == nil && a.config.Email.Enabled {
		a.sender, err = email.NewSender(ctx, &a.config.Email)
		if err != nil {
			return fmt.Errorf("failed to create email sender: %w", err)
		}
		log.Printf("Email sender initialized (%s)", a.config.Email.Provider)
	}

	if a.advisor == nil && a.config.AI.Enabled {
		a.advisor, err = ai.NewAdvisor(&a.config.AI)
		if err != nil {
			return err
		}
		log.Println("AI advisor initialized")
	}

	if a.desktop == nil && a.config.Notifications.Desktop {
		a.desktop = notifications.NewDesktop(aq.AlertRepeat())
	}

	if a.publisher == nil && a.config.Kafka.Enabled {
		a.publisher, err = publish.NewKafkaPublisher(a.config.Kafka)
		if err != nil {
			return err
		}
		log.Printf("Kafka publisher initialized (topic %s)", a.config.Kafka.Topic)
	}

	log.Printf("Configured for %s (sensor %s, %s)", aq.LocationName, a.config.PulseEco.SensorID, aq.Measurement)
	return nil
}

func (a *AirQualityAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := AirQualityMetrics{}
	aq := a.config.AirQuality

	critical := func(err error) error {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(startTime))
		}
		return err
	}
	partial := func(err error) {
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(err, time.Since(startTime))
		}
		log.Printf("Warning: %v", err)
	}

	now := a.now().In(a.engine.Location())
	from := now.AddDate(0, 0, -aq.HistoryDays)

	log.Printf("Fetching %d days of %s readings from %s...", aq.HistoryDays, aq.Measurement, a.source.Name())
	readings, err := a.source.FetchReadings(ctx, from, now)
	if err != nil {
		return critical(fmt.Errorf("failed to fetch readings: %w", err))
	}
	metrics.ReadingsFetched = len(readings)

	if a.mirror != nil {
		if err := a.mirror.WriteReadings(ctx, readings); err != nil {
			partial(err)
		}
	}

	current, err := a.engine.Current(readings)
	if err != nil {
		return critical(fmt.Errorf("failed to classify current reading: %w", err))
	}
	points, err := a.engine.Predict(readings, now)
	if err != nil {
		return critical(fmt.Errorf("failed to compute forecast: %w", err))
	}

	report := &models.AirQualityReport{
		GeneratedAt:  now,
		LocationName: aq.LocationName,
		Measurement:  aq.Measurement,
		Unit:         aq.Unit,
		Thresholds:   aq.Thresholds,
		ReadingsUsed: len(readings),
		Current:      current,
		Forecast:     points,
	}
	metrics.CurrentCategory = current.Category
	metrics.WorstCategory = report.Worst()
	log.Printf("Forecast: %s", formatForecastLine(report))

	pending := a.pendingAlerts(report)
	if len(pending) > 0 && a.advisor != nil {
		advisory, err := a.advisor.Advise(ctx, report)
		if err != nil {
			partial(fmt.Errorf("failed to generate advisory: %w", err))
		} else {
			report.Advisory = advisory.String()
		}
	}

	if events != nil && events.OnReport != nil {
		events.OnReport(report)
	}
	a.lastReport = report

	if len(pending) > 0 {
		sent, errs := a.deliverAlert(ctx, report)
		for _, err := range errs {
			partial(err)
		}
		if sent {
			metrics.AlertSent = true
			if err := a.alerts.MarkSent(pending...); err != nil {
				partial(fmt.Errorf("failed to record sent alert: %w", err))
			}
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Publish(report); err != nil {
			partial(err)
		} else {
			metrics.Published = true
		}
	}

	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}

	log.Printf("Air quality check complete: now=%s, worst=%s, alert_sent=%t",
		metrics.CurrentCategory, metrics.WorstCategory, metrics.AlertSent)

	return nil
}

// Close releases the connections held by the source, mirror and publisher
func (a *AirQualityAgent) Close() error {
	var errs []error
	for _, c := range []any{a.source, a.mirror, a.publisher} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LastReport is the report of the most recent successful run
func (a *AirQualityAgent) LastReport() *models.AirQualityReport {
	return a.lastReport
}

// pendingAlerts lists alert keys at or above the configured category that
// have not been sent within the repeat window
func (a *AirQualityAgent) pendingAlerts(report *models.AirQualityReport) []string {
	threshold, err := models.ParseCategory(a.config.AirQuality.AlertCategory)
	if err != nil {
		threshold = models.CategoryUnhealthy
	}

	var keys []string
	if report.Current.Category.AtLeast(threshold) {
		keys = append(keys, storage.AlertKey(report.GeneratedAt, report.Current.Category))
	}
	for _, p := range report.Forecast {
		if p.Category.AtLeast(threshold) {
			keys = append(keys, storage.AlertKey(p.Date, p.Category))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return a.alerts.Pending(keys)
}

// deliverAlert tries every configured channel. sent is true when at least
// one channel delivered.
func (a *AirQualityAgent) deliverAlert(ctx context.Context, report *models.AirQualityReport) (sent bool, errs []error) {
	if a.sender == nil && a.desktop == nil {
		log.Printf("Alert condition reached (%s) but no alert channel is enabled", report.Worst())
		return false, nil
	}

	if a.sender != nil {
		chartPNG, err := chart.RenderPNG(report)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to render chart, sending without it: %w", err))
		}

		msg, err := email.NewReportMessage(report, chartPNG, a.config.Email.FromEmail, []string{a.config.Email.ToEmail})
		if err == nil {
			err = a.sender.Send(ctx, msg)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to send alert email: %w", err))
		} else {
			log.Printf("Alert email sent to %s", a.config.Email.ToEmail)
			sent = true
		}
	}

	if a.desktop != nil {
		shown, err := a.desktop.Notify(report)
		if err != nil {
			errs = append(errs, err)
		} else if shown {
			sent = true
		}
	}

	return sent, errs
}

func formatForecastLine(report *models.AirQualityReport) string {
	parts := make([]string, 0, len(report.Forecast))
	for _, p := range report.Forecast {
		parts = append(parts, fmt.Sprintf("%s %.1f (%s)", p.DisplayDate, p.Value, p.Category))
	}
	return strings.Join(parts, ", ")
}
