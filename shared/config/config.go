package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // station zones resolve on images without zoneinfo

	"air-quality-stack/internal/models"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	SourcePulseEco = "pulseeco"
	SourceInfluxDB = "influxdb"

	EmailProviderSMTP  = "smtp"
	EmailProviderGmail = "gmail"
)

type Config struct {
	AirQuality        AirQualityConfig    `yaml:"air_quality"`
	PulseEco          PulseEcoConfig      `yaml:"pulse_eco"`
	InfluxDB          InfluxDBConfig      `yaml:"influxdb"`
	AI                AIConfig            `yaml:"ai"`
	Email             EmailConfig         `yaml:"email"`
	Notifications     NotificationsConfig `yaml:"notifications"`
	Kafka             KafkaConfig         `yaml:"kafka"`
	Monitoring        MonitoringConfig    `yaml:"monitoring"`
	Storage           StorageConfig       `yaml:"storage"`
	Schedule          string              `yaml:"schedule"`
	RunTimeoutSeconds int                 `yaml:"run_timeout_seconds"`
}

type AirQualityConfig struct {
	LocationName     string            `yaml:"location_name"`
	Source           string            `yaml:"source"` // pulseeco or influxdb
	Measurement      string            `yaml:"measurement"`
	Unit             string            `yaml:"unit"`
	Thresholds       models.Thresholds `yaml:"thresholds"`
	HistoryDays      int               `yaml:"history_days"`
	Timezone         string            `yaml:"timezone"`
	AlertCategory    string            `yaml:"alert_category"`
	AlertRepeatHours int               `yaml:"alert_repeat_hours"`
}

type PulseEcoConfig struct {
	BaseURL           string  `yaml:"base_url"`
	Username          string  `yaml:"username" env:"PULSEECO_USERNAME"`
	Password          string  `yaml:"password" env:"PULSEECO_PASSWORD"`
	SensorID          string  `yaml:"sensor_id"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type InfluxDBConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token" env:"INFLUX_TOKEN"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
	Field       string `yaml:"field"`
	SensorTag   string `yaml:"sensor_tag"`
	Mirror      bool   `yaml:"mirror"` // write fetched pulse.eco readings
}

type AIConfig struct {
	Enabled      bool   `yaml:"enabled"`
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
}

type EmailConfig struct {
	Enabled    bool        `yaml:"enabled"`
	Provider   string      `yaml:"provider"` // smtp or gmail
	SMTPServer string      `yaml:"smtp_server"`
	SMTPPort   int         `yaml:"smtp_port"`
	Username   string      `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string      `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string      `yaml:"from_email"`
	ToEmail    string      `yaml:"to_email"`
	Gmail      GmailConfig `yaml:"gmail"`
}

type GmailConfig struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
}

type NotificationsConfig struct {
	Desktop bool `yaml:"desktop"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	envOverride(&c.PulseEco.Username, "PULSEECO_USERNAME")
	envOverride(&c.PulseEco.Password, "PULSEECO_PASSWORD")
	envOverride(&c.InfluxDB.Token, "INFLUX_TOKEN")
	envOverride(&c.AI.GeminiAPIKey, "GEMINI_API_KEY")
	envOverride(&c.Email.Username, "EMAIL_USERNAME")
	envOverride(&c.Email.Password, "EMAIL_PASSWORD")
	envOverride(&c.Email.Gmail.ClientID, "GOOGLE_CLIENT_ID")
	envOverride(&c.Email.Gmail.ClientSecret, "GOOGLE_CLIENT_SECRET")
}

// envOverride fills an empty field from the environment
func envOverride(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

func (c *Config) applyDefaults() {
	aq := &c.AirQuality
	if aq.LocationName == "" {
		aq.LocationName = "Skopje"
	}
	if aq.Source == "" {
		aq.Source = SourcePulseEco
	}
	if aq.Measurement == "" {
		aq.Measurement = "pm10"
	}
	if aq.Unit == "" {
		aq.Unit = "µg/m³"
	}
	if aq.Thresholds == (models.Thresholds{}) {
		// PM10 bands
		aq.Thresholds = models.Thresholds{Good: 20, Moderate: 50}
	}
	if aq.HistoryDays == 0 {
		aq.HistoryDays = 30
	}
	if aq.Timezone == "" {
		aq.Timezone = "Europe/Skopje"
	}
	if aq.AlertCategory == "" {
		aq.AlertCategory = string(models.CategoryUnhealthy)
	}
	if aq.AlertRepeatHours == 0 {
		aq.AlertRepeatHours = 12
	}

	if c.PulseEco.BaseURL == "" {
		c.PulseEco.BaseURL = "https://skopje.pulse.eco/rest"
	}
	if c.PulseEco.RequestsPerSecond == 0 {
		c.PulseEco.RequestsPerSecond = 2
	}
	if c.PulseEco.Burst == 0 {
		c.PulseEco.Burst = 1
	}

	if c.InfluxDB.Measurement == "" {
		c.InfluxDB.Measurement = "air_quality"
	}
	if c.InfluxDB.Field == "" {
		c.InfluxDB.Field = "value"
	}
	if c.InfluxDB.SensorTag == "" {
		c.InfluxDB.SensorTag = "sensor_id"
	}

	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}

	if c.Email.Provider == "" {
		c.Email.Provider = EmailProviderSMTP
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.Gmail.TokenFile == "" {
		c.Email.Gmail.TokenFile = "gmail_token.json"
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "air-quality-forecast"
	}

	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Schedule == "" {
		c.Schedule = "0 */15 * * * *" // every 15 minutes
	}
	if c.RunTimeoutSeconds == 0 {
		c.RunTimeoutSeconds = 60
	}
}

func (c *Config) validate() error {
	aq := c.AirQuality
	if err := aq.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid air_quality.thresholds: %w", err)
	}
	if _, err := models.ParseCategory(aq.AlertCategory); err != nil {
		return fmt.Errorf("invalid air_quality.alert_category: %w", err)
	}
	if _, err := time.LoadLocation(aq.Timezone); err != nil {
		return fmt.Errorf("invalid air_quality.timezone %q: %w", aq.Timezone, err)
	}
	if aq.HistoryDays < 2 {
		return fmt.Errorf("air_quality.history_days must be at least 2, got %d", aq.HistoryDays)
	}
	if aq.AlertRepeatHours < 0 {
		return fmt.Errorf("air_quality.alert_repeat_hours must not be negative")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	if c.RunTimeoutSeconds < 0 {
		return fmt.Errorf("run_timeout_seconds must not be negative")
	}

	switch aq.Source {
	case SourcePulseEco:
		if c.PulseEco.SensorID == "" {
			return fmt.Errorf("pulse.eco sensor ID is required (pulse_eco.sensor_id)")
		}
		if c.PulseEco.Username == "" || c.PulseEco.Password == "" {
			return fmt.Errorf("pulse.eco credentials are required (set PULSEECO_USERNAME/PULSEECO_PASSWORD or pulse_eco.username/password)")
		}
		if c.PulseEco.RequestsPerSecond < 0 || c.PulseEco.Burst < 1 {
			return fmt.Errorf("pulse_eco.requests_per_second must be positive and burst at least 1")
		}
	case SourceInfluxDB:
		if err := c.InfluxDB.validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown air_quality.source %q (want %s or %s)", aq.Source, SourcePulseEco, SourceInfluxDB)
	}

	if c.InfluxDB.Mirror {
		if aq.Source == SourceInfluxDB {
			return fmt.Errorf("influxdb.mirror cannot be used when InfluxDB is the reading source")
		}
		if err := c.InfluxDB.validate(); err != nil {
			return err
		}
	}

	if c.Email.Enabled {
		if err := c.Email.validate(); err != nil {
			return err
		}
	}
	if c.AI.Enabled && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required when ai.enabled is set (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker is required when kafka.enabled is set")
	}

	return nil
}

func (i InfluxDBConfig) validate() error {
	if i.URL == "" || i.Org == "" || i.Bucket == "" {
		return fmt.Errorf("InfluxDB url, org and bucket are required")
	}
	if i.Token == "" {
		return fmt.Errorf("InfluxDB token is required (set INFLUX_TOKEN or influxdb.token)")
	}
	return nil
}

func (e EmailConfig) validate() error {
	if e.ToEmail == "" || e.FromEmail == "" {
		return fmt.Errorf("email.from_email and email.to_email are required")
	}
	switch e.Provider {
	case EmailProviderSMTP:
		if e.SMTPServer == "" {
			return fmt.Errorf("SMTP server is required (email.smtp_server)")
		}
		if e.Username == "" {
			return fmt.Errorf("Email username is required (set EMAIL_USERNAME or email.username)")
		}
		if e.Password == "" {
			return fmt.Errorf("Email password is required (set EMAIL_PASSWORD or email.password)")
		}
	case EmailProviderGmail:
		if e.Gmail.ClientID == "" {
			return fmt.Errorf("Google client ID is required (set GOOGLE_CLIENT_ID or email.gmail.client_id)")
		}
		if e.Gmail.ClientSecret == "" {
			return fmt.Errorf("Google client secret is required (set GOOGLE_CLIENT_SECRET or email.gmail.client_secret)")
		}
	default:
		return fmt.Errorf("unknown email.provider %q (want %s or %s)", e.Provider, EmailProviderSMTP, EmailProviderGmail)
	}
	return nil
}

// Location resolves the configured station time zone
func (a AirQualityConfig) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

// RunTimeout bounds a single scheduled run
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

// AlertRepeat is how long an identical alert stays suppressed
func (a AirQualityConfig) AlertRepeat() time.Duration {
	return time.Duration(a.AlertRepeatHours) * time.Hour
}
