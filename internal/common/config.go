package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is constructed once at
// process start and passed by reference into every component that needs it.
type Config struct {
	Ingest   IngestConfig   `yaml:"ingest"`
	Database DatabaseConfig `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Notify   NotifyConfig   `yaml:"notify"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// IngestConfig controls the file-queue daemon.
type IngestConfig struct {
	InputDir     string   `yaml:"input_dir"`
	ProcessedDir string   `yaml:"processed_dir"`
	Pattern      string   `yaml:"pattern"`
	PollInterval Duration `yaml:"poll_interval"`
	// Predict is optional so each entry point keeps its own default: the
	// daemon predicts acceptance, interactive callers do not.
	Predict *bool `yaml:"predict"`
}

// Per-entry-point prediction defaults. Interactive uploads predict the
// outcome immediately; the background queue stores new rows as pending for
// later review.
const (
	PredictDefaultDaemon      = false
	PredictDefaultInteractive = true
)

// PredictOr resolves the optional predict setting against a caller default.
func (ic IngestConfig) PredictOr(def bool) bool {
	if ic.Predict != nil {
		return *ic.Predict
	}
	return def
}

// DatabaseConfig holds storage configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AIConfig holds text-generation service configuration. Credentials are
// validated lazily, at first use, not here.
type AIConfig struct {
	ProjectID string   `yaml:"project_id"`
	Region    string   `yaml:"region"`
	Model     string   `yaml:"model"`
	Timeout   Duration `yaml:"timeout"`
}

// NotifyConfig holds the WhatsApp notification channel configuration.
type NotifyConfig struct {
	PhoneNumber string   `yaml:"phone_number"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Timeout     Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Duration decodes YAML duration strings like "10s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// LoadConfig reads an optional YAML file, applies environment overrides, then
// fills defaults. An empty path skips the file entirely.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, WrapError(err, "parse config file")
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Ingest.InputDir = getEnv("INPUT_DIR", c.Ingest.InputDir)
	c.Ingest.ProcessedDir = getEnv("PROCESSED_DIR", c.Ingest.ProcessedDir)
	c.Ingest.Pattern = getEnv("INPUT_PATTERN", c.Ingest.Pattern)
	c.Ingest.PollInterval = getEnvAsDuration("POLL_INTERVAL", c.Ingest.PollInterval)
	if value := os.Getenv("PREDICT_STATUS"); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			c.Ingest.Predict = &b
		}
	}

	c.Database.Path = getEnv("DB_PATH", c.Database.Path)

	c.AI.ProjectID = getEnv("GOOGLE_PROJECT_ID", c.AI.ProjectID)
	c.AI.Region = getEnv("VERTEX_REGION", c.AI.Region)
	c.AI.Model = getEnv("GEMINI_MODEL", c.AI.Model)
	c.AI.Timeout = getEnvAsDuration("GEMINI_TIMEOUT", c.AI.Timeout)

	c.Notify.PhoneNumber = getEnv("WHATSAPP_PHONE_NUMBER", c.Notify.PhoneNumber)
	c.Notify.APIKey = getEnv("WHATSAPP_API_KEY", c.Notify.APIKey)
	c.Notify.BaseURL = getEnv("WHATSAPP_BASE_URL", c.Notify.BaseURL)

	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Server.MetricsAddr = getEnv("METRICS_ADDR", c.Server.MetricsAddr)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) applyDefaults() {
	if c.Ingest.InputDir == "" {
		c.Ingest.InputDir = "propostas_a_processar"
	}
	if c.Ingest.ProcessedDir == "" {
		c.Ingest.ProcessedDir = "propostas_processadas"
	}
	if c.Ingest.Pattern == "" {
		c.Ingest.Pattern = "*.pdf"
	}
	if c.Ingest.PollInterval <= 0 {
		c.Ingest.PollInterval = Duration(10 * time.Second)
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/propostas.db"
	}
	if c.AI.Region == "" {
		c.AI.Region = "us-central1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-1.5-flash"
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = Duration(45 * time.Second)
	}
	if c.Notify.BaseURL == "" {
		c.Notify.BaseURL = "https://api.callmebot.com/whatsapp.php"
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = Duration(15 * time.Second)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return Duration(duration)
		}
	}
	return defaultValue
}
