package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Recognizer backends
const (
	RecognizerProse = "prose"
	RecognizerHTTP  = "http"
	RecognizerNone  = "none"
)

// Config holds the application configuration
type Config struct {
	Port                string  `yaml:"port"`
	FusekiURL           string  `yaml:"fuseki_url"`
	FusekiDataset       string  `yaml:"fuseki_dataset"`
	SPARQLTimeout       int     `yaml:"sparql_timeout"` // seconds
	SPARQLMaxConcurrent int     `yaml:"sparql_max_concurrent"`
	SPARQLMaxQPS        float64 `yaml:"sparql_max_qps"`
	NLQMaxPerMinute     int     `yaml:"nlq_max_per_minute"` // 0 disables the limit
	RedisURL            string  `yaml:"redis_url"`
	Recognizer          string  `yaml:"recognizer"`
	RecognizerURL       string  `yaml:"recognizer_url"`
	LexiconFile         string  `yaml:"lexicon_file"`
	JournalPath         string  `yaml:"journal_path"`
	ReconcileSchedule   string  `yaml:"reconcile_schedule"`
	ReconcileAfter      int     `yaml:"reconcile_after"` // seconds
	LogLevel            string  `yaml:"log_level"`
	LogFormat           string  `yaml:"log_format"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Port:                "8000",
		FusekiURL:           "http://localhost:3030",
		FusekiDataset:       "SmartCom",
		SPARQLTimeout:       30,
		SPARQLMaxConcurrent: 16,
		NLQMaxPerMinute:     60,
		Recognizer:          RecognizerProse,
		JournalPath:         "smartcom.db",
		ReconcileSchedule:   "*/5 * * * *",
		ReconcileAfter:      120,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// LoadConfig loads configuration from the YAML file named by SMARTCOM_CONFIG,
// if any, then from environment variables. Environment variables win.
func LoadConfig() (*Config, error) {
	config := Default()

	if path := os.Getenv("SMARTCOM_CONFIG"); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.Port = getEnv("PORT", config.Port)
	config.FusekiURL = getEnv("FUSEKI_URL", config.FusekiURL)
	config.FusekiDataset = getEnv("FUSEKI_DATASET", config.FusekiDataset)
	config.SPARQLTimeout = getEnvAsInt("SPARQL_TIMEOUT", config.SPARQLTimeout)
	config.SPARQLMaxConcurrent = getEnvAsInt("SPARQL_MAX_CONCURRENT", config.SPARQLMaxConcurrent)
	config.SPARQLMaxQPS = getEnvAsFloat("SPARQL_MAX_QPS", config.SPARQLMaxQPS)
	config.NLQMaxPerMinute = getEnvAsInt("NLQ_MAX_PER_MINUTE", config.NLQMaxPerMinute)
	config.RedisURL = getEnv("REDIS_URL", config.RedisURL)
	config.Recognizer = getEnv("RECOGNIZER", config.Recognizer)
	config.RecognizerURL = getEnv("RECOGNIZER_URL", config.RecognizerURL)
	config.LexiconFile = getEnv("LEXICON_FILE", config.LexiconFile)
	config.JournalPath = getEnv("JOURNAL_PATH", config.JournalPath)
	config.ReconcileSchedule = getEnv("RECONCILE_SCHEDULE", config.ReconcileSchedule)
	config.ReconcileAfter = getEnvAsInt("RECONCILE_AFTER", config.ReconcileAfter)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	if c.FusekiURL == "" {
		return fmt.Errorf("FUSEKI_URL is required")
	}
	if c.FusekiDataset == "" {
		return fmt.Errorf("FUSEKI_DATASET is required")
	}
	if c.SPARQLTimeout <= 0 {
		return fmt.Errorf("SPARQL_TIMEOUT must be positive, got %d", c.SPARQLTimeout)
	}
	if c.SPARQLMaxConcurrent <= 0 {
		return fmt.Errorf("SPARQL_MAX_CONCURRENT must be positive, got %d", c.SPARQLMaxConcurrent)
	}
	if c.SPARQLMaxQPS < 0 {
		return fmt.Errorf("SPARQL_MAX_QPS must not be negative")
	}
	if c.NLQMaxPerMinute < 0 {
		return fmt.Errorf("NLQ_MAX_PER_MINUTE must not be negative")
	}
	if c.ReconcileAfter < 0 {
		return fmt.Errorf("RECONCILE_AFTER must not be negative")
	}
	if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
		return fmt.Errorf("invalid RECONCILE_SCHEDULE: %w", err)
	}
	switch c.Recognizer {
	case RecognizerProse, RecognizerNone:
	case RecognizerHTTP:
		if c.RecognizerURL == "" {
			return fmt.Errorf("RECOGNIZER_URL is required when RECOGNIZER=http")
		}
	default:
		return fmt.Errorf("unknown RECOGNIZER %q", c.Recognizer)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// SlogLevel parses LogLevel
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Timeout is the per-request triplestore timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.SPARQLTimeout) * time.Second
}

// ReconcileAge is how long a checkout may stay pending before it is reconciled
func (c *Config) ReconcileAge() time.Duration {
	return time.Duration(c.ReconcileAfter) * time.Second
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
