package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

const (
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultModel      = "anthropic/claude-3.5-sonnet"
	DefaultDisclaimer = "This analysis is generated by an AI model from the information you provided. " +
		"All figures are rough estimates and must not be treated as financial or investment advice."
)

// Config is the whole service configuration.
type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
		RateLimit       int           `yaml:"rateLimit"`       // burst per client
		RateLimitRefill int           `yaml:"rateLimitRefill"` // tokens per second
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	AI AI `yaml:"ai"`

	Analysis struct {
		Disclaimer string `yaml:"disclaimer"`
	} `yaml:"analysis"`

	Cache struct {
		Backend        string        `yaml:"backend"` // memory | mysql | postgres | sqlite
		DSN            string        `yaml:"dsn"`
		TTL            time.Duration `yaml:"ttl"`
		SweepInterval  time.Duration `yaml:"sweepInterval"`
		DedupeInflight *bool         `yaml:"dedupeInflight"`
	} `yaml:"cache"`

	Archive struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"archive"`

	Events struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"events"`
}

// AI holds the upstream model settings. It is passed by value to the gateway.
type AI struct {
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
	Model    string `yaml:"model"`
	Referer  string `yaml:"referer"`
	AppTitle string `yaml:"appTitle"`
}

var placeholderKeys = []string{"", "your_api_key_here", "your-api-key", "changeme", "sk-or-...", "sk-..."}

// Validate reports ErrConfigurationMissing when the key is absent or an
// obvious placeholder.
func (a AI) Validate() error {
	key := strings.TrimSpace(a.APIKey)
	for _, p := range placeholderKeys {
		if strings.EqualFold(key, p) {
			return analysis.ErrConfigurationMissing
		}
	}
	return nil
}

// Load reads .env (if any), the yaml file at path (if any) and then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// env-only deployment
	default:
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_DSN"); v != "" {
		c.Cache.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	// must outlive the 60s upstream call
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 75 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 10
	}
	if c.Server.RateLimitRefill == 0 {
		c.Server.RateLimitRefill = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = DefaultBaseURL
	}
	if c.AI.Model == "" {
		c.AI.Model = DefaultModel
	}
	if c.AI.Referer == "" {
		c.AI.Referer = "https://unitecon.local"
	}
	if c.AI.AppTitle == "" {
		c.AI.AppTitle = "Unit Economics Analyzer"
	}
	if c.Analysis.Disclaimer == "" {
		c.Analysis.Disclaimer = DefaultDisclaimer
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 60 * time.Minute
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = time.Minute
	}
	if c.Cache.DedupeInflight == nil {
		on := true
		c.Cache.DedupeInflight = &on
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "analysis-events"
	}
	if c.Archive.BucketName == "" {
		c.Archive.BucketName = "degraded-analyses"
	}
}
