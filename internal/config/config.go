package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ITK_CONSUMER_KEY.
const EnvPrefix = "ITK"

// Config is the application's configuration model.
type Config struct {
	Account     AccountConfig     `yaml:"account"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Storage     StorageConfig     `yaml:"storage"`
	Crawl       CrawlConfig       `yaml:"crawl"`
	Campaign    CampaignConfig    `yaml:"campaign"`
	API         APIConfig         `yaml:"api"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type AccountConfig struct {
	// ScreenName is the default handle for rebuildFollowers and status.
	// Campaigns always message the authenticated account's followers.
	ScreenName string `yaml:"screenName"`
}

// CredentialsConfig holds OAuth1.0a keys for the v1.1 API.
type CredentialsConfig struct {
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type CrawlConfig struct {
	RetryPauseSeconds int `yaml:"retryPauseSeconds"`
	LookupBatch       int `yaml:"lookupBatch"`
}

type CampaignConfig struct {
	RetryPauseSeconds  int `yaml:"retryPauseSeconds"`
	SandboxDelayMillis int `yaml:"sandboxDelayMillis"`
	BatchSize          int `yaml:"batchSize"`
}

type APIConfig struct {
	BaseURL           string  `yaml:"baseURL,omitempty"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
	MaxAttempts       int     `yaml:"maxAttempts"`
	BaseBackoffMillis int     `yaml:"baseBackoffMillis"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Storage:  StorageConfig{DBPath: "./influencekit.db"},
		Crawl:    CrawlConfig{RetryPauseSeconds: 60, LookupBatch: 100},
		Campaign: CampaignConfig{RetryPauseSeconds: 60, SandboxDelayMillis: 0, BatchSize: 1000},
		API:      APIConfig{RequestsPerSecond: 2, Burst: 10, MaxAttempts: 5, BaseBackoffMillis: 500},
		Log:      LogConfig{Level: "info"},
	}
}

// envOverrides are read with the ITK_ prefix, falling back to the bare name
// (METRICS_ADDR, CONSUMER_KEY, ...).
type envOverrides struct {
	ScreenName     string `envconfig:"SCREEN_NAME"`
	ConsumerKey    string `envconfig:"CONSUMER_KEY"`
	ConsumerSecret string `envconfig:"CONSUMER_SECRET"`
	AccessToken    string `envconfig:"ACCESS_TOKEN"`
	AccessSecret   string `envconfig:"ACCESS_SECRET"`
	DBPath         string `envconfig:"DB_PATH"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	MetricsAddr    string `envconfig:"METRICS_ADDR"`
}

// ResolveEnv overrides config fields with any environment variables that are set.
func (c *Config) ResolveEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Account.ScreenName, env.ScreenName)
	set(&c.Credentials.ConsumerKey, env.ConsumerKey)
	set(&c.Credentials.ConsumerSecret, env.ConsumerSecret)
	set(&c.Credentials.AccessToken, env.AccessToken)
	set(&c.Credentials.AccessSecret, env.AccessSecret)
	set(&c.Storage.DBPath, env.DBPath)
	set(&c.Log.Level, env.LogLevel)
	set(&c.Metrics.Addr, env.MetricsAddr)
	return nil
}

// Validate checks value ranges. Credentials are checked separately by
// RequireCredentials, since not every command talks to the API.
func (c Config) Validate() error {
	var errs []error
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.dbPath is required"))
	}
	if c.Crawl.RetryPauseSeconds <= 0 {
		errs = append(errs, errors.New("crawl.retryPauseSeconds must be positive"))
	}
	if c.Crawl.LookupBatch <= 0 || c.Crawl.LookupBatch > 100 {
		errs = append(errs, errors.New("crawl.lookupBatch must be in 1..100"))
	}
	if c.Campaign.RetryPauseSeconds <= 0 {
		errs = append(errs, errors.New("campaign.retryPauseSeconds must be positive"))
	}
	if c.Campaign.SandboxDelayMillis < 0 {
		errs = append(errs, errors.New("campaign.sandboxDelayMillis must not be negative"))
	}
	if c.Campaign.BatchSize <= 0 {
		errs = append(errs, errors.New("campaign.batchSize must be positive"))
	}
	if c.API.RequestsPerSecond <= 0 || c.API.Burst <= 0 || c.API.MaxAttempts <= 0 {
		errs = append(errs, errors.New("api.requestsPerSecond, api.burst and api.maxAttempts must be positive"))
	}
	return errors.Join(errs...)
}

// RequireCredentials reports missing OAuth keys.
func (c Config) RequireCredentials() error {
	cr := c.Credentials
	if cr.ConsumerKey == "" || cr.ConsumerSecret == "" || cr.AccessToken == "" || cr.AccessSecret == "" {
		return fmt.Errorf("missing API credentials: set credentials in the config file or %s_CONSUMER_KEY, %s_CONSUMER_SECRET, %s_ACCESS_TOKEN, %s_ACCESS_SECRET",
			EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
	}
	return nil
}

func (c CrawlConfig) RetryPause() time.Duration {
	return time.Duration(c.RetryPauseSeconds) * time.Second
}

func (c CampaignConfig) RetryPause() time.Duration {
	return time.Duration(c.RetryPauseSeconds) * time.Second
}

func (c CampaignConfig) SandboxDelay() time.Duration {
	return time.Duration(c.SandboxDelayMillis) * time.Millisecond
}

func (c APIConfig) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMillis) * time.Millisecond
}

// Load reads YAML config from path over the defaults, then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.ResolveEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
