package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the subscription manager's process configuration: loop timing
// and rate limits, logging, metrics, the optional status endpoint, and the
// per-exchange credentials passed through to adapters unparsed.
type Config struct {
	Manager       ManagerConfig             `yaml:"manager"`
	Logging       LoggingConfig             `yaml:"logging"`
	Metrics       MetricsConfig             `yaml:"metrics"`
	Status        StatusConfig              `yaml:"status"`
	Exchanges     map[string]ExchangeConfig `yaml:"exchanges"`
	Subscriptions []SubscriptionConfig      `yaml:"subscriptions"`
}

// ManagerConfig mirrors the reconcile loop's Config fields (spec §6).
type ManagerConfig struct {
	LoopSeconds       int     `yaml:"loop_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig is passed straight to logger.Log.Configure.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// MetricsConfig controls whether process counters are republished, and
// where the optional CloudWatch dashboard is created.
type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	CloudWatch     bool          `yaml:"cloudwatch"`
	Namespace      string        `yaml:"namespace"`
	Region         string        `yaml:"region"`
	DashboardName  string        `yaml:"dashboard_name"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

// StatusConfig controls the optional diagnostics HTTP server.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// SubscriptionConfig declares one startup subscription: a single data
// type on a single market. Operators may also call Manager.UpdateSubscriptions
// directly from their own code; this list only seeds the initial desired
// set so a freshly started process has something to reconcile.
type SubscriptionConfig struct {
	Exchange string `yaml:"exchange"`
	Base     string `yaml:"base"`
	Counter  string `yaml:"counter"`
	Type     string `yaml:"type"`
}

// ExchangeConfig carries one exchange's connection parameters. The core
// never inspects these fields itself; each adapter's constructor consumes
// the ones it needs and ignores the rest, so adding an exchange-specific
// field here never touches the reconciliation engine.
type ExchangeConfig struct {
	APIKey            string  `yaml:"api_key"`
	APISecret         string  `yaml:"api_secret"`
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LoadConfig reads and validates a YAML configuration file at path.
// API credentials may additionally be supplied via <EXCHANGE>_API_KEY and
// <EXCHANGE>_API_SECRET environment variables (exchange name upper-cased),
// which take precedence over the file when set — the same override
// pattern the teacher used for AWS credentials.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{
		Manager: ManagerConfig{
			LoopSeconds:       5,
			RequestsPerSecond: 5,
			Burst:             1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Status: StatusConfig{
			Address: "0.0.0.0:8090",
		},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, ex := range cfg.Exchanges {
		env := strings.ToUpper(name)
		if v := os.Getenv(env + "_API_KEY"); v != "" {
			ex.APIKey = strings.TrimSpace(v)
		}
		if v := os.Getenv(env + "_API_SECRET"); v != "" {
			ex.APISecret = strings.TrimSpace(v)
		}
		cfg.Exchanges[name] = ex
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Manager.LoopSeconds <= 0 {
		return fmt.Errorf("manager.loop_seconds must be greater than 0")
	}
	if cfg.Manager.RequestsPerSecond <= 0 {
		return fmt.Errorf("manager.requests_per_second must be greater than 0")
	}
	if cfg.Manager.Burst <= 0 {
		return fmt.Errorf("manager.burst must be greater than 0")
	}

	if cfg.Metrics.CloudWatch && cfg.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when cloudwatch is enabled")
	}

	return nil
}

// LoopInterval is ManagerConfig.LoopSeconds as a time.Duration.
func (m ManagerConfig) LoopInterval() time.Duration {
	return time.Duration(m.LoopSeconds) * time.Second
}
