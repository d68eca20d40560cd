package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tradewire TradewireConfig `yaml:"tradewire"`
	Exchanges ExchangesConfig `yaml:"exchanges"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Capture   CaptureConfig   `yaml:"capture"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type TradewireConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ExchangesConfig struct {
	Gemini   ExchangeConfig `yaml:"gemini"`
	Bitrue   ExchangeConfig `yaml:"bitrue"`
	Pacifica ExchangeConfig `yaml:"pacifica"`
	Probit   ExchangeConfig `yaml:"probit"`
	Lbank    ExchangeConfig `yaml:"lbank"`
}

// ExchangeConfig covers one venue. Not every field applies to every
// venue: pacifica signs with wallet_address/private_key and ignores
// api_key/secret, probit needs api_key/secret for its token exchange.
type ExchangeConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Secret        string        `yaml:"secret"`
	Password      string        `yaml:"password"`
	WalletAddress string        `yaml:"wallet_address"`
	PrivateKey    string        `yaml:"private_key"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Symbols       []string      `yaml:"symbols"`
}

type MonitorConfig struct {
	Interval       time.Duration `yaml:"interval"`
	OrderBookDepth int           `yaml:"order_book_depth"`
	// OrderBookEvery fetches the order book once per N ticker polls.
	// Zero disables order book polling.
	OrderBookEvery int `yaml:"order_book_every"`
}

type CaptureConfig struct {
	Enabled       bool          `yaml:"enabled"`
	OutputDir     string        `yaml:"output_dir"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level      string           `yaml:"level"`
	Format     string           `yaml:"format"`
	Output     string           `yaml:"output"`
	MaxAge     int              `yaml:"max_age"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Monitor: MonitorConfig{
			Interval:       10 * time.Second,
			OrderBookDepth: 20,
		},
		Capture: CaptureConfig{
			OutputDir:     "captures",
			BatchSize:     500,
			FlushInterval: time.Minute,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets credentials live outside the config file. Venue
// secrets come from <VENUE>_API_KEY style variables, S3 from the standard
// AWS ones.
func applyEnvOverrides(config *Config) {
	overrideCreds(&config.Exchanges.Gemini, "GEMINI")
	overrideCreds(&config.Exchanges.Bitrue, "BITRUE")
	overrideCreds(&config.Exchanges.Pacifica, "PACIFICA")
	overrideCreds(&config.Exchanges.Probit, "PROBIT")
	overrideCreds(&config.Exchanges.Lbank, "LBANK")

	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func overrideCreds(ex *ExchangeConfig, prefix string) {
	if v := os.Getenv(prefix + "_API_KEY"); v != "" {
		ex.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv(prefix + "_SECRET"); v != "" {
		ex.Secret = strings.TrimSpace(v)
	}
	if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
		ex.Password = strings.TrimSpace(v)
	}
	if v := os.Getenv(prefix + "_WALLET_ADDRESS"); v != "" {
		ex.WalletAddress = strings.TrimSpace(v)
	}
	if v := os.Getenv(prefix + "_PRIVATE_KEY"); v != "" {
		ex.PrivateKey = strings.TrimSpace(v)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Tradewire.Name == "" {
		return fmt.Errorf("tradewire.name is required")
	}

	if cfg.Tradewire.Version == "" {
		return fmt.Errorf("tradewire.version is required")
	}

	if cfg.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be greater than 0")
	}
	if cfg.Monitor.OrderBookDepth < 0 {
		return fmt.Errorf("monitor.order_book_depth must not be negative")
	}

	for _, venue := range []struct {
		name string
		cfg  ExchangeConfig
	}{
		{"gemini", cfg.Exchanges.Gemini},
		{"bitrue", cfg.Exchanges.Bitrue},
		{"pacifica", cfg.Exchanges.Pacifica},
		{"probit", cfg.Exchanges.Probit},
		{"lbank", cfg.Exchanges.Lbank},
	} {
		if venue.cfg.Enabled && len(venue.cfg.Symbols) == 0 {
			return fmt.Errorf("exchanges.%s.symbols is required when the venue is enabled", venue.name)
		}
		if venue.cfg.RatePerSecond < 0 {
			return fmt.Errorf("exchanges.%s.rate_per_second must not be negative", venue.name)
		}
	}

	if cfg.Capture.Enabled {
		if cfg.Capture.BatchSize <= 0 {
			return fmt.Errorf("capture.batch_size must be greater than 0")
		}
		if cfg.Capture.FlushInterval <= 0 {
			return fmt.Errorf("capture.flush_interval must be greater than 0")
		}
		if !cfg.Storage.S3.Enabled && cfg.Capture.OutputDir == "" {
			return fmt.Errorf("capture.output_dir is required when S3 is disabled")
		}
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	if cfg.Logging.CloudWatch.Enabled && cfg.Logging.CloudWatch.Region == "" {
		return fmt.Errorf("logging.cloudwatch.region is required when CloudWatch is enabled")
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
