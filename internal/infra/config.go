package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL  = "https://api.backpack.exchange"
	DefaultWindowMS = 5000
)

// Config holds all application settings. Loaded once at startup; the
// exchange section is immutable afterwards, so signer and client can read it
// concurrently without locking.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Exchange struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		WindowMS  int    `yaml:"window_ms"`
	} `yaml:"exchange"`

	Trading struct {
		Symbol     string `yaml:"symbol"`
		Quantity   string `yaml:"quantity"`
		LegsPerSet int    `yaml:"legs_per_set"`
		// SetCount is a pointer so an explicit "set_count: 0" (= unbounded)
		// is distinguishable from an absent key (= default 1).
		SetCount  *int `yaml:"set_count"`
		WaitMinMS int  `yaml:"wait_min_ms"`
		WaitMaxMS int  `yaml:"wait_max_ms"`
	} `yaml:"trading"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads the optional config file, applies environment overrides,
// fills defaults, and validates. A missing file is not an error: the original
// workflow runs on environment variables alone.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults + env only.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = AppName
	}
	if cfg.Exchange.BaseURL == "" {
		cfg.Exchange.BaseURL = DefaultBaseURL
	}
	cfg.Exchange.BaseURL = strings.TrimRight(cfg.Exchange.BaseURL, "/")
	if cfg.Exchange.WindowMS == 0 {
		cfg.Exchange.WindowMS = DefaultWindowMS
	}
	if cfg.Trading.Symbol == "" {
		cfg.Trading.Symbol = "SOL"
	}
	if cfg.Trading.Quantity == "" {
		cfg.Trading.Quantity = "0.01"
	}
	if cfg.Trading.LegsPerSet == 0 {
		cfg.Trading.LegsPerSet = 1
	}
	if cfg.Trading.SetCount == nil {
		one := 1
		cfg.Trading.SetCount = &one
	}
	if cfg.Trading.WaitMinMS == 0 {
		cfg.Trading.WaitMinMS = 1000
	}
	if cfg.Trading.WaitMaxMS == 0 {
		cfg.Trading.WaitMaxMS = 3000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// overrideWithEnv applies environment variables on top of the file values.
// Env wins over file so secrets can stay out of the config entirely.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("BACKPACK_API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("BACKPACK_API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := os.Getenv("BACKPACK_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("BACKPACK_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Exchange.WindowMS = n
		}
	}
}

// Validate checks configuration validity (fail fast, before anything runs).
func (c *Config) Validate() error {
	url := c.Exchange.BaseURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("invalid base URL: %s", url)
	}
	if c.Exchange.WindowMS <= 0 {
		return fmt.Errorf("signing window must be positive, got %d ms", c.Exchange.WindowMS)
	}
	run, err := c.RunConfig()
	if err != nil {
		return err
	}
	return run.Validate()
}

// IsLive reports whether real orders will be sent. Credentials present means
// live; anything else (empty or whitespace-only) selects simulated mode.
// This is the sole switch between modes.
func (c *Config) IsLive() bool {
	return strings.TrimSpace(c.Exchange.APIKey) != "" &&
		strings.TrimSpace(c.Exchange.APISecret) != ""
}

// RunConfig materializes the trading section into the run settings used by
// the cycle controller.
func (c *Config) RunConfig() (domain.RunConfig, error) {
	qty, err := decimal.NewFromString(c.Trading.Quantity)
	if err != nil {
		return domain.RunConfig{}, fmt.Errorf("invalid quantity %q: %w", c.Trading.Quantity, err)
	}
	sets := 1
	if c.Trading.SetCount != nil {
		sets = *c.Trading.SetCount
	}
	return domain.RunConfig{
		Symbol:     strings.ToUpper(c.Trading.Symbol),
		Quantity:   qty,
		LegsPerSet: c.Trading.LegsPerSet,
		SetCount:   sets,
		WaitMin:    time.Duration(c.Trading.WaitMinMS) * time.Millisecond,
		WaitMax:    time.Duration(c.Trading.WaitMaxMS) * time.Millisecond,
	}, nil
}
