package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Environment maps to ENVIRONMENT and selects the logger mode.
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Host and Port are where the static server listens and the browser connects.
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	Port int    `envconfig:"PORT" default:"8002"`

	// ServeDir is the directory exposed by the static server.
	ServeDir string `envconfig:"SERVE_DIR" default:"."`

	// PagePath is the path the browser opens, relative to the server root.
	PagePath string `envconfig:"PAGE_PATH" default:"/index.html"`

	Selector        string `envconfig:"SELECTOR" default:"div"`
	ExpectedVersion string `envconfig:"EXPECTED_VERSION" default:"v1.1.0"`
	ScreenshotPath  string `envconfig:"SCREENSHOT_PATH" default:"version_indicator.png"`

	// WarmupTimeout bounds how long we wait for the server to answer.
	WarmupTimeout time.Duration `envconfig:"WARMUP_TIMEOUT" default:"5s"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"100ms"`

	// LocateTimeout is how long the indicator may take to render and become visible.
	LocateTimeout time.Duration `envconfig:"LOCATE_TIMEOUT" default:"5s"`

	// Timeout is the budget for everything the browser does.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`

	Headless   bool   `envconfig:"HEADLESS" default:"true"`
	ChromePath string `envconfig:"CHROME_PATH"`

	// DatabaseURL maps to DB_URL. Results are only recorded when it is set.
	DatabaseURL string `envconfig:"DB_URL"`
}

// Load processes environment variables and populates the Config struct.
func Load() (*Config, error) {
	// A missing .env is normal; only complain when one exists and is broken.
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			log.Printf("Warning: .env file found but could not be loaded: %v", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values a run cannot work without.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Host == "" {
		errs = append(errs, errors.New("host is empty"))
	}
	if c.ServeDir == "" {
		errs = append(errs, errors.New("serve dir is empty"))
	}
	if !strings.HasPrefix(c.PagePath, "/") {
		errs = append(errs, fmt.Errorf("page path %q must start with /", c.PagePath))
	}
	if strings.TrimSpace(c.Selector) == "" {
		errs = append(errs, errors.New("selector is empty"))
	}
	if c.ExpectedVersion == "" {
		errs = append(errs, errors.New("expected version is empty"))
	}
	if c.ScreenshotPath == "" {
		errs = append(errs, errors.New("screenshot path is empty"))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"warmup timeout", c.WarmupTimeout},
		{"poll interval", c.PollInterval},
		{"locate timeout", c.LocateTimeout},
		{"timeout", c.Timeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}

	return errors.Join(errs...)
}
