package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig = "SENDERTALLY_CONFIG"

	envConfigDir     = "SENDERTALLY_CONFIG_DIR"
	envMaxMessages   = "SENDERTALLY_MAX_MESSAGES"
	envTop           = "SENDERTALLY_TOP"
	envPageSize      = "SENDERTALLY_PAGE_SIZE"
	envWorkers       = "SENDERTALLY_WORKERS"
	envReportEvery   = "SENDERTALLY_REPORT_EVERY"
	envCallTimeout   = "SENDERTALLY_CALL_TIMEOUT"
	envRatePerSecond = "SENDERTALLY_RATE_PER_SECOND"
	envListRetries   = "SENDERTALLY_LIST_RETRIES"
	envTimezone      = "SENDERTALLY_TIMEZONE"
	envListen        = "SENDERTALLY_LISTEN"
)

// Limits on the message cap offered to users.
const (
	MinMessages = 100
	MaxMessages = 10000
)

// Config holds the tunables of a run and of the surfaces around it.
type Config struct {
	// ConfigDir holds client_secret.json and the cached token.json.
	ConfigDir     string        `yaml:"config_dir"`
	MaxMessages   int           `yaml:"max_messages"`
	Top           int           `yaml:"top"`
	PageSize      int           `yaml:"page_size"`
	Workers       int           `yaml:"workers"`
	ReportEvery   int           `yaml:"report_every"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	ListRetries   int           `yaml:"list_retries"`
	Timezone      string        `yaml:"timezone"`
	Listen        string        `yaml:"listen"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	dir := ".sendertally"
	if base, err := os.UserConfigDir(); err == nil {
		dir = filepath.Join(base, "sendertally")
	}
	return Config{
		ConfigDir:     dir,
		MaxMessages:   2000,
		Top:           20,
		PageSize:      500,
		Workers:       8,
		ReportEvery:   10,
		CallTimeout:   30 * time.Second,
		RatePerSecond: 20,
		ListRetries:   0,
		Timezone:      "Local",
		Listen:        "127.0.0.1:8080",
	}
}

// Load reads a YAML file over the defaults. An empty path or a file that does
// not exist yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides cfg with any SENDERTALLY_* variables that are set.
func ApplyEnv(cfg Config) (Config, error) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", name)
		}
		*dst = n
		return nil
	}

	str(envConfigDir, &cfg.ConfigDir)
	str(envTimezone, &cfg.Timezone)
	str(envListen, &cfg.Listen)
	for name, dst := range map[string]*int{
		envMaxMessages: &cfg.MaxMessages,
		envTop:         &cfg.Top,
		envPageSize:    &cfg.PageSize,
		envWorkers:     &cfg.Workers,
		envReportEvery: &cfg.ReportEvery,
		envListRetries: &cfg.ListRetries,
	} {
		if err := num(name, dst); err != nil {
			return Config{}, err
		}
	}
	if v := strings.TrimSpace(os.Getenv(envCallTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid %s", envCallTimeout)
		}
		cfg.CallTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv(envRatePerSecond)); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid %s", envRatePerSecond)
		}
		cfg.RatePerSecond = r
	}
	return cfg, nil
}

// Validate checks ranges. It reports the first problem found.
func Validate(cfg Config) error {
	switch {
	case strings.TrimSpace(cfg.ConfigDir) == "":
		return errors.New("config_dir must be set")
	case cfg.MaxMessages < MinMessages || cfg.MaxMessages > MaxMessages:
		return errors.Errorf("max_messages must be between %d and %d, got %d", MinMessages, MaxMessages, cfg.MaxMessages)
	case cfg.Top < 1:
		return errors.Errorf("top must be at least 1, got %d", cfg.Top)
	case cfg.PageSize < 1 || cfg.PageSize > 500:
		return errors.Errorf("page_size must be between 1 and 500, got %d", cfg.PageSize)
	case cfg.Workers < 1 || cfg.Workers > 64:
		return errors.Errorf("workers must be between 1 and 64, got %d", cfg.Workers)
	case cfg.ReportEvery < 1:
		return errors.Errorf("report_every must be at least 1, got %d", cfg.ReportEvery)
	case cfg.CallTimeout <= 0:
		return errors.Errorf("call_timeout must be positive, got %s", cfg.CallTimeout)
	case cfg.RatePerSecond < 0:
		return errors.Errorf("rate_per_second must not be negative, got %g", cfg.RatePerSecond)
	case cfg.ListRetries < 0:
		return errors.Errorf("list_retries must not be negative, got %d", cfg.ListRetries)
	case strings.TrimSpace(cfg.Listen) == "":
		return errors.New("listen must be set")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. "" and "Local" mean the system zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid timezone %q", c.Timezone)
	}
	return loc, nil
}
