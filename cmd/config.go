package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/dca/coingecko"
	"github.com/etnz/dca/market"
	"github.com/etnz/dca/store"
	"gopkg.in/yaml.v3"
)

// ConfigEnv is the environment variable holding the configuration file path.
const ConfigEnv = "STACKER_CONFIG"

// Config is the application configuration, read from a YAML file.
type Config struct {
	Store           StoreConfig     `yaml:"store"`
	CoinGecko       CoinGeckoConfig `yaml:"coingecko"`
	LogLevel        string          `yaml:"log_level"`
	RefreshInterval time.Duration   `yaml:"refresh_interval"`
	Listen          string          `yaml:"listen"`
}

// StoreConfig selects where the ledger and preferences are stored.
type StoreConfig struct {
	Driver string      `yaml:"driver"` // file, redis or memory
	Path   string      `yaml:"path"`   // directory of the file driver
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CoinGeckoConfig configures the price source.
type CoinGeckoConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return Config{
		Store: StoreConfig{
			Driver: "file",
			Path:   filepath.Join(dir, "stacker", "data"),
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "stacker:"},
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL: coingecko.DefaultBaseURL,
			Timeout: coingecko.DefaultTimeout,
		},
		LogLevel:        "warn",
		RefreshInterval: market.DefaultInterval,
		Listen:          "127.0.0.1:8080",
	}
}

// defaultConfigFile returns the configuration file read when none is given.
func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "stacker", "config.yaml")
}

// overrides are configuration values from the command line. Empty values do not
// override anything.
type overrides struct {
	store, data, redis, apiKey, logLevel string
}

func currentOverrides() overrides {
	return overrides{
		store:    *storeDriver,
		data:     *dataDir,
		redis:    *redisAddr,
		apiKey:   *apiKey,
		logLevel: *logLevel,
	}
}

// resolveConfig builds the configuration: defaults, then the YAML file, then the
// environment, then the command line.
//
// The file is path, or $STACKER_CONFIG, or the default file. Only an explicit file
// is required to exist.
func resolveConfig(path string, getenv func(string) string, o overrides) (Config, error) {
	cfg := DefaultConfig()

	required := true
	if path == "" {
		path = getenv(ConfigEnv)
	}
	if path == "" {
		path, required = defaultConfigFile(), false
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !required:
		case err != nil:
			return Config{}, fmt.Errorf("cannot read configuration: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("invalid configuration %q: %w", path, err)
			}
		}
	}

	if key := getenv(coingecko.APIKeyEnv); key != "" {
		cfg.CoinGecko.APIKey = key
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Store.Driver, o.store)
	set(&cfg.Store.Path, o.data)
	set(&cfg.Store.Redis.Addr, o.redis)
	set(&cfg.CoinGecko.APIKey, o.apiKey)
	set(&cfg.LogLevel, o.logLevel)

	switch cfg.Store.Driver {
	case "file", "redis", "memory":
	default:
		return Config{}, fmt.Errorf("unknown store driver %q, want file, redis or memory", cfg.Store.Driver)
	}
	return cfg, nil
}

// openStore opens the store selected by cfg.
func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "redis":
		r, err := store.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		f, err := store.NewFile(cfg.Path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}
