package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/cryptodash/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Market  MarketConfig  `mapstructure:"market"`
	Live    LiveConfig    `mapstructure:"live"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	Notifiers []NotifierConfig `mapstructure:"notifiers"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`
	MaxSessions int    `mapstructure:"max_sessions"`
	APIKey      string `mapstructure:"api_key"` // guards operator endpoints when set
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig selects the key-value store holding the cached catalog and
// the selection.
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "file", "memory" or "redis"
	Path  string      `mapstructure:"path"` // For file
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// ArchiveConfig selects where rendered chart snapshots go.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MarketConfig holds the remote market-data endpoints.
type MarketConfig struct {
	CoinGeckoURL     string        `mapstructure:"coingecko_url"`
	CoinGeckoAPIKey  string        `mapstructure:"coingecko_api_key"`
	CryptoCompareURL string        `mapstructure:"cryptocompare_url"`
	BinanceURL       string        `mapstructure:"binance_url"`
	LiveSource       string        `mapstructure:"live_source"`     // "cryptocompare" or "binance"
	RequestTimeout   time.Duration `mapstructure:"request_timeout"` // 0 keeps transport defaults
}

// LiveConfig holds live report settings.
type LiveConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	SkipPolicy string        `mapstructure:"skip_policy"` // "halt" or "drop"
	Snapshots  bool          `mapstructure:"snapshots"`   // archive chart PNGs of every session
}

// NotifierConfig configures one receiver of live session stop events.
type NotifierConfig struct {
	Type   string         `mapstructure:"type"` // "webhook"
	Params map[string]any `mapstructure:"params"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file, layered over Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.redis.prefix", d.Storage.Redis.Prefix)
	v.SetDefault("archive.type", d.Archive.Type)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("market.coingecko_url", d.Market.CoinGeckoURL)
	v.SetDefault("market.cryptocompare_url", d.Market.CryptoCompareURL)
	v.SetDefault("market.binance_url", d.Market.BinanceURL)
	v.SetDefault("market.live_source", d.Market.LiveSource)
	v.SetDefault("live.interval", d.Live.Interval)
	v.SetDefault("live.skip_policy", d.Live.SkipPolicy)
	v.SetDefault("live.snapshots", d.Live.Snapshots)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Mode:        "release",
			MaxSessions: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Type: "file",
			Path: "data/store.json",
			Redis: RedisConfig{
				Prefix: "cryptodash:",
			},
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "data/snapshots",
		},
		Market: MarketConfig{
			CoinGeckoURL:     "https://api.coingecko.com/api/v3",
			CryptoCompareURL: "https://min-api.cryptocompare.com",
			BinanceURL:       "https://api.binance.com",
			LiveSource:       "cryptocompare",
		},
		Live: LiveConfig{
			Interval:   time.Second,
			SkipPolicy: "halt",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxSessions < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_sessions cannot be negative, got %d", c.Server.MaxSessions))
	}

	switch c.Storage.Type {
	case "", "memory":
	case "file":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage path required when type is file"))
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis addr required when storage type is redis"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type: %s", c.Storage.Type))
	}

	switch c.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type: %s", c.Archive.Type))
	}

	if c.Market.CoinGeckoURL == "" || c.Market.CryptoCompareURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("market endpoints cannot be empty"))
	}
	switch c.Market.LiveSource {
	case "", "cryptocompare":
	case "binance":
		if c.Market.BinanceURL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("binance_url required when live_source is binance"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("live_source must be cryptocompare or binance, got %s", c.Market.LiveSource))
	}
	if c.Market.RequestTimeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("request_timeout cannot be negative, got %s", c.Market.RequestTimeout))
	}

	// Live validation
	if c.Live.Interval <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("live interval must be positive, got %s", c.Live.Interval))
	}
	switch c.Live.SkipPolicy {
	case "", "halt", "drop":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("skip_policy must be halt or drop, got %s", c.Live.SkipPolicy))
	}

	for i, n := range c.Notifiers {
		if n.Type != "webhook" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notifiers[%d]: unknown type %q", i, n.Type))
		}
	}

	return nil
}
