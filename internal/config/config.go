// Package config loads liftlog settings from a YAML file, LIFTLOG_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. LIFTLOG_REDIS_ADDR.
const EnvPrefix = "LIFTLOG"

// Backends supported by the CLI.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the resolved application configuration.
type Config struct {
	Backend string      `mapstructure:"backend"`
	File    FileConfig  `mapstructure:"file"`
	Redis   RedisConfig `mapstructure:"redis"`
	Queue   QueueConfig `mapstructure:"queue"`
	Log     LogConfig   `mapstructure:"log"`
	HTTP    HTTPConfig  `mapstructure:"http"`

	// EncryptionKey is a hex-encoded 32 byte AES key. Empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type FileConfig struct {
	Dir string `mapstructure:"dir"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type QueueConfig struct {
	// OperationTimeout bounds a single queued write. Zero waits forever.
	OperationTimeout time.Duration `mapstructure:"op_timeout"`
	// FlushTimeout bounds the flush run on lifecycle transitions and shutdown.
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
	// Isolated gives each store its own queue.
	Isolated bool `mapstructure:"isolated"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers the default of every key on v.
// Keys must have a default for AutomaticEnv to pick them up on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendFile)
	v.SetDefault("file.dir", filepath.Join(".liftlog", "data"))
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "liftlog:kv:")
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("queue.op_timeout", time.Duration(0))
	v.SetDefault("queue.flush_timeout", 5*time.Second)
	v.SetDefault("queue.isolated", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("encryption_key", "")
}

// New returns a viper instance wired for liftlog: defaults, LIFTLOG_* env
// binding and, when path is not empty, the given config file.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("liftlog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(".liftlog"))
	}
	return v
}

// Load reads the config file (a missing default file is fine) and decodes the result.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked by decoding alone.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown backend %q (want memory, file or redis)", c.Backend)
	}
	if c.Queue.OperationTimeout < 0 || c.Queue.FlushTimeout < 0 {
		return errors.New("queue timeouts must not be negative")
	}
	if _, err := c.Key(); err != nil {
		return err
	}
	return nil
}

// Key decodes EncryptionKey. It returns nil when encryption is disabled.
func (c Config) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
