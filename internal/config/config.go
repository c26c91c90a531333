// Package config resolves runtime settings.
//
// Precedence, lowest first: built-in defaults, config.yaml in the config dir,
// TASKLIST_* environment variables, explicitly set command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tasklist-cli/internal/format"
	"tasklist-cli/internal/kv"
	"tasklist-cli/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "TASKLIST"
	configFileName = "config.yaml"
)

type Config struct {
	Backend  string      `mapstructure:"backend"`
	Dir      string      `mapstructure:"dir"`
	Redis    RedisConfig `mapstructure:"redis"`
	Keys     KeysConfig  `mapstructure:"keys"`
	LogLevel string      `mapstructure:"log_level"`
	Format   string      `mapstructure:"format"`
	Serve    ServeConfig `mapstructure:"serve"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KeysConfig struct {
	Tasks string `mapstructure:"tasks"`
	Theme string `mapstructure:"theme"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

func Defaults() Config {
	return Config{
		Backend: string(kv.BackendSQLite),
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: "tasklist:",
		},
		Keys: KeysConfig{
			Tasks: store.DefaultTasksKey,
			Theme: store.DefaultThemeKey,
		},
		LogLevel: "warn",
		Format:   format.JSON,
		Serve:    ServeConfig{Addr: "127.0.0.1:8787"},
	}
}

// FlagKeys maps config keys to the persistent flag names that override them.
var FlagKeys = map[string]string{
	"backend":    "backend",
	"dir":        "dir",
	"redis.addr": "redis-addr",
	"log_level":  "log-level",
	"format":     "format",
}

// ConfigDir is TASKLIST_CONFIG_DIR when set, else ~/.tasklist.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvPrefix + "_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tasklist"), nil
}

// Load resolves the configuration. flags may be nil; only flags the user actually
// set override lower layers.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("dir", d.Dir)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("keys.tasks", d.Keys.Tasks)
	v.SetDefault("keys.theme", d.Keys.Theme)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("format", d.Format)
	v.SetDefault("serve.addr", d.Serve.Addr)
}

// Validate normalizes enum-like fields in place.
func (c *Config) Validate() error {
	b, err := kv.ParseBackend(c.Backend)
	if err != nil {
		return err
	}
	c.Backend = string(b)

	f, err := format.Normalize(c.Format)
	if err != nil {
		return err
	}
	c.Format = f

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	if strings.TrimSpace(c.Keys.Tasks) == "" {
		c.Keys.Tasks = store.DefaultTasksKey
	}
	if strings.TrimSpace(c.Keys.Theme) == "" {
		c.Keys.Theme = store.DefaultThemeKey
	}
	return nil
}

func (c *Config) KVOptions() kv.Options {
	return kv.Options{
		Backend:       kv.Backend(c.Backend),
		Dir:           c.Dir,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
		RedisPrefix:   c.Redis.Prefix,
	}
}

// Path returns the config file location, whether or not it exists.
func Path() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}
