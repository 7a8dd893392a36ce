// Package config loads the server configuration: a YAML file, an optional
// .env file and IONCON_* environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Gateway modes.
const (
	GatewayHTTP  = "http"
	GatewayLocal = "local"
)

// Preference backends.
const (
	PrefsSQLite = "sqlite"
	PrefsRedis  = "redis"
	PrefsMemory = "memory"
)

// Config is the server configuration.
type Config struct {
	Server           ServerConfig  `yaml:"server"`
	Log              LogConfig     `yaml:"log"`
	Gateway          GatewayConfig `yaml:"gateway"`
	Prefs            PrefsConfig   `yaml:"prefs"`
	User             UserConfig    `yaml:"user"`
	GlobalConfigPath string        `yaml:"global_config_path"`
}

// ServerConfig configures the HTTP listener and sessions.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SessionIdle  time.Duration `yaml:"session_idle"`
	SessionMax   time.Duration `yaml:"session_max_age"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	Output     string `yaml:"output"` // stdout, file, both
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

// GatewayConfig selects and configures the MI gateway.
type GatewayConfig struct {
	Mode              string        `yaml:"mode"`
	BaseURL           string        `yaml:"base_url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	Token             string        `yaml:"token"`
	Timeout           time.Duration `yaml:"timeout"`
	DefaultMaxRecords int           `yaml:"default_max_records"`
	// DSN is the SQLite database of the local gateway.
	DSN string `yaml:"dsn"`
}

// PrefsConfig selects the preference store.
type PrefsConfig struct {
	Backend string      `yaml:"backend"`
	DSN     string      `yaml:"dsn"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis preference backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// UserConfig is the user context used when the request carries none.
type UserConfig struct {
	Company   string `yaml:"company"`
	Division  string `yaml:"division"`
	User      string `yaml:"user"`
	Warehouse string `yaml:"warehouse"`
	Facility  string `yaml:"facility"`
	Language  string `yaml:"language"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			SessionIdle:  30 * time.Minute,
			SessionMax:   12 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			FilePath:   "logs/ioncon.log",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Gateway: GatewayConfig{
			Mode:              GatewayLocal,
			Timeout:           30 * time.Second,
			DefaultMaxRecords: 100,
			DSN:               "file:ioncon-local.db?_pragma=busy_timeout(5000)",
		},
		Prefs: PrefsConfig{
			Backend: PrefsSQLite,
			DSN:     "file:ioncon.db?_pragma=busy_timeout(5000)",
		},
	}
}

// Load reads path (optional when empty), then envFile (ignored when
// missing), then applies environment overrides and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Gateway.Mode {
	case GatewayLocal:
	case GatewayHTTP:
		if c.Gateway.BaseURL == "" {
			return errors.New("config: gateway.base_url is required in http mode")
		}
	default:
		return fmt.Errorf("config: unknown gateway.mode %q", c.Gateway.Mode)
	}
	switch c.Prefs.Backend {
	case PrefsSQLite, PrefsMemory:
	case PrefsRedis:
		if c.Prefs.Redis.Addr == "" {
			return errors.New("config: prefs.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown prefs.backend %q", c.Prefs.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"IONCON_HOST":             &cfg.Server.Host,
		"IONCON_LOG_LEVEL":        &cfg.Log.Level,
		"IONCON_LOG_FORMAT":       &cfg.Log.Format,
		"IONCON_LOG_OUTPUT":       &cfg.Log.Output,
		"IONCON_GATEWAY_MODE":     &cfg.Gateway.Mode,
		"IONCON_GATEWAY_URL":      &cfg.Gateway.BaseURL,
		"IONCON_GATEWAY_USERNAME": &cfg.Gateway.Username,
		"IONCON_GATEWAY_PASSWORD": &cfg.Gateway.Password,
		"IONCON_GATEWAY_TOKEN":    &cfg.Gateway.Token,
		"IONCON_GATEWAY_DSN":      &cfg.Gateway.DSN,
		"IONCON_PREFS_BACKEND":    &cfg.Prefs.Backend,
		"IONCON_PREFS_DSN":        &cfg.Prefs.DSN,
		"IONCON_REDIS_ADDR":       &cfg.Prefs.Redis.Addr,
		"IONCON_REDIS_PASSWORD":   &cfg.Prefs.Redis.Password,
		"IONCON_COMPANY":          &cfg.User.Company,
		"IONCON_DIVISION":         &cfg.User.Division,
		"IONCON_USER":             &cfg.User.User,
		"IONCON_WAREHOUSE":        &cfg.User.Warehouse,
		"IONCON_FACILITY":         &cfg.User.Facility,
		"IONCON_GLOBAL_CONFIG":    &cfg.GlobalConfigPath,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"IONCON_PORT":     &cfg.Server.Port,
		"IONCON_REDIS_DB": &cfg.Prefs.Redis.DB,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("IONCON_GATEWAY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: IONCON_GATEWAY_TIMEOUT: %w", err)
		}
		cfg.Gateway.Timeout = d
	}
	return nil
}
