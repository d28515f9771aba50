package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1"
	DefaultGeminiModel   = "gemini-2.5-flash"
)

// Config represents runtime configuration for the service.
type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Address        string
	Mode           string
	AllowedOrigins []string
	EnableGemini   bool
	EnableChat     bool
}

// GeminiConfig holds the upstream credential. An empty APIKey is not a load
// error; the proxy rejects requests at call time instead.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty Addr disables the history cache.
type RedisConfig struct {
	Addr       string
	Username   string
	Password   string
	DB         int
	HistoryTTL time.Duration
}

type WorkerConfig struct {
	Workers   int
	QueueSize int
}

var defaults = map[string]any{
	"server_address":       ":3001",
	"app_mode":             "debug",
	"cors_allowed_origins": "*",
	"routes_gemini":        true,
	"routes_chat":          true,

	"gemini_api_key":  "",
	"gemini_base_url": DefaultGeminiBaseURL,
	"gemini_model":    DefaultGeminiModel,
	"gemini_timeout":  "60s",

	"db_driver":            "mysql",
	"db_host":              "localhost",
	"db_port":              3306,
	"db_user":              "root",
	"db_password":          "",
	"db_name":              "mydatabase",
	"db_dsn":               "chat.db",
	"db_max_open_conns":    25,
	"db_max_idle_conns":    5,
	"db_conn_max_lifetime": "1h",

	"redis_addr":        "",
	"redis_username":    "",
	"redis_password":    "",
	"redis_db":          0,
	"redis_history_ttl": "10m",

	"log_workers":    2,
	"log_queue_size": 256,
}

// NewViper returns a viper instance carrying the built-in defaults with
// environment variables (GEMINI_API_KEY, DB_HOST, ...) taking precedence.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()
	return v
}

// Load builds the Config from v, reading the optional YAML file at path first.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:        strings.TrimSpace(v.GetString("server_address")),
			Mode:           strings.ToLower(strings.TrimSpace(v.GetString("app_mode"))),
			AllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
			EnableGemini:   v.GetBool("routes_gemini"),
			EnableChat:     v.GetBool("routes_chat"),
		},
		Gemini: GeminiConfig{
			APIKey:  strings.TrimSpace(v.GetString("gemini_api_key")),
			BaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("gemini_base_url")), "/"),
			Model:   strings.TrimSpace(v.GetString("gemini_model")),
			Timeout: v.GetDuration("gemini_timeout"),
		},
		Database: DatabaseConfig{
			Driver:          normalizeDriver(v.GetString("db_driver")),
			Host:            v.GetString("db_host"),
			Port:            v.GetInt("db_port"),
			User:            v.GetString("db_user"),
			Password:        v.GetString("db_password"),
			Name:            v.GetString("db_name"),
			DSN:             v.GetString("db_dsn"),
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:       strings.TrimSpace(v.GetString("redis_addr")),
			Username:   v.GetString("redis_username"),
			Password:   v.GetString("redis_password"),
			DB:         v.GetInt("redis_db"),
			HistoryTTL: v.GetDuration("redis_history_ttl"),
		},
		Worker: WorkerConfig{
			Workers:   v.GetInt("log_workers"),
			QueueSize: v.GetInt("log_queue_size"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server_address must be configured")
	}
	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("db_host and db_name must be configured for mysql")
		}
	case "sqlite3":
		if c.Database.DSN == "" {
			return fmt.Errorf("db_dsn must be configured for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported db_driver: %s", c.Database.Driver)
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = DefaultGeminiBaseURL
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = DefaultGeminiModel
	}
	if c.Gemini.Timeout < 0 {
		return fmt.Errorf("gemini_timeout cannot be negative")
	}
	if c.Worker.Workers <= 0 {
		c.Worker.Workers = 1
	}
	if c.Worker.QueueSize <= 0 {
		c.Worker.QueueSize = 1
	}
	return nil
}

func normalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "sqlite" {
		return "sqlite3"
	}
	return driver
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
