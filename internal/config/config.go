// Package config loads the service configuration.
//
// Values are layered: struct defaults, then an optional YAML file
// (CONFIG_PATH or ./config.yaml), then environment variables. A .env file
// in the working directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config location.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	JWT      JWTConfig      `koanf:"jwt"`
	Mail     MailConfig     `koanf:"mail"`
	Notify   NotifyConfig   `koanf:"notify"`
	Chat     ChatConfig     `koanf:"chat"`
	Logging  LoggingConfig  `koanf:"log"`
}

type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

// RedisConfig configures the token revocation store. An empty Addr keeps
// revocations in memory.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type JWTConfig struct {
	Secret     string        `koanf:"secret"`
	Expiration time.Duration `koanf:"expiration"`
}

// MailConfig configures the SMTP transport. With Host empty notifications
// are only logged.
type MailConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	From     string        `koanf:"from"`
	Locale   string        `koanf:"locale"`
	Timeout  time.Duration `koanf:"timeout"`
}

type NotifyConfig struct {
	Workers   int           `koanf:"workers"`
	QueueSize int           `koanf:"queue_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

type ChatConfig struct {
	SendRate  float64 `koanf:"send_rate"`
	SendBurst int     `koanf:"send_burst"`
	SendQueue int     `koanf:"send_queue"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used before any file or env override.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			DSN: "host=localhost user=user password=password dbname=camerashop port=5432 sslmode=disable",
		},
		JWT: JWTConfig{
			Expiration: 20 * 24 * time.Hour,
		},
		Mail: MailConfig{
			Port:    587,
			From:    "no-reply@camerashop.com",
			Locale:  "en",
			Timeout: 15 * time.Second,
		},
		Notify: NotifyConfig{
			Workers:   2,
			QueueSize: 128,
			Timeout:   30 * time.Second,
		},
		Chat: ChatConfig{
			SendRate:  5,
			SendBurst: 10,
			SendQueue: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .env, the optional YAML file and the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if origins, ok := k.Get("server.allowed_origins").(string); ok && origins != "" {
		if err := k.Set("server.allowed_origins", splitList(origins)); err != nil {
			return nil, fmt.Errorf("set allowed origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret (JWT_SECRET) is required"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn (DATABASE_DSN) is required"))
	}
	if c.Notify.Workers < 1 {
		errs = append(errs, errors.New("notify.workers must be at least 1"))
	}
	if c.Chat.SendBurst < 1 {
		errs = append(errs, errors.New("chat.send_burst must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// envKey maps SECTION_KEY_PART to section.key_part. LOG_LEVEL becomes
// log.level, SERVER_ALLOWED_ORIGINS becomes server.allowed_origins.
func envKey(key string) string {
	key = strings.ToLower(key)
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	switch section {
	case "server", "database", "redis", "jwt", "mail", "notify", "chat", "log":
		return section + "." + rest
	}
	return key
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
