package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig   `mapstructure:"server"`
	Database  DatabaseConfig `mapstructure:"database"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Metadata  MetadataConfig `mapstructure:"metadata"`
	Query     QueryConfig    `mapstructure:"query"`
	Agent     AgentConfig    `mapstructure:"agent"`
	Export    ExportConfig   `mapstructure:"export"`
	Log       LogConfig      `mapstructure:"log"`
	JWTSecret string         `mapstructure:"jwt_secret"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for SQLite database files
}

// DSN returns the driver-specific data source name. A sqlite database named
// ":memory:" stays in memory.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		if d.Name == ":memory:" {
			return "file::memory:?cache=shared"
		}
		return d.Path + "/" + d.Name + ".db"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// RedisConfig points at the view-override store. An empty Addr keeps
// overrides in process memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

type MetadataConfig struct {
	EntitiesDir   string `mapstructure:"entities_dir"`
	LocalesDir    string `mapstructure:"locales_dir"`
	DefaultLocale string `mapstructure:"default_locale"`
}

type QueryConfig struct {
	DefaultSize           int  `mapstructure:"default_size"`
	CaseInsensitiveSearch bool `mapstructure:"case_insensitive_search"`
}

type AgentConfig struct {
	MaxTake     int    `mapstructure:"max_take"`
	DefaultTake int    `mapstructure:"default_take"`
	APIKeyHash  string `mapstructure:"api_key_hash"` // bcrypt; empty disables the agent endpoints
}

type ExportConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads app.yaml from file, or from the working directory and ../..
// when file is empty. A missing config file is not an error: defaults and
// environment variables (DATABASE_DRIVER, QUERY_DEFAULT_SIZE, ...) apply.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../..")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "metadesk")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("redis.ttl_hours", 0)
	v.SetDefault("metadata.entities_dir", "./entities")
	v.SetDefault("metadata.locales_dir", "./locales")
	v.SetDefault("metadata.default_locale", "pt-BR")
	v.SetDefault("query.default_size", 25)
	v.SetDefault("query.case_insensitive_search", false)
	v.SetDefault("agent.max_take", 200)
	v.SetDefault("agent.default_take", 50)
	v.SetDefault("export.max_rows", 5000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("jwt_secret", "changeme-secret")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Query.DefaultSize < 1 {
		return fmt.Errorf("config: query.default_size must be at least 1")
	}
	if c.Agent.DefaultTake < 1 || c.Agent.DefaultTake > c.Agent.MaxTake {
		return fmt.Errorf("config: agent.default_take must be within 1..agent.max_take")
	}
	return nil
}
