package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration shared by every binary
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Data      DataConfig      `mapstructure:"data"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the optional SQL store
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DataConfig selects where the dashboard dataset comes from
type DataConfig struct {
	// Source is "csv" or "database".
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
}

// DashboardConfig holds presentation defaults
type DashboardConfig struct {
	DefaultYearFrom int `mapstructure:"default_year_from"`
	DefaultYearTo   int `mapstructure:"default_year_to"`
}

const (
	SourceCSV      = "csv"
	SourceDatabase = "database"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "climate")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "climate")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "climate.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("logging.level", "info")

	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.path", "climate-change_lka_cleaned.csv")

	v.SetDefault("dashboard.default_year_from", 1990)
	v.SetDefault("dashboard.default_year_to", 2020)
}

// LoadConfig loads configuration from defaults, an optional YAML file and the environment.
// Precedence: env (CLIMATE_SERVER_PORT, ...) > config file > defaults.
// An empty cfgFile looks for ./climate.yaml and silently skips it when absent.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLIMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("climate")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Data.Source {
	case SourceCSV:
		if strings.TrimSpace(c.Data.Path) == "" {
			return fmt.Errorf("data.path is required when data.source is %q", SourceCSV)
		}
	case SourceDatabase:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("data.source must be %q or %q, got %q", SourceCSV, SourceDatabase, c.Data.Source)
	}

	if c.Dashboard.DefaultYearFrom > c.Dashboard.DefaultYearTo {
		return fmt.Errorf("dashboard.default_year_from (%d) must not exceed dashboard.default_year_to (%d)",
			c.Dashboard.DefaultYearFrom, c.Dashboard.DefaultYearTo)
	}
	return nil
}

// Validate checks the database section on its own; the seeding tools need it
// even when the dashboard reads a CSV.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "postgres":
		if d.Host == "" || d.Database == "" {
			return fmt.Errorf("database.host and database.database are required for postgres")
		}
	case "sqlite3":
		if d.Path == "" {
			return fmt.Errorf("database.path is required for sqlite3")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite3, got %q", d.Driver)
	}
	if d.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be positive, got %d", d.MaxOpenConns)
	}
	return nil
}
