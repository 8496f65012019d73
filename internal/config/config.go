package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Log      LogConfig      `mapstructure:"log"`
	Updater  UpdaterConfig  `mapstructure:"updater"`
	Locale   LocaleConfig   `mapstructure:"locale"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // "sqlite" or "postgres"
	DSN             string `mapstructure:"dsn"`               // Connection string
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // Maximum idle connections (Postgres)
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // Maximum open connections (Postgres)
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // Connection max lifetime in minutes (Postgres)
	LogLevel        string `mapstructure:"log_level"`         // gorm logger: "silent", "error", "warn", "info"
	AutoMigrate     bool   `mapstructure:"auto_migrate"`      // Apply pending migrations at startup
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"` // Secret for JWT signing
	TokenTTL  time.Duration `mapstructure:"token_ttl"`  // Lifetime of issued tokens
}

// QueueConfig holds job queue configuration
type QueueConfig struct {
	Type       string `mapstructure:"type"`        // "memory" or "valkey"
	ValkeyAddr string `mapstructure:"valkey_addr"` // Valkey address (if type=valkey), e.g., "localhost:6379"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string `mapstructure:"format"` // "json" or "text"
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
}

// UpdaterConfig holds self-update configuration
type UpdaterConfig struct {
	Enabled            bool          `mapstructure:"enabled"`              // Disable to turn the webapp updater off entirely
	SourceDir          string        `mapstructure:"source_dir"`           // git checkout of the console
	Remote             string        `mapstructure:"remote"`               // Remote to fetch and merge from
	RequirementsFile   string        `mapstructure:"requirements_file"`    // Relative to source_dir unless absolute
	PackageManager     string        `mapstructure:"package_manager"`      // "pip" or "uv"
	PackageManagerPath string        `mapstructure:"package_manager_path"` // Custom binary path (optional)
	MigrationsDir      string        `mapstructure:"migrations_dir"`       // Relative to source_dir; empty or missing uses the bundled migrations
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	CheckInterval      time.Duration `mapstructure:"check_interval"` // Background check period
	AutoCheck          bool          `mapstructure:"auto_check"`     // Run background checks
}

// LocaleConfig holds localization configuration
type LocaleConfig struct {
	Default string `mapstructure:"default"` // Language when the request expresses no preference
}

// Load reads configuration from config.yaml in the default locations and
// environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from the given file, or from the default
// locations when path is empty
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/webconsole/")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	// Environment variables override
	v.SetEnvPrefix("WEBCONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultMigrationsDir is where the console's own checkout keeps its
// migrations, relative to updater.source_dir.
const DefaultMigrationsDir = "internal/db/migrations"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "development")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./webconsole.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60) // 60 minutes
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("queue.type", "memory")
	v.SetDefault("queue.valkey_addr", "localhost:6379")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("updater.enabled", true)
	v.SetDefault("updater.source_dir", ".")
	v.SetDefault("updater.remote", "origin")
	v.SetDefault("updater.requirements_file", "requirements.txt")
	v.SetDefault("updater.package_manager", "pip")
	v.SetDefault("updater.migrations_dir", DefaultMigrationsDir)
	v.SetDefault("updater.fetch_timeout", 30*time.Second)
	v.SetDefault("updater.check_interval", 6*time.Hour)
	v.SetDefault("updater.auto_check", true)
	v.SetDefault("locale.default", "en")
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Queue.Type {
	case "memory", "valkey":
	default:
		return fmt.Errorf("unsupported queue type: %s", c.Queue.Type)
	}
	switch c.Updater.PackageManager {
	case "pip", "uv":
	default:
		return fmt.Errorf("unsupported package manager: %s", c.Updater.PackageManager)
	}
	if c.Updater.AutoCheck && c.Updater.CheckInterval <= 0 {
		return fmt.Errorf("updater.check_interval must be positive when auto_check is enabled")
	}
	return nil
}
