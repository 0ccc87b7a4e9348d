package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the workflow service
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Templates     TemplatesConfig     `mapstructure:"templates"`
	Reminder      ReminderConfig      `mapstructure:"reminder"`
	Log           LogConfig           `mapstructure:"log"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN            string `mapstructure:"dsn"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
	MigrationsDir  string `mapstructure:"migrations_dir"`
	Listen         bool   `mapstructure:"listen"`
}

// RedisConfig holds Redis configuration. An empty address selects the
// in-process notification queue.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	QueueKey string `mapstructure:"queue_key"`
}

// NotificationsConfig holds notification dispatch configuration
type NotificationsConfig struct {
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	Workers         int           `mapstructure:"workers"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	QueueSize       int           `mapstructure:"queue_size"`
}

// TemplatesConfig holds notification template configuration
type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

// ReminderConfig holds overdue reminder configuration. A zero interval disables reminders.
type ReminderConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// WorkflowConfig holds workflow engine configuration
type WorkflowConfig struct {
	Attempts int `mapstructure:"attempts"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.timeout", 30*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.migrate_on_start", true)
	v.SetDefault("database.migrations_dir", "")
	v.SetDefault("database.listen", true)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue_key", "workflow:notifications")

	v.SetDefault("notifications.dispatch_timeout", 2*time.Second)
	v.SetDefault("notifications.delivery_timeout", 5*time.Second)
	v.SetDefault("notifications.workers", 2)
	v.SetDefault("notifications.max_attempts", 3)
	v.SetDefault("notifications.queue_size", 1024)

	v.SetDefault("templates.dir", "")
	v.SetDefault("reminder.interval", 15*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("workflow.attempts", 2)
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. Environment variables are
// the upper-cased keys with dots replaced by underscores (SERVER_PORT,
// DATABASE_DSN, REDIS_ADDRESS, ...). With an empty path WORKFLOW_CONFIG is
// consulted; a missing file is only an error when a path was given.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("WORKFLOW_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &pathErr) || errors.As(err, &notFound)
			if explicit || !missing {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
			slog.Warn("config file not found, using defaults", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.DSN != "" && c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database max conns %d below min conns %d", c.Database.MaxConns, c.Database.MinConns)
	}

	if c.Notifications.Workers < 1 {
		return fmt.Errorf("notification workers must be at least 1, got %d", c.Notifications.Workers)
	}

	if c.Workflow.Attempts < 1 {
		return fmt.Errorf("workflow attempts must be at least 1, got %d", c.Workflow.Attempts)
	}

	if c.Reminder.Interval < 0 {
		return fmt.Errorf("invalid reminder interval: %s", c.Reminder.Interval)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses the configured log level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q", l.Level)
	}
	return level, nil
}

// Address returns the host:port the HTTP server listens on
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
