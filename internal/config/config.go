package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// StoreConfig holds DynamoDB configuration
type StoreConfig struct {
	TableName string `mapstructure:"table_name"`
	Region    string `mapstructure:"region"`
	// Endpoint overrides the service endpoint, e.g. for a local DynamoDB
	Endpoint string `mapstructure:"endpoint"`
}

// MigrationConfig holds the migration policy knobs the source system
// hard-coded: years, pick capacity, and the fixed timestamp stamped onto
// migrated records.
type MigrationConfig struct {
	SourceYear      int `mapstructure:"source_year"`
	DestinationYear int `mapstructure:"destination_year"`
	CapacityLimit   int `mapstructure:"capacity_limit"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

// LimiterConfig holds store admission limits
type LimiterConfig struct {
	MaxInFlight int `mapstructure:"max_in_flight"`
	// RequestsPerSecond caps store throughput; zero means uncapped
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RetryConfig holds retry policy configuration
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// CheckpointConfig holds checkpoint configuration
type CheckpointConfig struct {
	Path string `mapstructure:"path"`
	// SaveEvery is the checkpoint cadence in completed players. Crash
	// recovery may re-process up to SaveEvery-1 players; pick writes are
	// idempotent so that is safe.
	SaveEvery int `mapstructure:"save_every"`
}

// MigratorConfig holds configuration for the migrator binary
type MigratorConfig struct {
	BaseConfig `mapstructure:",squash"`
	Store      StoreConfig      `mapstructure:"store"`
	Migration  MigrationConfig  `mapstructure:"migration"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Limiter    LimiterConfig    `mapstructure:"limiter"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
}

// LoadMigratorConfig loads configuration for the migrator
func LoadMigratorConfig(configFile string, envPath string) (*MigratorConfig, error) {
	v := configureViper("migrator", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("store.table_name", "Deadpool")
	v.SetDefault("store.region", "us-east-1")
	v.SetDefault("migration.source_year", 2025)
	v.SetDefault("migration.destination_year", 2026)
	v.SetDefault("migration.capacity_limit", 20)
	v.SetDefault("worker.pool_size", 3)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("limiter.max_in_flight", 5)
	v.SetDefault("limiter.requests_per_second", 0)
	v.SetDefault("limiter.burst", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "30s")
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown", "60s")
	v.SetDefault("checkpoint.path", "migration_checkpoint.json")
	v.SetDefault("checkpoint.save_every", 3)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg MigratorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *MigratorConfig) error {
	if cfg.Store.TableName == "" {
		return errors.New("store.table_name is required")
	}
	if cfg.Migration.SourceYear >= cfg.Migration.DestinationYear {
		return fmt.Errorf("migration.source_year (%d) must precede migration.destination_year (%d)",
			cfg.Migration.SourceYear, cfg.Migration.DestinationYear)
	}
	if cfg.Migration.CapacityLimit <= 0 {
		return errors.New("migration.capacity_limit must be positive")
	}
	if cfg.Worker.PoolSize <= 0 {
		return errors.New("worker.pool_size must be positive")
	}
	if cfg.Limiter.MaxInFlight <= 0 {
		return errors.New("limiter.max_in_flight must be positive")
	}
	if cfg.Limiter.RequestsPerSecond < 0 {
		return errors.New("limiter.requests_per_second must not be negative")
	}
	if cfg.Checkpoint.SaveEvery <= 0 {
		return errors.New("checkpoint.save_every must be positive")
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("DEADPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// This is required for viper to map env vars to config struct fields when
// no config file exists.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Store
		"store.table_name",
		"store.region",
		"store.endpoint",
		// Migration
		"migration.source_year",
		"migration.destination_year",
		"migration.capacity_limit",
		// Worker
		"worker.pool_size",
		"worker.queue_size",
		// Limiter
		"limiter.max_in_flight",
		"limiter.requests_per_second",
		"limiter.burst",
		// Retry
		"retry.max_attempts",
		"retry.base_delay",
		"retry.max_delay",
		// Breaker
		"breaker.failure_threshold",
		"breaker.cooldown",
		// Checkpoint
		"checkpoint.path",
		"checkpoint.save_every",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// MigrationTimestamp is the fixed timestamp stamped onto every migrated
// record, midnight UTC on January 1st of the destination year.
func (c *MigrationConfig) MigrationTimestamp() string {
	return fmt.Sprintf("%d-01-01T00:00:00.000Z", c.DestinationYear)
}
