package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/forest-density-service/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Ingest   IngestConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	CORSOrigins string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	StatsCacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

// IngestConfig holds the defaults applied to loads that do not set them.
// Root confines queued loads to one directory; the API does not accept
// queued loads while it is empty.
type IngestConfig struct {
	BatchSize     int
	Mode          string
	SRID          int
	DefaultSource string
	Root          string
}

type WorkerConfig struct {
	Enabled           bool
	ConsumerGroup     string
	StreamReadTimeout time.Duration
	MaxRetries        int
	ClaimMinIdle      time.Duration
	ShutdownTimeout   time.Duration
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper(), ".env")
}

// LoadFrom reads configuration through v. cmd/load binds its flags into the
// same viper instance, so flags take precedence over the environment.
func LoadFrom(v *viper.Viper, envFile string) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        v.GetString("API_HOST"),
			Port:        v.GetInt("API_PORT"),
			Env:         v.GetString("API_ENV"),
			CORSOrigins: v.GetString("API_CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxConns:        v.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			StatsCacheTTL: time.Duration(v.GetInt("STATS_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Ingest: IngestConfig{
			BatchSize:     v.GetInt("INGEST_BATCH_SIZE"),
			Mode:          v.GetString("INGEST_MODE"),
			SRID:          v.GetInt("INGEST_SRID"),
			DefaultSource: v.GetString("INGEST_DEFAULT_SOURCE"),
			Root:          v.GetString("INGEST_ROOT"),
		},
		Worker: WorkerConfig{
			Enabled:           v.GetBool("WORKER_ENABLED"),
			ConsumerGroup:     v.GetString("WORKER_CONSUMER_GROUP"),
			StreamReadTimeout: time.Duration(v.GetInt("WORKER_STREAM_READ_TIMEOUT")) * time.Millisecond,
			MaxRetries:        v.GetInt("WORKER_MAX_RETRIES"),
			ClaimMinIdle:      time.Duration(v.GetInt("WORKER_CLAIM_MIN_IDLE")) * time.Second,
			ShutdownTimeout:   time.Duration(v.GetInt("WORKER_SHUTDOWN_TIMEOUT")) * time.Second,
		},
	}

	if _, err := domain.ParseLoadMode(cfg.Ingest.Mode); err != nil {
		return nil, err
	}
	if cfg.Ingest.BatchSize <= 0 {
		return nil, &domain.ConfigurationError{Field: "INGEST_BATCH_SIZE", Reason: "must be a positive integer"}
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 8080)
	v.SetDefault("API_ENV", "development")
	v.SetDefault("API_CORS_ORIGINS", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 300)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 60)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STATS_CACHE_TTL", 3600)
	v.SetDefault("INGEST_BATCH_SIZE", domain.DefaultBatchSize)
	v.SetDefault("INGEST_MODE", string(domain.LoadModeStrict))
	v.SetDefault("INGEST_SRID", 4326)
	v.SetDefault("INGEST_DEFAULT_SOURCE", domain.DefaultSource)
	v.SetDefault("WORKER_CONSUMER_GROUP", "forest-density-loaders")
	v.SetDefault("WORKER_STREAM_READ_TIMEOUT", 5000)
	v.SetDefault("WORKER_MAX_RETRIES", 3)
	v.SetDefault("WORKER_CLAIM_MIN_IDLE", 300)
	v.SetDefault("WORKER_SHUTDOWN_TIMEOUT", 30)
}

// LoadDefaults returns the ingest defaults as load options.
func (c *Config) LoadDefaults() domain.LoadOptions {
	mode, _ := domain.ParseLoadMode(c.Ingest.Mode)
	return domain.LoadOptions{
		DefaultSource: c.Ingest.DefaultSource,
		BatchSize:     c.Ingest.BatchSize,
		SRID:          c.Ingest.SRID,
		Mode:          mode,
	}
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
