// Package config loads and validates ingestion configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cursor backends.
const (
	CursorBackendGCS    = "gcs"
	CursorBackendRedis  = "redis"
	CursorBackendLocal  = "local"
	CursorBackendMemory = "memory"
)

// Warehouse backends.
const (
	WarehouseBackendBigQuery = "bigquery"
	WarehouseBackendPostgres = "postgres"
	WarehouseBackendMemory   = "memory"
)

// History backends.
const (
	HistoryBackendNone     = "none"
	HistoryBackendMemory   = "memory"
	HistoryBackendPostgres = "postgres"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Source    SourceConfig    `mapstructure:"source"`
	Cursor    CursorConfig    `mapstructure:"cursor"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	History   HistoryConfig   `mapstructure:"history"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the HTTP trigger server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// AckMessage is the plain-text body returned after a successful run.
	AckMessage string `mapstructure:"ack_message"`
}

// SourceConfig describes the upstream REST API.
type SourceConfig struct {
	DefaultURL     string `mapstructure:"default_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// CursorConfig selects where the pagination cursor lives.
type CursorConfig struct {
	Backend   string `mapstructure:"backend"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	BaseDir   string `mapstructure:"base_dir"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
}

// WarehouseConfig selects the destination warehouse.
type WarehouseConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Location  string `mapstructure:"location"`
	Dataset   string `mapstructure:"dataset"`
	Table     string `mapstructure:"table"`
	DSN       string `mapstructure:"dsn"`
	MaxConns  int32  `mapstructure:"max_conns"`
}

// HistoryConfig controls where run history is kept.
type HistoryConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// PubSubConfig holds metadata for run notifications. An empty topic disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	// ProjectID enables Cloud Trace export.
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ack_message", "pokemon api test")
	v.SetDefault("source.default_url", "https://pokeapi.co/api/v2/pokemon?offset=0&limit=10")
	v.SetDefault("source.user_agent", "pokeapi-ingest/0.1")
	v.SetDefault("source.timeout_seconds", 30)
	v.SetDefault("source.respect_robots", false)
	v.SetDefault("cursor.backend", CursorBackendGCS)
	v.SetDefault("cursor.bucket", "pokeapitest")
	v.SetDefault("cursor.key", "key.json")
	v.SetDefault("cursor.base_dir", "data/cursor")
	v.SetDefault("cursor.redis_addr", "")
	v.SetDefault("cursor.redis_db", 0)
	v.SetDefault("warehouse.backend", WarehouseBackendBigQuery)
	v.SetDefault("warehouse.project_id", "")
	v.SetDefault("warehouse.location", "")
	v.SetDefault("warehouse.dataset", "pokemon_data")
	v.SetDefault("warehouse.table", "pokemons")
	v.SetDefault("warehouse.dsn", "")
	v.SetDefault("warehouse.max_conns", 4)
	v.SetDefault("history.backend", HistoryBackendNone)
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.table", "ingest_runs")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("telemetry.service_name", "pokeapi-ingest")
	v.SetDefault("telemetry.tracing_enabled", true)
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Source.DefaultURL == "" {
		return fmt.Errorf("source.default_url is required")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Cursor.Key == "" {
		return fmt.Errorf("cursor.key is required")
	}
	switch c.Cursor.Backend {
	case CursorBackendGCS:
		if c.Cursor.Bucket == "" {
			return fmt.Errorf("cursor.bucket is required for the gcs backend")
		}
	case CursorBackendRedis:
		if c.Cursor.RedisAddr == "" {
			return fmt.Errorf("cursor.redis_addr is required for the redis backend")
		}
	case CursorBackendLocal:
		if c.Cursor.BaseDir == "" {
			return fmt.Errorf("cursor.base_dir is required for the local backend")
		}
	case CursorBackendMemory:
	default:
		return fmt.Errorf("cursor.backend %q is not supported", c.Cursor.Backend)
	}
	if c.Warehouse.Dataset == "" || c.Warehouse.Table == "" {
		return fmt.Errorf("warehouse.dataset and warehouse.table are required")
	}
	switch c.Warehouse.Backend {
	case WarehouseBackendBigQuery:
		if c.Warehouse.ProjectID == "" {
			return fmt.Errorf("warehouse.project_id is required for the bigquery backend")
		}
	case WarehouseBackendPostgres:
		if c.Warehouse.DSN == "" {
			return fmt.Errorf("warehouse.dsn is required for the postgres backend")
		}
	case WarehouseBackendMemory:
	default:
		return fmt.Errorf("warehouse.backend %q is not supported", c.Warehouse.Backend)
	}
	switch c.History.Backend {
	case HistoryBackendNone, HistoryBackendMemory:
	case HistoryBackendPostgres:
		if c.History.DSN == "" {
			return fmt.Errorf("history.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("history.backend %q is not supported", c.History.Backend)
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required when pubsub.topic is set")
	}
	return nil
}

// SourceTimeout converts the upstream timeout into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}
