package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/gosdk/conflux"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds relay configuration
type Config struct {
	Server ServerConfig  `json:"server" yaml:"server"`
	App    AppConfig     `json:"app" yaml:"app"`
	Relay  RelayConfig   `json:"relay" yaml:"relay"`
	Broker BrokerConfig  `json:"broker" yaml:"broker"`
	Redis  RedisConfig   `json:"redis" yaml:"redis"`
	Logger logger.Config `json:"logger" yaml:"logger"`
}

type ServerConfig struct {
	Addr              string `json:"addr" yaml:"addr"`
	MaxHTTPUploadSize int64  `json:"max_http_upload_size" yaml:"max_http_upload_size"`
	WSBufferSize      int    `json:"ws_buffer_size" yaml:"ws_buffer_size"`
}

type AppConfig struct {
	NodeID int64 `json:"node_id" yaml:"node_id"`
}

type RelayConfig struct {
	ChunkSize          int   `json:"chunk_size" yaml:"chunk_size"`
	QueueCapacityBytes int64 `json:"queue_capacity_bytes" yaml:"queue_capacity_bytes"`
	ReceiverTimeoutMS  int   `json:"receiver_timeout_ms" yaml:"receiver_timeout_ms"`
	IdleTimeoutMS      int   `json:"idle_timeout_ms" yaml:"idle_timeout_ms"`
	RecordTTLMS        int   `json:"record_ttl_ms" yaml:"record_ttl_ms"`
	CleanupDelayMS     int   `json:"cleanup_delay_ms" yaml:"cleanup_delay_ms"`
	CleanupTimeoutMS   int   `json:"cleanup_timeout_ms" yaml:"cleanup_timeout_ms"`
	CleanupWorkers     int   `json:"cleanup_workers" yaml:"cleanup_workers"`
	PollIntervalMS     int   `json:"poll_interval_ms" yaml:"poll_interval_ms"`
}

type BrokerConfig struct {
	Backend                 string `json:"backend" yaml:"backend"` // "redis", "memory"
	BreakerFailureThreshold int    `json:"breaker_failure_threshold" yaml:"breaker_failure_threshold"`
	BreakerOpenTimeoutMS    int    `json:"breaker_open_timeout_ms" yaml:"breaker_open_timeout_ms"`
}

type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			MaxHTTPUploadSize: 100 * 1024 * 1024, // 100MiB
			WSBufferSize:      64 * 1024,
		},
		App: AppConfig{
			NodeID: 1,
		},
		Relay: RelayConfig{
			ChunkSize:          64 * 1024,   // 64KiB
			QueueCapacityBytes: 1024 * 1024, // 1MiB
			ReceiverTimeoutMS:  300000,
			IdleTimeoutMS:      30000,
			RecordTTLMS:        3600000,
			CleanupDelayMS:     2000,
			CleanupTimeoutMS:   30000,
			CleanupWorkers:     4,
			PollIntervalMS:     250,
		},
		Broker: BrokerConfig{
			Backend:                 BackendRedis,
			BreakerFailureThreshold: 5,
			BreakerOpenTimeoutMS:    5000,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logger: logger.Config{
			LogLevel:    logger.LevelInfo,
			LogEncoding: logger.EncodingJSON,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	configPath := path
	if configPath == "" {
		env := os.Getenv("ENV")
		if env == "" {
			env = "local"
		}
		configPath = filepath.Join("internal", "relay", "config", env+".yaml")
	}

	cfg := DefaultConfig()

	parsedCfg, err := conflux.ParseConfig(configPath, cfg)
	if err != nil {
		// The logger is not initialised yet at this point.
		log.Printf("Config file not found or failed to parse, using defaults if file not specified. Path: %s, Error: %v", configPath, err)
		if path != "" {
			return nil, err
		}
		return cfg, nil
	}

	return parsedCfg, nil
}

// MustLoad loads configuration or exits on error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// ReceiverTimeout bounds AWAITING_RECEIVER.
func (c RelayConfig) ReceiverTimeout() time.Duration {
	return millis(c.ReceiverTimeoutMS, 5*time.Minute)
}

// IdleTimeout bounds a single wait for data or capacity while STREAMING.
func (c RelayConfig) IdleTimeout() time.Duration {
	return millis(c.IdleTimeoutMS, 30*time.Second)
}

// RecordTTL bounds orphaned records when a sender vanishes before any receiver connects.
func (c RelayConfig) RecordTTL() time.Duration {
	return millis(c.RecordTTLMS, time.Hour)
}

// CleanupDelay lets the partner read the interrupt reason before state is purged.
// Zero is allowed and means immediate cleanup.
func (c RelayConfig) CleanupDelay() time.Duration {
	if c.CleanupDelayMS < 0 {
		return 0
	}
	return time.Duration(c.CleanupDelayMS) * time.Millisecond
}

// CleanupTimeout bounds one cleanup run.
func (c RelayConfig) CleanupTimeout() time.Duration {
	return millis(c.CleanupTimeoutMS, 30*time.Second)
}

// PollInterval is how often blocked broker waits re-check liveness.
func (c RelayConfig) PollInterval() time.Duration {
	return millis(c.PollIntervalMS, 250*time.Millisecond)
}

// EffectiveChunkSize clamps the configured chunk size to the frame limit.
func (c RelayConfig) EffectiveChunkSize() int {
	if c.ChunkSize <= 0 {
		return domain.MaxChunkSize
	}
	return min(c.ChunkSize, domain.MaxChunkSize)
}

// QueueCapacity is the per-transfer byte budget. It never drops below one chunk,
// otherwise every frame would overrun it.
func (c RelayConfig) QueueCapacity() int64 {
	capacity := c.QueueCapacityBytes
	if capacity <= 0 {
		capacity = domain.DefaultQueueCapacity
	}
	return max(capacity, int64(c.EffectiveChunkSize()))
}

// BreakerOpenTimeout is how long the broker breaker stays open.
func (c BrokerConfig) BreakerOpenTimeout() time.Duration {
	return millis(c.BreakerOpenTimeoutMS, 5*time.Second)
}
