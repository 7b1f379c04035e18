package config

import (
	"testing"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/stretchr/testify/assert"
)

func TestRelayConfig_QueueCapacity(t *testing.T) {
	tests := []struct {
		name     string
		cfg      RelayConfig
		expected int64
	}{
		{name: "configured", cfg: RelayConfig{ChunkSize: 1024, QueueCapacityBytes: 8192}, expected: 8192},
		{name: "below one chunk", cfg: RelayConfig{ChunkSize: 1024, QueueCapacityBytes: 100}, expected: 1024},
		{name: "unset", cfg: RelayConfig{ChunkSize: 1024}, expected: domain.DefaultQueueCapacity},
		{name: "unset chunk size", cfg: RelayConfig{QueueCapacityBytes: 100}, expected: domain.MaxChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cfg.QueueCapacity())
		})
	}
}

func TestRelayConfig_EffectiveChunkSize(t *testing.T) {
	assert.Equal(t, domain.MaxChunkSize, RelayConfig{}.EffectiveChunkSize())
	assert.Equal(t, domain.MaxChunkSize, RelayConfig{ChunkSize: domain.MaxChunkSize * 2}.EffectiveChunkSize())
	assert.Equal(t, 700, RelayConfig{ChunkSize: 700}.EffectiveChunkSize())
}

func TestRelayConfig_Durations(t *testing.T) {
	cfg := RelayConfig{ReceiverTimeoutMS: 1500, CleanupDelayMS: -1}
	assert.Equal(t, 1500*time.Millisecond, cfg.ReceiverTimeout())
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout())
	assert.Equal(t, time.Duration(0), cfg.CleanupDelay())
}

func TestDefaultConfig_CapacityHoldsAChunk(t *testing.T) {
	cfg := DefaultConfig()
	assert.GreaterOrEqual(t, cfg.Relay.QueueCapacity(), int64(cfg.Relay.EffectiveChunkSize()))
}
