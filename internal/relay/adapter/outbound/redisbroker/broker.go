// Package redisbroker shares transfer state between relay instances through Redis.
package redisbroker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	"github.com/anthanhphan/go-transit-relay/pkg/resilience"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "transfer"

// Options tunes a Broker.
type Options struct {
	// CapacityBytes bounds the data buffered per transfer.
	CapacityBytes int64
	// RecordTTL is applied to session keys and re-applied to the record on stream activity.
	RecordTTL time.Duration
	// PollInterval bounds how long a blocked wait goes without re-checking liveness.
	PollInterval time.Duration
	// Breaker guards metadata calls. Optional.
	Breaker *resilience.CircuitBreaker
}

// Broker implements port.Broker on a single Redis, Sentinel or Cluster deployment.
type Broker struct {
	client redis.UniversalClient
	opts   Options

	metadata  *metadataStore
	readiness *readinessChannel
	chunks    *chunkChannel
}

var _ port.Broker = (*Broker)(nil)

func New(client redis.UniversalClient, opts Options) *Broker {
	if opts.CapacityBytes <= 0 {
		opts.CapacityBytes = domain.DefaultQueueCapacity
	}
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = time.Hour
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}

	b := &Broker{client: client, opts: opts}
	b.metadata = &metadataStore{b: b}
	b.readiness = &readinessChannel{b: b}
	b.chunks = &chunkChannel{b: b}
	return b
}

func (b *Broker) Metadata() port.MetadataStore    { return b.metadata }
func (b *Broker) Readiness() port.ReadinessChannel { return b.readiness }
func (b *Broker) Chunks() port.ChunkChannel        { return b.chunks }

func (b *Broker) Close() error {
	return b.client.Close()
}

func metaKey(id domain.TransferID) string {
	return fmt.Sprintf("%s:{%s}:meta", keyPrefix, id)
}

// sessionKeys names every key and channel belonging to one session.
type sessionKeys struct {
	meta      string
	ready     string
	queue     string
	bytes     string
	interrupt string
	sealed    string
	events    string
	marker    string
}

func keysFor(key domain.TransferKey) sessionKeys {
	base := fmt.Sprintf("%s:{%s}:%s", keyPrefix, key.ID, key.Session)
	return sessionKeys{
		meta:      metaKey(key.ID),
		ready:     base + ":ready",
		queue:     base + ":queue",
		bytes:     base + ":bytes",
		interrupt: base + ":interrupt",
		sealed:    base + ":sealed",
		events:    base + ":events",
		marker:    fmt.Sprintf(`"session":%q`, key.Session),
	}
}

func (b *Broker) ttlMillis() int64 {
	return b.opts.RecordTTL.Milliseconds()
}

// unavailable converts a Redis failure into the client-facing error.
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	var te *domain.TransferError
	if errors.As(err, &te) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.NewTransferError(domain.KindUnavailable, "Relay is temporarily unavailable.",
		fmt.Errorf("%w: %w", domain.ErrBrokerUnavailable, err))
}

// IsBrokerFailure is the breaker predicate: only infrastructure errors count.
func IsBrokerFailure(err error) bool {
	return err != nil && domain.KindOf(err) == domain.KindUnavailable
}

func (b *Broker) guard(ctx context.Context, fn func(context.Context) error) error {
	if b.opts.Breaker == nil {
		return fn(ctx)
	}
	err := b.opts.Breaker.Execute(ctx, fn)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return unavailable(err)
	}
	return err
}

// await runs check until it reports done, re-running it on every session event and every poll tick.
// The subscription is taken before the re-check so a wakeup between the two is not lost.
func (b *Broker) await(ctx context.Context, keys sessionKeys, timeout time.Duration, check func(context.Context) (bool, error)) (timedOut bool, err error) {
	done, err := check(ctx)
	if done || err != nil {
		return false, err
	}

	sub := b.client.Subscribe(ctx, keys.events)
	defer func() { _ = sub.Close() }()
	if _, err := sub.Receive(ctx); err != nil {
		return false, unavailable(err)
	}
	events := sub.Channel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if done || err != nil {
			return false, err
		}

		select {
		case <-events:
		case <-ticker.C:
		case <-timer.C:
			// A wakeup racing the deadline still counts.
			done, err := check(ctx)
			if done || err != nil {
				return false, err
			}
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// alive reports whether the record still names the session of keys.
func (b *Broker) alive(ctx context.Context, keys sessionKeys) (bool, error) {
	meta, err := b.client.Get(ctx, keys.meta).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return strings.Contains(meta, keys.marker), nil
}
