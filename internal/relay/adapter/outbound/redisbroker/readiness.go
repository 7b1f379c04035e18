package redisbroker

import (
	"context"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
)

type readinessChannel struct {
	b *Broker
}

func (r *readinessChannel) AwaitReady(ctx context.Context, key domain.TransferKey, timeout time.Duration) error {
	keys := keysFor(key)

	timedOut, err := r.b.await(ctx, keys, timeout, func(ctx context.Context) (bool, error) {
		n, err := r.b.client.Exists(ctx, keys.ready).Result()
		if err != nil {
			return false, unavailable(err)
		}
		if n > 0 {
			return true, nil
		}

		alive, err := r.b.alive(ctx, keys)
		if err != nil {
			return false, err
		}
		if !alive {
			return false, domain.Interrupted("Transfer was cancelled.")
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if timedOut {
		return domain.ReceiverTimeoutError()
	}
	return nil
}

func (r *readinessChannel) SignalReady(ctx context.Context, key domain.TransferKey) (bool, error) {
	keys := keysFor(key)

	res, err := signalReadyScript.Run(ctx, r.b.client, []string{keys.meta, keys.ready},
		keys.marker, r.b.ttlMillis(), keys.events).Int64()
	if err != nil {
		return false, unavailable(err)
	}

	switch res {
	case 1:
		return true, nil
	case 0:
		return false, domain.ReceiverBoundError()
	default:
		return false, nil
	}
}

func (r *readinessChannel) IsReady(ctx context.Context, key domain.TransferKey) (bool, error) {
	n, err := r.b.client.Exists(ctx, keysFor(key).ready).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (r *readinessChannel) Close(ctx context.Context, key domain.TransferKey) error {
	keys := keysFor(key)
	err := closeReadinessScript.Run(ctx, r.b.client, []string{keys.ready}, keys.events).Err()
	return unavailable(err)
}
