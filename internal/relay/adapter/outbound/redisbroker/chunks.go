package redisbroker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/redis/go-redis/v9"
)

type chunkChannel struct {
	b *Broker
}

func (c *chunkChannel) Push(ctx context.Context, key domain.TransferKey, frame domain.Frame, timeout time.Duration) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	keys := keysFor(key)
	encoded := frame.Encode()
	sentinel := "0"
	if frame.IsSentinel() {
		sentinel = "1"
	}

	timedOut, err := c.b.await(ctx, keys, timeout, func(ctx context.Context) (bool, error) {
		res, err := pushScript.Run(ctx, c.b.client,
			[]string{keys.meta, keys.queue, keys.bytes, keys.interrupt, keys.sealed},
			keys.marker, encoded, frame.Size(), c.b.opts.CapacityBytes, c.b.ttlMillis(), sentinel, keys.events,
		).Slice()
		if err != nil {
			return false, unavailable(err)
		}
		return pushResult(res)
	})
	if err != nil {
		return err
	}
	if timedOut {
		return domain.UploadIdleError()
	}
	return nil
}

func pushResult(res []interface{}) (bool, error) {
	if len(res) == 0 {
		return false, fmt.Errorf("push: empty script reply")
	}
	code, _ := res[0].(int64)
	switch code {
	case 1:
		return true, nil
	case 0:
		return false, nil
	case -2:
		reason := ""
		if len(res) > 1 {
			reason, _ = res[1].(string)
		}
		return false, domain.Interrupted(reason)
	case -3:
		return false, domain.SealedError()
	default:
		return false, domain.Interrupted("")
	}
}

func (c *chunkChannel) Pop(ctx context.Context, key domain.TransferKey, timeout time.Duration) (domain.Frame, error) {
	keys := keysFor(key)

	var frame domain.Frame
	timedOut, err := c.b.await(ctx, keys, timeout, func(ctx context.Context) (bool, error) {
		res, err := popScript.Run(ctx, c.b.client, []string{keys.meta, keys.queue, keys.bytes},
			keys.marker, keys.events).Result()
		if err != nil {
			return false, unavailable(err)
		}

		switch v := res.(type) {
		case string:
			f, err := domain.DecodeFrame([]byte(v))
			if err != nil {
				return false, fmt.Errorf("decode frame of %s: %w", key, err)
			}
			frame = f
			return true, nil
		case int64:
			if v < 0 {
				return false, domain.Interrupted("")
			}
			return false, nil
		default:
			return false, fmt.Errorf("pop: unexpected script reply %T", res)
		}
	})
	if err != nil {
		return domain.Frame{}, err
	}
	if timedOut {
		return domain.Frame{}, domain.DownloadIdleError()
	}
	return frame, nil
}

func (c *chunkChannel) Interrupt(ctx context.Context, key domain.TransferKey, reason string) error {
	keys := keysFor(key)
	err := interruptScript.Run(ctx, c.b.client, []string{keys.meta, keys.queue, keys.interrupt, keys.sealed},
		keys.marker, reason, domain.InterruptFrame(reason).Encode(), c.b.ttlMillis(), keys.events).Err()
	return unavailable(err)
}

func (c *chunkChannel) Buffered(ctx context.Context, key domain.TransferKey) (int64, int64, error) {
	keys := keysFor(key)

	pipe := c.b.client.Pipeline()
	llen := pipe.LLen(ctx, keys.queue)
	used := pipe.Get(ctx, keys.bytes)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, unavailable(err)
	}

	bytes, err := used.Int64()
	if errors.Is(err, redis.Nil) {
		bytes = 0
	} else if err != nil {
		return 0, 0, unavailable(err)
	}
	return llen.Val(), bytes, nil
}

func (c *chunkChannel) Release(ctx context.Context, key domain.TransferKey) error {
	keys := keysFor(key)
	err := c.b.client.Del(ctx, keys.queue, keys.bytes, keys.interrupt, keys.sealed, keys.ready).Err()
	return unavailable(err)
}
