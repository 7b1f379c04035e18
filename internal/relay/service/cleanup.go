package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	"github.com/anthanhphan/gosdk/logger"
)

// cleaner purges the broker state of finished sessions.
// Delayed cleanups are tracked so Shutdown can run them early.
type cleaner struct {
	broker  port.Broker
	janitor Janitor
	timeout time.Duration

	mu      sync.Mutex
	pending map[domain.TransferKey]*time.Timer
}

func newCleaner(broker port.Broker, janitor Janitor, timeout time.Duration) *cleaner {
	return &cleaner{
		broker:  broker,
		janitor: janitor,
		timeout: timeout,
		pending: make(map[domain.TransferKey]*time.Timer),
	}
}

// schedule purges key after delay. A zero delay purges synchronously.
func (c *cleaner) schedule(key domain.TransferKey, delay time.Duration) {
	if delay <= 0 {
		c.run(key)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[key]; ok {
		return
	}
	c.pending[key] = time.AfterFunc(delay, func() { c.dispatch(key) })
}

func (c *cleaner) dispatch(key domain.TransferKey) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()

	if c.janitor == nil {
		c.run(key)
		return
	}
	if err := c.janitor.Submit(context.Background(), func() { c.run(key) }); err != nil {
		logger.Warnw("Janitor rejected cleanup, running inline", "transfer_id", key.ID.String(), "error", err.Error())
		c.run(key)
	}
}

// run deletes the record first: every later call of the dead session then sees it as gone.
func (c *cleaner) run(key domain.TransferKey) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var errs []error
	if err := c.broker.Metadata().Delete(ctx, key); err != nil {
		errs = append(errs, err)
	}
	if err := c.broker.Readiness().Close(ctx, key); err != nil {
		errs = append(errs, err)
	}
	if err := c.broker.Chunks().Release(ctx, key); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		logger.Errorw("Transfer cleanup failed", "transfer_id", key.ID.String(), "session", key.Session, "error", err.Error())
		return
	}
	logger.Debugw("Transfer cleaned up", "transfer_id", key.ID.String(), "session", key.Session)
}

// flush cancels pending timers and runs their cleanups now.
func (c *cleaner) flush(ctx context.Context) error {
	c.mu.Lock()
	keys := make([]domain.TransferKey, 0, len(c.pending))
	for key, timer := range c.pending {
		if timer.Stop() {
			keys = append(keys, key)
		}
	}
	c.pending = make(map[domain.TransferKey]*time.Timer)
	c.mu.Unlock()

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.run(key)
	}
	return nil
}
