package membroker

import (
	"context"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
)

type chunkChannel struct {
	b *Broker
}

func (c *chunkChannel) Push(ctx context.Context, key domain.TransferKey, frame domain.Frame, timeout time.Duration) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s := c.b.shardFor(key.ID)
	for {
		s.mu.Lock()
		if !c.b.aliveLocked(s, key) {
			s.mu.Unlock()
			return domain.Interrupted("")
		}
		sess := s.sessionLocked(key)
		if sess.interrupt != nil {
			reason := *sess.interrupt
			s.mu.Unlock()
			return domain.Interrupted(reason)
		}
		if sess.sealed {
			s.mu.Unlock()
			return domain.SealedError()
		}

		// A lone oversized frame is admitted into an empty queue so it cannot deadlock.
		size := frame.Size()
		if size == 0 || sess.bytes == 0 || sess.bytes+size <= c.b.capacity {
			sess.queue = append(sess.queue, frame)
			sess.bytes += size
			sess.sealed = frame.IsSentinel()
			c.b.touchLocked(s, key)
			sess.notify()
			s.mu.Unlock()
			return nil
		}
		changed := sess.changed
		s.mu.Unlock()

		timedOut, ctxDone := wait(ctx.Done(), changed, timer.C)
		if ctxDone {
			return ctx.Err()
		}
		if timedOut {
			return domain.UploadIdleError()
		}
	}
}

func (c *chunkChannel) Pop(ctx context.Context, key domain.TransferKey, timeout time.Duration) (domain.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s := c.b.shardFor(key.ID)
	for {
		s.mu.Lock()
		sess, ok := s.sessions[key]
		if ok && len(sess.queue) > 0 {
			frame := sess.queue[0]
			sess.queue[0] = domain.Frame{}
			sess.queue = sess.queue[1:]
			sess.bytes -= frame.Size()
			sess.notify()
			s.mu.Unlock()
			return frame, nil
		}
		if !c.b.aliveLocked(s, key) {
			s.mu.Unlock()
			return domain.Frame{}, domain.Interrupted("")
		}
		changed := s.sessionLocked(key).changed
		s.mu.Unlock()

		timedOut, ctxDone := wait(ctx.Done(), changed, timer.C)
		if ctxDone {
			return domain.Frame{}, ctx.Err()
		}
		if timedOut {
			return domain.Frame{}, domain.DownloadIdleError()
		}
	}
}

func (c *chunkChannel) Interrupt(ctx context.Context, key domain.TransferKey, reason string) error {
	s := c.b.shardFor(key.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !c.b.aliveLocked(s, key) {
		return nil
	}

	sess := s.sessionLocked(key)
	if sess.interrupt == nil {
		sess.interrupt = &reason
	}
	if !sess.sealed {
		sess.queue = append(sess.queue, domain.InterruptFrame(reason))
		sess.sealed = true
	}
	sess.notify()
	return nil
}

func (c *chunkChannel) Buffered(ctx context.Context, key domain.TransferKey) (int64, int64, error) {
	s := c.b.shardFor(key.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return 0, 0, nil
	}
	return int64(len(sess.queue)), sess.bytes, nil
}

func (c *chunkChannel) Release(ctx context.Context, key domain.TransferKey) error {
	s := c.b.shardFor(key.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropSessionLocked(key)
	return nil
}
