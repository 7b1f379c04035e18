package membroker

import (
	"context"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
)

type readinessChannel struct {
	b *Broker
}

func (r *readinessChannel) AwaitReady(ctx context.Context, key domain.TransferKey, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	s := r.b.shardFor(key.ID)
	expired := false
	for {
		s.mu.Lock()
		if !r.b.aliveLocked(s, key) {
			s.mu.Unlock()
			return domain.Interrupted("Transfer was cancelled.")
		}
		sess := s.sessionLocked(key)
		if sess.ready {
			s.mu.Unlock()
			return nil
		}
		changed := sess.changed
		s.mu.Unlock()

		// The state is checked once more after the deadline so a signal racing it still wins.
		if expired {
			return domain.ReceiverTimeoutError()
		}

		timedOut, ctxDone := wait(ctx.Done(), changed, timer.C)
		if ctxDone {
			return ctx.Err()
		}
		expired = timedOut
	}
}

func (r *readinessChannel) SignalReady(ctx context.Context, key domain.TransferKey) (bool, error) {
	s := r.b.shardFor(key.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !r.b.aliveLocked(s, key) {
		return false, nil
	}

	sess := s.sessionLocked(key)
	if sess.ready {
		return false, domain.ReceiverBoundError()
	}
	sess.ready = true
	sess.notify()
	return true, nil
}

func (r *readinessChannel) Close(ctx context.Context, key domain.TransferKey) error {
	s := r.b.shardFor(key.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[key]; ok {
		sess.ready = false
		sess.notify()
		if len(sess.queue) == 0 && sess.interrupt == nil {
			delete(s.sessions, key)
		}
	}
	return nil
}

func (r *readinessChannel) IsReady(ctx context.Context, key domain.TransferKey) (bool, error) {
	s := r.b.shardFor(key.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	return ok && sess.ready, nil
}
