package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/gosdk/logger"
)

const (
	sideSender   = "sender"
	sideReceiver = "receiver"
)

// session is one side's view of a Transfer Session.
// Both sides drive their own copy of the state machine; they only meet through the broker.
type session struct {
	core   *RelayServiceImpl
	record domain.TransferRecord
	side   string

	mu    sync.Mutex
	state domain.State
	err   error

	cleanupOnce sync.Once
}

func newSession(core *RelayServiceImpl, record domain.TransferRecord, side string) *session {
	return &session{
		core:   core,
		record: record,
		side:   side,
		state:  domain.StateCreated,
	}
}

func (s *session) Record() domain.TransferRecord {
	return s.record
}

func (s *session) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) key() domain.TransferKey {
	return s.record.Key()
}

// transition moves to the next state if the lifecycle allows it.
func (s *session) transition(to domain.State) bool {
	s.mu.Lock()
	from := s.state
	if !domain.CanTransition(from, to) {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()

	logger.Debugw("Transfer state changed",
		"transfer_id", s.record.ID.String(),
		"side", s.side,
		"from", from.String(),
		"to", to.String(),
	)
	return true
}

// require returns the terminal error when the session already ended, or a not-streaming error.
func (s *session) require(want domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == want {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	return domain.NewTransferError(domain.KindTransport, "Transfer is not streaming.", domain.ErrNotStreaming)
}

// complete ends the session successfully.
func (s *session) complete(cleanup bool) {
	if !s.transition(domain.StateCompleted) {
		return
	}
	logger.Infow("Transfer completed",
		"transfer_id", s.record.ID.String(),
		"side", s.side,
		"file", s.record.File.String(),
	)
	if cleanup {
		s.cleanup(0)
	}
}

// fail moves to FAILED or EXPIRED, tells the partner unless it already knows, and purges the session.
// It returns err so callers can return s.fail(...) directly.
func (s *session) fail(ctx context.Context, to domain.State, err error, notifyPartner bool) error {
	if !s.transition(to) {
		return err
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	logger.Warnw("Transfer ended",
		"transfer_id", s.record.ID.String(),
		"side", s.side,
		"state", to.String(),
		"error", err.Error(),
	)

	var delay time.Duration
	if notifyPartner {
		s.interruptPartner(ctx, err)
		delay = s.core.cleanupDelay()
	}
	s.cleanup(delay)
	return err
}

func (s *session) interruptPartner(ctx context.Context, cause error) {
	reason := "Transfer was interrupted."
	var te *domain.TransferError
	if errors.As(cause, &te) {
		reason = te.Reason
	}

	// The request context is usually already cancelled when the local side drops.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.core.cfg.Relay.CleanupTimeout())
	defer cancel()

	if err := s.core.broker.Chunks().Interrupt(ctx, s.key(), reason); err != nil {
		logger.Errorw("Failed to interrupt partner",
			"transfer_id", s.record.ID.String(),
			"side", s.side,
			"error", err.Error(),
		)
	}
}

func (s *session) cleanup(delay time.Duration) {
	s.cleanupOnce.Do(func() {
		s.core.cleaner.schedule(s.key(), delay)
	})
}

// abort is the shared Abort of both sides.
func (s *session) abort(ctx context.Context, reason string) {
	if s.State().Terminal() {
		return
	}
	_ = s.fail(ctx, domain.StateFailed, domain.Interrupted(reason), true)
}

// partnerGone reports whether err already means the stream was ended by the other side.
func partnerGone(err error) bool {
	return errors.Is(err, domain.ErrInterrupted) || errors.Is(err, domain.ErrNotStreaming)
}
