package port

import (
	"context"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
)

//go:generate mockgen -destination=../service/mocks/broker_mock.go -package=mocks -source=broker.go

// MetadataStore keeps one self-expiring TransferRecord per TransferID.
type MetadataStore interface {
	// Create stores the record only if the ID is unclaimed. Returns domain.ErrTransferExists otherwise.
	Create(ctx context.Context, record domain.TransferRecord, ttl time.Duration) error

	// Get returns the record, or domain.ErrTransferNotFound for missing and expired IDs.
	Get(ctx context.Context, id domain.TransferID) (*domain.TransferRecord, error)

	// Delete removes the record only if it still belongs to the given session. Idempotent.
	Delete(ctx context.Context, key domain.TransferKey) error
}

// ReadinessChannel is the one-shot "receiver is ready" signal of a session.
type ReadinessChannel interface {
	// AwaitReady blocks until the receiver signals or the timeout elapses (domain.ErrReceiverTimeout).
	AwaitReady(ctx context.Context, key domain.TransferKey, timeout time.Duration) error

	// SignalReady binds the receiver and wakes the waiting sender.
	// It returns false without error when the session is already gone,
	// and domain.ErrReceiverBound when another receiver already signalled.
	SignalReady(ctx context.Context, key domain.TransferKey) (bool, error)

	// IsReady reports whether a receiver has signalled and the state is still held.
	IsReady(ctx context.Context, key domain.TransferKey) (bool, error)

	// Close drops the readiness state. Idempotent.
	Close(ctx context.Context, key domain.TransferKey) error
}

// ChunkChannel is the bounded FIFO carrying frames from sender to receiver.
type ChunkChannel interface {
	// Push enqueues a frame, waiting up to timeout for byte capacity.
	// Returns a domain.ErrInterrupted error once the partner interrupted or the session is gone,
	// and domain.ErrIdleTimeout when capacity never frees up.
	Push(ctx context.Context, key domain.TransferKey, frame domain.Frame, timeout time.Duration) error

	// Pop dequeues the next frame, waiting up to timeout (domain.ErrIdleTimeout).
	// Returns a domain.ErrInterrupted error if the session disappeared while waiting.
	Pop(ctx context.Context, key domain.TransferKey, timeout time.Duration) (domain.Frame, error)

	// Interrupt records the interrupt reason for the pushing side and enqueues an INTERRUPT sentinel
	// for the popping side. Idempotent.
	Interrupt(ctx context.Context, key domain.TransferKey, reason string) error

	// Buffered reports the frame count and byte total currently queued.
	Buffered(ctx context.Context, key domain.TransferKey) (frames int64, bytes int64, err error)

	// Release drains the queue and deletes all of its state. Idempotent.
	Release(ctx context.Context, key domain.TransferKey) error
}

// Broker bundles the three capabilities a deployment shares between relay instances.
type Broker interface {
	Metadata() MetadataStore
	Readiness() ReadinessChannel
	Chunks() ChunkChannel
	Close() error
}
