package port

import (
	"context"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
)

// Upload is the sender side of one transfer session.
type Upload interface {
	// Record returns the stored TransferRecord.
	Record() domain.TransferRecord

	// State returns the session state as seen by this side.
	State() domain.State

	// AwaitReceiver blocks in AWAITING_RECEIVER until a receiver binds, then moves to STREAMING.
	AwaitReceiver(ctx context.Context) error

	// Write pushes file bytes to the receiver, respecting backpressure.
	Write(ctx context.Context, chunk []byte) error

	// Finish ends the stream with DONE after checking the byte count.
	Finish(ctx context.Context) error

	// Abort ends the stream with INTERRUPT. Safe to call in any state.
	Abort(ctx context.Context, reason string)
}

// Download is the receiver side of one transfer session.
type Download interface {
	// Record returns the TransferRecord the receiver resolved.
	Record() domain.TransferRecord

	// State returns the session state as seen by this side.
	State() domain.State

	// Next returns the next chunk, io.EOF after DONE, or a terminal error.
	Next(ctx context.Context) ([]byte, error)

	// Abort ends the stream with INTERRUPT. Safe to call in any state.
	Abort(ctx context.Context, reason string)
}

// TransferService is the entry point used by inbound adapters.
type TransferService interface {
	// CreateUpload validates metadata and claims the transfer ID (CREATED).
	CreateUpload(ctx context.Context, id domain.TransferID, meta domain.FileMetadata) (Upload, error)

	// OpenDownload resolves the transfer and binds the receiver (STREAMING).
	OpenDownload(ctx context.Context, id domain.TransferID) (Download, error)

	// Lookup returns the TransferRecord without binding.
	Lookup(ctx context.Context, id domain.TransferID) (*domain.TransferRecord, error)

	// NewTransferID generates an unused-looking transfer ID.
	NewTransferID(ctx context.Context) (domain.TransferID, error)
}
