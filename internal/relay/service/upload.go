package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/google/uuid"
)

// sendService creates sender sessions.
type sendService struct {
	core *RelayServiceImpl
}

func newSendService(core *RelayServiceImpl) *sendService {
	return &sendService{core: core}
}

// createUpload validates the handshake and claims the transfer ID.
func (s *sendService) createUpload(ctx context.Context, id domain.TransferID, meta domain.FileMetadata) (port.Upload, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	file, err := meta.Normalize()
	if err != nil {
		return nil, err
	}

	ttl := s.core.cfg.Relay.RecordTTL()
	record := domain.TransferRecord{
		ID:        id,
		File:      file,
		Session:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		TTL:       ttl,
	}
	if err := s.core.broker.Metadata().Create(ctx, record, ttl); err != nil {
		return nil, err
	}

	logger.Infow("Transfer created", "transfer_id", id.String(), "file", file.String())
	return &upload{
		session:   newSession(s.core, record, sideSender),
		chunkSize: s.core.cfg.Relay.EffectiveChunkSize(),
	}, nil
}

// upload is the sender side of a session.
type upload struct {
	*session

	chunkSize int

	// writeMu serialises Write and Finish so frames keep their order.
	writeMu sync.Mutex
	written int64
}

var _ port.Upload = (*upload)(nil)

func (u *upload) AwaitReceiver(ctx context.Context) error {
	if !u.transition(domain.StateAwaitingReceiver) {
		return u.require(domain.StateCreated)
	}

	err := u.core.broker.Readiness().AwaitReady(ctx, u.key(), u.core.cfg.Relay.ReceiverTimeout())
	switch {
	case err == nil:
		if !u.transition(domain.StateStreaming) {
			return u.require(domain.StateStreaming)
		}
		return nil
	case errors.Is(err, domain.ErrReceiverTimeout):
		return u.fail(ctx, domain.StateExpired, err, false)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return u.fail(ctx, domain.StateFailed, domain.SenderDisconnectedError(), true)
	default:
		return u.fail(ctx, domain.StateFailed, err, !partnerGone(err))
	}
}

// Write pushes p as one or more frames of at most chunkSize bytes.
func (u *upload) Write(ctx context.Context, p []byte) error {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	if err := u.require(domain.StateStreaming); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	if u.written+int64(len(p)) > u.record.File.Size {
		return u.fail(ctx, domain.StateFailed,
			domain.NewTransferError(domain.KindValidation, "Received more data than expected.", domain.ErrSizeMismatch), true)
	}

	for off := 0; off < len(p); off += u.chunkSize {
		end := min(off+u.chunkSize, len(p))
		frame := domain.DataFrame(bytes.Clone(p[off:end]))
		if err := u.push(ctx, frame); err != nil {
			return err
		}
		u.written += int64(end - off)
	}
	return nil
}

// Finish sends DONE. The receiver purges the session once it has drained it.
func (u *upload) Finish(ctx context.Context) error {
	u.writeMu.Lock()
	defer u.writeMu.Unlock()

	if err := u.require(domain.StateStreaming); err != nil {
		return err
	}
	if u.written != u.record.File.Size {
		return u.fail(ctx, domain.StateFailed,
			domain.NewTransferError(domain.KindValidation, "Received less data than expected.", domain.ErrSizeMismatch), true)
	}
	if err := u.push(ctx, domain.DoneFrame()); err != nil {
		return err
	}

	u.complete(false)
	return nil
}

func (u *upload) Abort(ctx context.Context, reason string) {
	u.abort(ctx, reason)
}

func (u *upload) push(ctx context.Context, frame domain.Frame) error {
	err := u.core.broker.Chunks().Push(ctx, u.key(), frame, u.core.idleTimeout())
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return u.fail(ctx, domain.StateFailed, domain.SenderDisconnectedError(), true)
	}
	return u.fail(ctx, domain.StateFailed, err, !partnerGone(err))
}
