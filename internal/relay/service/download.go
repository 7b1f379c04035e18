package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	"github.com/anthanhphan/gosdk/logger"
)

// receiveService binds receivers to existing transfers.
type receiveService struct {
	core *RelayServiceImpl
}

func newReceiveService(core *RelayServiceImpl) *receiveService {
	return &receiveService{core: core}
}

// openDownload resolves the record, then signals readiness. The record read always happens first.
func (s *receiveService) openDownload(ctx context.Context, id domain.TransferID) (port.Download, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	record, err := s.core.broker.Metadata().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	bound, err := s.core.broker.Readiness().SignalReady(ctx, record.Key())
	if err != nil {
		return nil, err
	}
	if !bound {
		// The session ended between the read and the signal.
		return nil, domain.NotFoundError()
	}

	sess := newSession(s.core, *record, sideReceiver)
	sess.transition(domain.StateAwaitingReceiver)
	sess.transition(domain.StateStreaming)

	logger.Infow("Receiver bound", "transfer_id", id.String(), "file", record.File.String())
	return &download{session: sess}, nil
}

// download is the receiver side of a session.
type download struct {
	*session

	readMu   sync.Mutex
	received int64
}

var _ port.Download = (*download)(nil)

// Next returns the next chunk, io.EOF once DONE arrived with the declared size, or the terminal error.
func (d *download) Next(ctx context.Context) ([]byte, error) {
	d.readMu.Lock()
	defer d.readMu.Unlock()

	if d.State() == domain.StateCompleted {
		return nil, io.EOF
	}
	if err := d.require(domain.StateStreaming); err != nil {
		return nil, err
	}

	frame, err := d.core.broker.Chunks().Pop(ctx, d.key(), d.core.idleTimeout())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, d.fail(ctx, domain.StateFailed, domain.ReceiverInterruptedError(), true)
		}
		return nil, d.fail(ctx, domain.StateFailed, err, !partnerGone(err))
	}

	switch frame.Kind {
	case domain.FrameData:
		d.received += int64(len(frame.Data))
		if d.received > d.record.File.Size {
			return nil, d.fail(ctx, domain.StateFailed,
				domain.NewTransferError(domain.KindValidation, "Received more data than expected.", domain.ErrSizeMismatch), true)
		}
		return frame.Data, nil
	case domain.FrameDone:
		if d.received != d.record.File.Size {
			return nil, d.fail(ctx, domain.StateFailed,
				domain.NewTransferError(domain.KindValidation, "Received less data than expected.", domain.ErrSizeMismatch), false)
		}
		d.complete(true)
		return nil, io.EOF
	default:
		return nil, d.fail(ctx, domain.StateFailed, domain.Interrupted(frame.Reason), false)
	}
}

func (d *download) Abort(ctx context.Context, reason string) {
	d.abort(ctx, reason)
}
