package service

import (
	"context"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/config"
	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
)

//go:generate mockgen -destination=mocks/dependencies_mock.go -package=mocks -source=relay.go

// IDGenerator produces server-side transfer IDs.
type IDGenerator interface {
	NextString() (string, error)
}

// Janitor runs cleanup jobs off the request path.
type Janitor interface {
	Submit(ctx context.Context, job func()) error
}

// RelayServiceImpl is the facade that wires the sender and receiver use-case services.
type RelayServiceImpl struct {
	cfg    *config.Config
	broker port.Broker
	idGen  IDGenerator

	cleaner        *cleaner
	sendUseCase    *sendService
	receiveUseCase *receiveService
}

// Ensure RelayServiceImpl implements port.TransferService.
var _ port.TransferService = (*RelayServiceImpl)(nil)

// NewRelayService builds the relay facade and all use-case services.
func NewRelayService(cfg *config.Config, broker port.Broker, idGen IDGenerator, janitor Janitor) *RelayServiceImpl {
	svc := &RelayServiceImpl{
		cfg:    cfg,
		broker: broker,
		idGen:  idGen,
	}

	svc.cleaner = newCleaner(broker, janitor, cfg.Relay.CleanupTimeout())
	svc.sendUseCase = newSendService(svc)
	svc.receiveUseCase = newReceiveService(svc)

	return svc
}

// CreateUpload delegates the sender handshake to the send use-case service.
func (s *RelayServiceImpl) CreateUpload(ctx context.Context, id domain.TransferID, meta domain.FileMetadata) (port.Upload, error) {
	return s.sendUseCase.createUpload(ctx, id, meta)
}

// OpenDownload delegates receiver binding to the receive use-case service.
func (s *RelayServiceImpl) OpenDownload(ctx context.Context, id domain.TransferID) (port.Download, error) {
	return s.receiveUseCase.openDownload(ctx, id)
}

// Lookup resolves a transfer without binding to it.
func (s *RelayServiceImpl) Lookup(ctx context.Context, id domain.TransferID) (*domain.TransferRecord, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return s.broker.Metadata().Get(ctx, id)
}

// NewTransferID returns a fresh server-generated transfer ID.
func (s *RelayServiceImpl) NewTransferID(ctx context.Context) (domain.TransferID, error) {
	raw, err := s.idGen.NextString()
	if err != nil {
		return "", domain.NewTransferError(domain.KindInternal, "Could not generate a transfer ID.", err)
	}
	return domain.TransferID(raw), nil
}

// Shutdown runs every delayed cleanup now so no session state outlives the process.
func (s *RelayServiceImpl) Shutdown(ctx context.Context) error {
	return s.cleaner.flush(ctx)
}

func (s *RelayServiceImpl) idleTimeout() time.Duration {
	return s.cfg.Relay.IdleTimeout()
}

func (s *RelayServiceImpl) cleanupDelay() time.Duration {
	return s.cfg.Relay.CleanupDelay()
}
