package membroker

import (
	"context"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
)

type metadataStore struct {
	b *Broker
}

func (m *metadataStore) Create(ctx context.Context, record domain.TransferRecord, ttl time.Duration) error {
	s := m.b.shardFor(record.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.b.recordLocked(s, record.ID) != nil {
		return domain.ExistsError()
	}

	s.records[record.ID] = &recordEntry{
		record:    record,
		ttl:       ttl,
		expiresAt: m.b.now().Add(ttl),
	}
	return nil
}

func (m *metadataStore) Get(ctx context.Context, id domain.TransferID) (*domain.TransferRecord, error) {
	s := m.b.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := m.b.recordLocked(s, id)
	if entry == nil {
		return nil, domain.NotFoundError()
	}
	record := entry.record
	return &record, nil
}

func (m *metadataStore) Delete(ctx context.Context, key domain.TransferKey) error {
	s := m.b.shardFor(key.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[key.ID]
	if !ok || entry.record.Session != key.Session {
		return nil
	}
	delete(s.records, key.ID)

	// Waiters re-check liveness.
	if sess, ok := s.sessions[key]; ok {
		sess.notify()
	}
	return nil
}
