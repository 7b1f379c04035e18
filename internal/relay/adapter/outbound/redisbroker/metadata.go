package redisbroker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/redis/go-redis/v9"
)

type metadataStore struct {
	b *Broker
}

func (m *metadataStore) Create(ctx context.Context, record domain.TransferRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return m.b.guard(ctx, func(ctx context.Context) error {
		ok, err := m.b.client.SetNX(ctx, metaKey(record.ID), data, ttl).Result()
		if err != nil {
			return unavailable(err)
		}
		if !ok {
			return domain.ExistsError()
		}
		return nil
	})
}

func (m *metadataStore) Get(ctx context.Context, id domain.TransferID) (*domain.TransferRecord, error) {
	var data []byte
	err := m.b.guard(ctx, func(ctx context.Context) error {
		raw, err := m.b.client.Get(ctx, metaKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.NotFoundError()
		}
		if err != nil {
			return unavailable(err)
		}
		data = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	var record domain.TransferRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record %s: %w", id, err)
	}
	return &record, nil
}

func (m *metadataStore) Delete(ctx context.Context, key domain.TransferKey) error {
	keys := keysFor(key)
	return m.b.guard(ctx, func(ctx context.Context) error {
		err := deleteScript.Run(ctx, m.b.client, []string{keys.meta}, keys.marker, keys.events).Err()
		return unavailable(err)
	})
}
