// Package membroker is an in-process broker for single-instance deployments and tests.
// It offers the same guarantees as the Redis backend but cannot be shared across processes.
package membroker

import (
	"sync"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	"github.com/spaolacci/murmur3"
)

const defaultShards = 32

// Broker stripes transfers over shards by murmur3(TransferID) so unrelated transfers rarely contend.
type Broker struct {
	shards   []*shard
	capacity int64
	now      func() time.Time

	metadata  *metadataStore
	readiness *readinessChannel
	chunks    *chunkChannel
}

var _ port.Broker = (*Broker)(nil)

type shard struct {
	mu       sync.Mutex
	records  map[domain.TransferID]*recordEntry
	sessions map[domain.TransferKey]*session
}

type recordEntry struct {
	record    domain.TransferRecord
	ttl       time.Duration
	expiresAt time.Time
}

// session is the readiness + queue state of one TransferKey.
type session struct {
	ready     bool
	queue     []domain.Frame
	bytes     int64
	sealed    bool
	interrupt *string
	changed   chan struct{}
}

// Option configures a Broker.
type Option func(*Broker)

// WithClock overrides the time source used for record expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// WithShards sets the number of lock stripes.
func WithShards(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.shards = newShards(n)
		}
	}
}

// New creates a broker whose chunk queues hold at most capacityBytes of data each.
func New(capacityBytes int64, opts ...Option) *Broker {
	if capacityBytes <= 0 {
		capacityBytes = domain.DefaultQueueCapacity
	}
	b := &Broker{
		shards:   newShards(defaultShards),
		capacity: capacityBytes,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.metadata = &metadataStore{b: b}
	b.readiness = &readinessChannel{b: b}
	b.chunks = &chunkChannel{b: b}
	return b
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{
			records:  make(map[domain.TransferID]*recordEntry),
			sessions: make(map[domain.TransferKey]*session),
		}
	}
	return shards
}

func (b *Broker) Metadata() port.MetadataStore   { return b.metadata }
func (b *Broker) Readiness() port.ReadinessChannel { return b.readiness }
func (b *Broker) Chunks() port.ChunkChannel        { return b.chunks }
func (b *Broker) Close() error                     { return nil }

func (b *Broker) shardFor(id domain.TransferID) *shard {
	return b.shards[murmur3.Sum32([]byte(id))%uint32(len(b.shards))]
}

// recordLocked returns the live record for id, dropping it if expired.
func (b *Broker) recordLocked(s *shard, id domain.TransferID) *recordEntry {
	entry, ok := s.records[id]
	if !ok {
		return nil
	}
	if !b.now().Before(entry.expiresAt) {
		delete(s.records, id)
		if sess, ok := s.sessions[entry.record.Key()]; ok {
			sess.notify()
			delete(s.sessions, entry.record.Key())
		}
		return nil
	}
	return entry
}

// aliveLocked reports whether key still names the current session of its transfer.
func (b *Broker) aliveLocked(s *shard, key domain.TransferKey) bool {
	entry := b.recordLocked(s, key.ID)
	return entry != nil && entry.record.Session == key.Session
}

// touchLocked extends the record expiry on stream activity.
func (b *Broker) touchLocked(s *shard, key domain.TransferKey) {
	if entry := b.recordLocked(s, key.ID); entry != nil && entry.record.Session == key.Session {
		entry.expiresAt = b.now().Add(entry.ttl)
	}
}

func (s *shard) sessionLocked(key domain.TransferKey) *session {
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{changed: make(chan struct{})}
		s.sessions[key] = sess
	}
	return sess
}

func (s *shard) dropSessionLocked(key domain.TransferKey) {
	if sess, ok := s.sessions[key]; ok {
		sess.notify()
		delete(s.sessions, key)
	}
}

// notify wakes every waiter of the session. Callers hold the shard lock.
func (sess *session) notify() {
	close(sess.changed)
	sess.changed = make(chan struct{})
}

// wait blocks until ch fires, the timer fires, or ctx is done.
func wait(done <-chan struct{}, ch <-chan struct{}, timer <-chan time.Time) (timedOut bool, ctxDone bool) {
	select {
	case <-ch:
		return false, false
	case <-timer:
		return true, false
	case <-done:
		return false, true
	}
}
