package idgen

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

const (
	// Layout of a 64-bit ID:
	// 1 bit unused (sign), 41 bits milliseconds since Epoch, 10 bits node, 12 bits sequence.
	nodeBits     = 10
	sequenceBits = 12

	maxNodeID   = -1 ^ (-1 << nodeBits)
	maxSequence = -1 ^ (-1 << sequenceBits)

	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits

	// Epoch is 2024-01-01 00:00:00 UTC.
	Epoch = 1704067200000

	// MaxClockSkew is how far, in milliseconds, the clock may step back before Next fails.
	MaxClockSkew = 2000
)

var (
	ErrNodeIDTooLarge = errors.New("node ID too large")
	ErrClockMovedBack = errors.New("clock moved backwards")
)

// Snowflake generates unique, roughly time-ordered 64-bit IDs.
type Snowflake struct {
	mu       sync.Mutex
	clock    Clock
	nodeID   int64
	lastTime int64
	sequence int64
}

// New creates a generator for nodeID. A nil clock means the local system clock.
func New(nodeID int64, clock Clock) (*Snowflake, error) {
	if nodeID < 0 || nodeID > int64(maxNodeID) {
		return nil, ErrNodeIDTooLarge
	}

	if clock == nil {
		clock = &SystemClock{}
	}

	return &Snowflake{
		clock:    clock,
		nodeID:   nodeID,
		lastTime: -1,
	}, nil
}

// Next generates the next unique ID.
// A clock that steps back by less than MaxClockSkew keeps issuing IDs on the last seen
// millisecond; RedisClock does this when it switches between broker and local time.
func (s *Snowflake) Next() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.lastTime-now > MaxClockSkew {
		return 0, ErrClockMovedBack
	}
	now = max(now, s.lastTime)

	if now == s.lastTime {
		s.sequence = (s.sequence + 1) & int64(maxSequence)
		if s.sequence == 0 {
			now = s.waitPast(s.lastTime)
			if now < 0 {
				return 0, ErrClockMovedBack
			}
		}
	} else {
		s.sequence = 0
	}

	s.lastTime = now

	id := ((now - Epoch) << timestampShift) |
		(s.nodeID << nodeShift) |
		(s.sequence)

	return id, nil
}

// waitPast spins until the clock passes last, giving up after MaxClockSkew of wall time.
func (s *Snowflake) waitPast(last int64) int64 {
	deadline := time.Now().Add(time.Duration(MaxClockSkew) * time.Millisecond)
	for time.Now().Before(deadline) {
		if now := s.clock.Now(); now > last {
			return now
		}
		time.Sleep(100 * time.Microsecond)
	}
	return -1
}

// NextString returns the next ID in base36, short enough for a share link.
func (s *Snowflake) NextString() (string, error) {
	id, err := s.Next()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 36), nil
}
