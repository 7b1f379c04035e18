package idgen

import (
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// MockClock for deterministic testing
type MockClock struct {
	CurrentTime int64
}

func (m *MockClock) Now() int64 {
	return m.CurrentTime
}

func TestSnowflake_Next(t *testing.T) {
	clock := &MockClock{CurrentTime: Epoch + 1000}
	sf, err := New(1, clock)
	if err != nil {
		t.Fatalf("Failed to create Snowflake: %v", err)
	}

	id1, err := sf.Next()
	if err != nil {
		t.Fatalf("Failed to generate ID: %v", err)
	}

	id2, err := sf.Next()
	if err != nil {
		t.Fatalf("Failed to generate ID: %v", err)
	}

	if id1 >= id2 {
		t.Errorf("IDs must be unique and increasing: %d then %d", id1, id2)
	}
}

func TestSnowflake_NextString(t *testing.T) {
	sf, _ := New(7, &MockClock{CurrentTime: Epoch + 5000})

	s, err := sf.NextString()
	if err != nil {
		t.Fatalf("Failed to generate ID: %v", err)
	}

	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		t.Fatalf("expected base36 ID, got %q: %v", s, err)
	}
	if node := (id >> nodeShift) & maxNodeID; node != 7 {
		t.Errorf("expected node 7 encoded, got %d", node)
	}
}

func TestSnowflake_NodeIDTooLarge(t *testing.T) {
	_, err := New(1024, nil) // max is 1023
	if err != ErrNodeIDTooLarge {
		t.Errorf("Expected ErrNodeIDTooLarge, got %v", err)
	}
}

func TestSnowflake_ClockMovedBack(t *testing.T) {
	clock := &MockClock{CurrentTime: Epoch + 10_000}
	sf, _ := New(1, clock)

	_, _ = sf.Next()

	clock.CurrentTime = Epoch + 10_000 - MaxClockSkew - 1
	_, err := sf.Next()

	if err != ErrClockMovedBack {
		t.Errorf("Expected ErrClockMovedBack, got %v", err)
	}
}

func TestSnowflake_SmallSkewStaysMonotonic(t *testing.T) {
	clock := &MockClock{CurrentTime: Epoch + 10_000}
	sf, _ := New(1, clock)

	first, err := sf.Next()
	if err != nil {
		t.Fatalf("Failed to generate ID: %v", err)
	}

	clock.CurrentTime -= 300
	second, err := sf.Next()
	if err != nil {
		t.Fatalf("small skew must be tolerated: %v", err)
	}
	if second <= first {
		t.Errorf("IDs must keep increasing across skew: %d then %d", first, second)
	}
	if ts := (second >> timestampShift) + Epoch; ts != Epoch+10_000 {
		t.Errorf("expected the last seen millisecond to be reused, got %d", ts)
	}
}

func TestSnowflake_Concurrency(t *testing.T) {
	sf, _ := New(1, &SystemClock{})
	numGoroutines := 20
	numIDs := 500
	ids := make(chan int64, numGoroutines*numIDs)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			for j := 0; j < numIDs; j++ {
				id, err := sf.Next()
				if err != nil {
					t.Errorf("Concurrent generation failed: %v", err)
				}
				ids <- id
			}
		}()
	}

	seen := make(map[int64]bool)
	for i := 0; i < numGoroutines*numIDs; i++ {
		select {
		case id := <-ids:
			if seen[id] {
				t.Errorf("Duplicate ID generated: %d", id)
			}
			seen[id] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("Timeout waiting for IDs")
		}
	}
}

func TestRedisClock_UsesServerTime(t *testing.T) {
	mr := miniredis.RunT(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(fixed)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	if got := NewRedisClock(client).Now(); got != fixed.UnixMilli() {
		t.Fatalf("expected %d, got %d", fixed.UnixMilli(), got)
	}
}

func TestRedisClock_FallsBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	before := time.Now().UnixMilli()
	if got := NewRedisClock(client).Now(); got < before {
		t.Fatalf("expected local time fallback, got %d < %d", got, before)
	}
}
