package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/adapter/outbound/membroker"
	"github.com/anthanhphan/go-transit-relay/internal/relay/config"
	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	"github.com/anthanhphan/go-transit-relay/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *RelayServiceImpl
	broker *membroker.Broker
}

func newFixture(t *testing.T, tune func(cfg *config.Config)) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Relay.ReceiverTimeoutMS = 2000
	cfg.Relay.IdleTimeoutMS = 2000
	cfg.Relay.CleanupDelayMS = 300
	cfg.Relay.CleanupTimeoutMS = 1000
	if tune != nil {
		tune(cfg)
	}

	broker := membroker.New(cfg.Relay.QueueCapacity())
	pool := resilience.NewWorkerPool(2, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	return &fixture{
		svc:    NewRelayService(cfg, broker, nil, pool),
		broker: broker,
	}
}

func meta(size int64) domain.FileMetadata {
	return domain.FileMetadata{Name: "a.bin", Size: size, Type: domain.DefaultMimeType}
}

// connect creates the upload, binds a receiver and returns both sides in STREAMING.
func (f *fixture) connect(t *testing.T, id domain.TransferID, size int64) (port.Upload, port.Download) {
	t.Helper()
	ctx := context.Background()

	up, err := f.svc.CreateUpload(ctx, id, meta(size))
	require.NoError(t, err)

	awaited := make(chan error, 1)
	go func() { awaited <- up.AwaitReceiver(ctx) }()

	down, err := f.svc.OpenDownload(ctx, id)
	require.NoError(t, err)

	select {
	case err := <-awaited:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sender was not released")
	}
	require.Equal(t, domain.StateStreaming, up.State())
	require.Equal(t, domain.StateStreaming, down.State())
	return up, down
}

func readAll(t *testing.T, down port.Download) ([]byte, error) {
	t.Helper()
	var buf bytes.Buffer
	for {
		chunk, err := down.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return buf.Bytes(), err
		}
		buf.Write(chunk)
	}
}

// assertPurged checks that no store reports anything for the session.
func (f *fixture) assertPurged(t *testing.T, key domain.TransferKey) {
	t.Helper()
	ctx := context.Background()

	assert.Eventually(t, func() bool {
		if _, err := f.broker.Metadata().Get(ctx, key.ID); !errors.Is(err, domain.ErrTransferNotFound) {
			return false
		}
		ready, err := f.broker.Readiness().IsReady(ctx, key)
		if err != nil || ready {
			return false
		}
		frames, used, err := f.broker.Chunks().Buffered(ctx, key)
		return err == nil && frames == 0 && used == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRelay_ReceiverNeverConnects(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Relay.ReceiverTimeoutMS = 200 })
	ctx := context.Background()

	_, err := f.svc.Lookup(ctx, "t1")
	require.ErrorIs(t, err, domain.ErrTransferNotFound)

	up, err := f.svc.CreateUpload(ctx, "t1", meta(3))
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, up.State())

	start := time.Now()
	err = up.AwaitReceiver(ctx)
	require.ErrorIs(t, err, domain.ErrReceiverTimeout)
	assert.Equal(t, "Error: Receiver did not connect in time.", domain.UserMessage(err))
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, domain.StateExpired, up.State())

	_, err = f.svc.Lookup(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
	f.assertPurged(t, up.Record().Key())

	// A late receiver finds nothing.
	_, err = f.svc.OpenDownload(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

func TestRelay_OrderedDelivery(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	up, down := f.connect(t, "t2", 3)

	require.NoError(t, up.Write(ctx, []byte{0x01, 0x02}))
	require.NoError(t, up.Write(ctx, []byte{0x03}))
	require.NoError(t, up.Finish(ctx))
	assert.Equal(t, domain.StateCompleted, up.State())

	got, err := readAll(t, down)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got)
	assert.Len(t, got, int(down.Record().File.Size))
	assert.Equal(t, domain.StateCompleted, down.State())

	_, err = down.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	f.assertPurged(t, up.Record().Key())
}

func TestRelay_LargeWritesAreSplit(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Relay.ChunkSize = 4 })
	ctx := context.Background()

	payload := []byte("hello, transit relay")
	up, down := f.connect(t, "split", int64(len(payload)))

	done := make(chan error, 1)
	go func() {
		if err := up.Write(ctx, payload); err != nil {
			done <- err
			return
		}
		done <- up.Finish(ctx)
	}()

	var chunks [][]byte
	for {
		chunk, err := down.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, len(chunk), 4)
		chunks = append(chunks, chunk)
	}
	require.NoError(t, <-done)
	assert.Equal(t, payload, bytes.Join(chunks, nil))
}

func TestRelay_UnknownTransfer(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.OpenDownload(context.Background(), "t3")
	require.ErrorIs(t, err, domain.ErrTransferNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestRelay_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		id   domain.TransferID
		meta domain.FileMetadata
		want error
	}{
		{name: "InvalidID", id: "bad id", meta: meta(3), want: domain.ErrInvalidTransferID},
		{name: "EmptyName", id: "ok", meta: domain.FileMetadata{Size: 3}, want: domain.ErrInvalidMetadata},
		{name: "ZeroSize", id: "ok", meta: domain.FileMetadata{Name: "a"}, want: domain.ErrInvalidMetadata},
		{name: "NegativeSize", id: "ok", meta: domain.FileMetadata{Name: "a", Size: -1}, want: domain.ErrInvalidMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUpload(ctx, tt.id, tt.meta)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}

	// Nothing was claimed.
	_, err := f.svc.Lookup(ctx, "ok")
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}

func TestRelay_AtMostOneBinding(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	up, down := f.connect(t, "dup", 2)

	_, err := f.svc.CreateUpload(ctx, "dup", meta(2))
	require.ErrorIs(t, err, domain.ErrTransferExists)
	assert.Equal(t, "Error: Transfer ID is already used.", domain.UserMessage(err))

	_, err = f.svc.OpenDownload(ctx, "dup")
	require.ErrorIs(t, err, domain.ErrReceiverBound)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	// The bound pair is undisturbed.
	require.NoError(t, up.Write(ctx, []byte("ok")))
	require.NoError(t, up.Finish(ctx))
	got, err := readAll(t, down)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), got)
}

func TestRelay_Backpressure(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Relay.QueueCapacityBytes = 4
		cfg.Relay.ChunkSize = 2
	})
	ctx := context.Background()
	up, down := f.connect(t, "bp", 6)

	require.NoError(t, up.Write(ctx, []byte{1, 2, 3, 4}))

	written := make(chan error, 1)
	go func() { written <- up.Write(ctx, []byte{5, 6}) }()

	select {
	case err := <-written:
		t.Fatalf("write beyond capacity returned early: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	_, used, err := f.broker.Chunks().Buffered(ctx, up.Record().Key())
	require.NoError(t, err)
	assert.LessOrEqual(t, used, int64(4))

	chunk, err := down.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, chunk)

	select {
	case err := <-written:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write did not resume after the receiver drained")
	}

	require.NoError(t, up.Finish(ctx))
	rest, err := readAll(t, down)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5, 6}, rest)
}

func TestRelay_ReceiverDisconnect(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Relay.QueueCapacityBytes = 2
		cfg.Relay.ChunkSize = 2
	})
	ctx := context.Background()
	up, down := f.connect(t, "rx-drop", 10)

	require.NoError(t, up.Write(ctx, []byte{1, 2}))

	// The next write blocks on a full queue until the receiver goes away.
	written := make(chan error, 1)
	go func() { written <- up.Write(ctx, []byte{3, 4}) }()
	time.Sleep(50 * time.Millisecond)

	down.Abort(ctx, domain.ReasonReceiverInterrupted)
	assert.Equal(t, domain.StateFailed, down.State())

	select {
	case err := <-written:
		require.ErrorIs(t, err, domain.ErrInterrupted)
		assert.Equal(t, "Error: Transfer was interrupted by the receiver.", domain.UserMessage(err))
	case <-time.After(time.Second):
		t.Fatal("sender kept blocking after the receiver left")
	}
	assert.Equal(t, domain.StateFailed, up.State())

	err := up.Write(ctx, []byte{5})
	assert.ErrorIs(t, err, domain.ErrInterrupted)

	f.assertPurged(t, up.Record().Key())
}

func TestRelay_SenderDisconnect(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	up, down := f.connect(t, "tx-drop", 10)

	require.NoError(t, up.Write(ctx, []byte{1, 2, 3}))
	up.Abort(ctx, "Sender disconnected.")
	up.Abort(ctx, "ignored")

	got, err := readAll(t, down)
	assert.Equal(t, []byte{1, 2, 3}, got)
	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Equal(t, "Error: Sender disconnected.", domain.UserMessage(err))
	assert.Equal(t, domain.StateFailed, down.State())

	f.assertPurged(t, up.Record().Key())
}

func TestRelay_SenderGoneWhileAwaiting(t *testing.T) {
	f := newFixture(t, nil)
	up, err := f.svc.CreateUpload(context.Background(), "early", meta(3))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err = up.AwaitReceiver(ctx)
	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Equal(t, domain.StateFailed, up.State())
	f.assertPurged(t, up.Record().Key())
}

func TestRelay_SizeMismatch(t *testing.T) {
	t.Run("TooMuchData", func(t *testing.T) {
		f := newFixture(t, nil)
		ctx := context.Background()
		up, down := f.connect(t, "over", 2)

		err := up.Write(ctx, []byte{1, 2, 3})
		require.ErrorIs(t, err, domain.ErrSizeMismatch)
		assert.Equal(t, domain.StateFailed, up.State())

		_, err = readAll(t, down)
		require.ErrorIs(t, err, domain.ErrInterrupted)
		assert.Equal(t, "Error: Received more data than expected.", domain.UserMessage(err))
	})

	t.Run("TooLittleData", func(t *testing.T) {
		f := newFixture(t, nil)
		ctx := context.Background()
		up, down := f.connect(t, "under", 5)

		require.NoError(t, up.Write(ctx, []byte{1, 2}))
		err := up.Finish(ctx)
		require.ErrorIs(t, err, domain.ErrSizeMismatch)
		assert.Equal(t, "Error: Received less data than expected.", domain.UserMessage(err))

		got, err := readAll(t, down)
		assert.Equal(t, []byte{1, 2}, got)
		assert.Equal(t, "Error: Received less data than expected.", domain.UserMessage(err))
		f.assertPurged(t, up.Record().Key())
	})
}

func TestRelay_IdleReceiverTimesOut(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Relay.IdleTimeoutMS = 100 })
	ctx := context.Background()
	up, down := f.connect(t, "idle", 4)

	_, err := down.Next(ctx)
	require.ErrorIs(t, err, domain.ErrIdleTimeout)
	assert.Equal(t, "Error: Timeout during download.", domain.UserMessage(err))
	assert.Equal(t, domain.StateFailed, down.State())

	err = up.Write(ctx, []byte{1})
	require.ErrorIs(t, err, domain.ErrInterrupted)
	assert.Equal(t, "Error: Timeout during download.", domain.UserMessage(err))

	f.assertPurged(t, up.Record().Key())
}

func TestRelay_IDReuseAfterCleanup(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	up, down := f.connect(t, "again", 1)

	require.NoError(t, up.Write(ctx, []byte{1}))
	require.NoError(t, up.Finish(ctx))
	_, err := readAll(t, down)
	require.NoError(t, err)

	up2, err := f.svc.CreateUpload(ctx, "again", meta(1))
	require.NoError(t, err)
	assert.NotEqual(t, up.Record().Session, up2.Record().Session)
}

func TestRelay_WriteBeforeStreaming(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	up, err := f.svc.CreateUpload(ctx, "eager", meta(1))
	require.NoError(t, err)

	err = up.Write(ctx, []byte{1})
	require.ErrorIs(t, err, domain.ErrNotStreaming)

	frames, _, err := f.broker.Chunks().Buffered(ctx, up.Record().Key())
	require.NoError(t, err)
	assert.Zero(t, frames)
}
