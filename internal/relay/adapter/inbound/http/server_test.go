package http_handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/client"
	"github.com/anthanhphan/go-transit-relay/internal/relay/adapter/outbound/membroker"
	"github.com/anthanhphan/go-transit-relay/internal/relay/config"
	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/service"
	"github.com/anthanhphan/go-transit-relay/pkg/idgen"
	"github.com/anthanhphan/go-transit-relay/pkg/resilience"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRelay struct {
	baseURL string
	client  *client.Client
}

func startRelay(t *testing.T, tune func(cfg *config.Config)) *testRelay {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Relay.ReceiverTimeoutMS = 3000
	cfg.Relay.IdleTimeoutMS = 3000
	cfg.Relay.CleanupDelayMS = 200
	cfg.Relay.ChunkSize = 1024
	cfg.Relay.QueueCapacityBytes = 8 * 1024
	if tune != nil {
		tune(cfg)
	}

	gen, err := idgen.New(cfg.App.NodeID, nil)
	require.NoError(t, err)

	pool := resilience.NewWorkerPool(2, 16)
	svc := service.NewRelayService(cfg, membroker.New(cfg.Relay.QueueCapacity()), gen, pool)
	srv := NewServer(cfg, svc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		_ = svc.Shutdown(ctx)
		_ = pool.Shutdown(ctx)
	})

	base := "http://" + ln.Addr().String()
	c, err := client.New(base, client.WithChunkSize(700))
	require.NoError(t, err)

	return &testRelay{baseURL: base, client: c}
}

func payload(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 251)
	}
	return out
}

func relayErr(t *testing.T, err error) *client.RelayError {
	t.Helper()
	var re *client.RelayError
	require.True(t, errors.As(err, &re), "expected a relay error, got %v", err)
	return re
}

func lookupStatus(r *testRelay, id string) int {
	resp, err := http.Get(r.baseURL + "/api/transfers/" + id)
	if err != nil {
		return 0
	}
	resp.Body.Close()
	return resp.StatusCode
}

func waitForTransfer(t *testing.T, r *testRelay, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return lookupStatus(r, id) == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
}

// dialSender opens a raw sender socket and announces a file of size bytes.
func dialSender(t *testing.T, r *testRelay, id string, size int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(r.baseURL, "http")+"/send/"+id, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	meta, err := json.Marshal(domain.FileMetadata{Name: "a.bin", Size: int64(size)})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, meta))
	waitForTransfer(t, r, id)
	return conn
}

func TestServer_Health(t *testing.T) {
	r := startRelay(t, nil)

	resp, err := http.Get(r.baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestServer_NewID(t *testing.T) {
	r := startRelay(t, nil)
	ctx := context.Background()

	first, err := r.client.NewID(ctx)
	require.NoError(t, err)
	second, err := r.client.NewID(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	assert.NoError(t, domain.TransferID(first).Validate())
}

func TestServer_WebSocketTransfer(t *testing.T) {
	r := startRelay(t, nil)
	ctx := context.Background()
	data := payload(20_000)
	meta := domain.FileMetadata{Name: "photo.jpg", Size: int64(len(data)), Type: "image/jpeg"}

	sent := make(chan error, 1)
	go func() { sent <- r.client.Send(ctx, "ws-transfer", meta, bytes.NewReader(data)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(r.baseURL + "/api/transfers/ws-transfer")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	var got bytes.Buffer
	gotMeta, err := r.client.Receive(ctx, "ws-transfer", &got)
	require.NoError(t, err)
	require.NoError(t, <-sent)

	assert.Equal(t, meta, gotMeta)
	assert.Equal(t, data, got.Bytes())
}

func TestServer_HTTPTransfer(t *testing.T) {
	r := startRelay(t, nil)
	ctx := context.Background()
	data := payload(10_000)

	uploaded := make(chan error, 1)
	go func() { uploaded <- r.client.Upload(ctx, "http-transfer", "report.txt", int64(len(data)), bytes.NewReader(data)) }()

	var (
		got  bytes.Buffer
		meta domain.FileMetadata
	)
	require.Eventually(t, func() bool {
		got.Reset()
		var err error
		meta, err = r.client.Download(ctx, "http-transfer", &got)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, <-uploaded)

	assert.Equal(t, "report.txt", meta.Name)
	assert.Equal(t, int64(len(data)), meta.Size)
	assert.Equal(t, domain.DefaultMimeType, meta.Type)
	assert.Equal(t, data, got.Bytes())
}

func TestServer_UnknownTransfer(t *testing.T) {
	r := startRelay(t, nil)
	ctx := context.Background()

	_, err := r.client.Download(ctx, "missing", &bytes.Buffer{})
	assert.Equal(t, http.StatusNotFound, relayErr(t, err).Status)
	assert.Equal(t, "Error: Transfer not found.", relayErr(t, err).Message)

	_, err = r.client.Receive(ctx, "missing", &bytes.Buffer{})
	assert.Equal(t, "Error: Transfer not found.", relayErr(t, err).Message)
}

func TestServer_InvalidTransferID(t *testing.T) {
	r := startRelay(t, nil)

	resp, err := http.Get(r.baseURL + "/invalid_id!")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = r.client.Receive(context.Background(), "bad id", &bytes.Buffer{})
	assert.Equal(t, http.StatusBadRequest, relayErr(t, err).Status)
}

func TestServer_UploadRequiresSize(t *testing.T) {
	r := startRelay(t, func(cfg *config.Config) { cfg.Server.MaxHTTPUploadSize = 1024 })

	err := r.client.Upload(context.Background(), "too-big", "big.bin", 4096, bytes.NewReader(payload(4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, relayErr(t, err).Status)

	err = r.client.Upload(context.Background(), "empty", "empty.bin", 0, bytes.NewReader(nil))
	assert.Equal(t, http.StatusBadRequest, relayErr(t, err).Status)
}

func TestServer_DuplicateSender(t *testing.T) {
	r := startRelay(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	meta := domain.FileMetadata{Name: "a.bin", Size: 10}

	first := make(chan error, 1)
	go func() { first <- r.client.Send(ctx, "taken", meta, bytes.NewReader(payload(10))) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(r.baseURL + "/api/transfers/taken")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	err := r.client.Send(context.Background(), "taken", meta, bytes.NewReader(payload(10)))
	assert.Equal(t, "Error: Transfer ID is already used.", relayErr(t, err).Message)

	cancel()
	<-first
}

func TestServer_ReceiverTimeout(t *testing.T) {
	r := startRelay(t, func(cfg *config.Config) { cfg.Relay.ReceiverTimeoutMS = 200 })
	meta := domain.FileMetadata{Name: "a.bin", Size: 10}

	err := r.client.Send(context.Background(), "lonely", meta, bytes.NewReader(payload(10)))
	assert.Equal(t, "Error: Receiver did not connect in time.", relayErr(t, err).Message)

	_, err = r.client.Download(context.Background(), "lonely", &bytes.Buffer{})
	assert.Equal(t, http.StatusNotFound, relayErr(t, err).Status)
}

func TestServer_SenderHangUpBeforeGoSignal(t *testing.T) {
	r := startRelay(t, nil)

	conn := dialSender(t, r, "early", 3)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1}))
	require.NoError(t, conn.Close())

	// Well inside the 3s receiver timeout.
	assert.Eventually(t, func() bool {
		return lookupStatus(r, "early") == http.StatusNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestServer_EarlyFramesReplayed(t *testing.T) {
	r := startRelay(t, nil)

	conn := dialSender(t, r, "eager", 3)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{3}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{}))

	var got bytes.Buffer
	meta, err := r.client.Receive(context.Background(), "eager", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.Size)
	assert.Equal(t, []byte{1, 2, 3}, got.Bytes())

	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, goSignal, string(msg))
}

func TestServer_TooMuchDataBeforeReceiver(t *testing.T) {
	r := startRelay(t, nil)

	conn := dialSender(t, r, "flood", 20_000)
	for range 9 {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, payload(1024)))
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, "Error: Too much data sent before the receiver connected.", string(msg))

	assert.Eventually(t, func() bool {
		return lookupStatus(r, "flood") == http.StatusNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestServer_HeadLeavesTransferPending(t *testing.T) {
	r := startRelay(t, nil)
	ctx := context.Background()
	data := payload(5000)
	meta := domain.FileMetadata{Name: "notes.txt", Size: int64(len(data)), Type: "text/plain"}

	sent := make(chan error, 1)
	go func() { sent <- r.client.Send(ctx, "headed", meta, bytes.NewReader(data)) }()
	waitForTransfer(t, r, "headed")

	for range 2 {
		resp, err := http.Head(r.baseURL + "/headed")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(len(data)), resp.ContentLength)
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "notes.txt")
	}

	var got bytes.Buffer
	_, err := r.client.Receive(ctx, "headed", &got)
	require.NoError(t, err)
	require.NoError(t, <-sent)
	assert.Equal(t, data, got.Bytes())

	resp, err := http.Head(r.baseURL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.NotFoundError():        http.StatusNotFound,
		domain.ExistsError():          http.StatusConflict,
		domain.ReceiverTimeoutError(): http.StatusRequestTimeout,
		domain.Interrupted("gone"):    http.StatusBadGateway,
		errors.New("boom"):            http.StatusInternalServerError,
		domain.NewTransferError(domain.KindUnavailable, "down", domain.ErrBrokerUnavailable): http.StatusServiceUnavailable,
		domain.TransferID("").Validate():                                                     http.StatusBadRequest,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
