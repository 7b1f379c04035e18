package http_handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/contrib/websocket"
)

// maxCloseReason is the control-frame payload limit minus the status code.
const maxCloseReason = 123

// inbound is one message read from a websocket by the reader goroutine.
type inbound struct {
	kind int
	data []byte
}

// readLoop forwards messages until the peer goes away, then cancels ctx.
// Each send blocks until the handler takes the message or ctx ends.
func readLoop(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) <-chan inbound {
	out := make(chan inbound)
	go func() {
		defer close(out)
		defer cancel()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case out <- inbound{kind: kind, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func writeText(conn *websocket.Conn, deadline time.Duration, text string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(deadline))
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// closeWith sends the optional error text, then a close frame.
func closeWith(conn *websocket.Conn, err error) {
	code := websocket.CloseNormalClosure
	reason := ""
	if err != nil {
		code = websocket.CloseInternalServerErr
		reason = domain.UserMessage(err)
		_ = writeText(conn, time.Second, reason)
		if len(reason) > maxCloseReason {
			reason = reason[:maxCloseReason]
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

// handleSend is the sender adapter: metadata, wait for a receiver, then binary frames until an empty one.
func (s *Server) handleSend(conn *websocket.Conn) {
	defer conn.Close()

	id := domain.TransferID(conn.Params("id"))
	conn.SetReadLimit(domain.MaxChunkSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages := readLoop(ctx, conn, cancel)

	var first inbound
	select {
	case msg, ok := <-messages:
		if !ok {
			return
		}
		first = msg
	case <-time.After(s.idleTimeout()):
		closeWith(conn, domain.UploadIdleError())
		return
	}

	var meta domain.FileMetadata
	if first.kind != websocket.TextMessage || json.Unmarshal(first.data, &meta) != nil {
		closeWith(conn, domain.NewTransferError(domain.KindValidation, "Invalid file metadata.", domain.ErrInvalidMetadata))
		return
	}

	up, err := s.service.CreateUpload(ctx, id, meta)
	if err != nil {
		sdklogger.Warnw("Sender rejected", "transfer_id", id.String(), "error", err.Error())
		closeWith(conn, err)
		return
	}

	// Keep reading while the receiver is awaited so a hang-up is noticed right away.
	// Binary frames that arrive early are held, up to one queue's worth, and replayed after the go signal.
	awaited := make(chan error, 1)
	go func() { awaited <- up.AwaitReceiver(ctx) }()

	var (
		early      [][]byte
		earlyBytes int64
	)
	for waiting := true; waiting; {
		select {
		case err := <-awaited:
			if err != nil {
				closeWith(conn, err)
				return
			}
			waiting = false
		case msg, ok := <-messages:
			if !ok {
				// ctx is already cancelled, so the wait fails and the record is released.
				if err := <-awaited; err == nil {
					up.Abort(ctx, domain.ReasonSenderDisconnected)
				}
				return
			}
			if msg.kind != websocket.BinaryMessage {
				continue
			}
			earlyBytes += int64(len(msg.data))
			if earlyBytes > s.cfg.Relay.QueueCapacity() {
				cancel()
				if err := <-awaited; err == nil {
					up.Abort(ctx, domain.ReasonSenderDisconnected)
				}
				closeWith(conn, domain.NewTransferError(domain.KindValidation, "Too much data sent before the receiver connected.", nil))
				return
			}
			early = append(early, msg.data)
		}
	}

	if err := writeText(conn, s.idleTimeout(), goSignal); err != nil {
		up.Abort(ctx, domain.ReasonSenderDisconnected)
		return
	}
	for _, data := range early {
		if !forward(ctx, conn, up, data) {
			return
		}
	}

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				up.Abort(ctx, domain.ReasonSenderDisconnected)
				return
			}
			if msg.kind != websocket.BinaryMessage {
				continue
			}
			if !forward(ctx, conn, up, msg.data) {
				return
			}
		case <-time.After(s.idleTimeout()):
			up.Abort(ctx, "Timeout during upload.")
			closeWith(conn, domain.UploadIdleError())
			return
		}
	}
}

// forward hands one binary frame to the upload and reports whether the sender should keep going.
func forward(ctx context.Context, conn *websocket.Conn, up port.Upload, data []byte) bool {
	if len(data) == 0 {
		// The sender may hang up right after DONE; that must not fail the transfer.
		closeWith(conn, up.Finish(context.WithoutCancel(ctx)))
		return false
	}
	if err := up.Write(ctx, data); err != nil {
		closeWith(conn, err)
		return false
	}
	return true
}

// handleReceive is the websocket receiver adapter: metadata out, ready in, then binary frames and an empty one.
func (s *Server) handleReceive(conn *websocket.Conn) {
	defer conn.Close()

	id := domain.TransferID(conn.Params("id"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	record, err := s.service.Lookup(ctx, id)
	if err != nil {
		closeWith(conn, err)
		return
	}

	header, err := json.Marshal(record.File)
	if err != nil {
		closeWith(conn, err)
		return
	}
	if err := writeText(conn, s.idleTimeout(), string(header)); err != nil {
		return
	}

	messages := readLoop(ctx, conn, cancel)
	select {
	case msg, ok := <-messages:
		if !ok {
			return
		}
		if msg.kind != websocket.TextMessage {
			closeWith(conn, domain.NewTransferError(domain.KindValidation, "Expected a ready message.", nil))
			return
		}
	case <-time.After(s.cfg.Relay.ReceiverTimeout()):
		closeWith(conn, domain.DownloadIdleError())
		return
	}

	down, err := s.service.OpenDownload(ctx, id)
	if err != nil {
		closeWith(conn, err)
		return
	}

	// Frames the receiver sends from now on are ignored; a closed connection cancels ctx.
	go func() {
		for range messages {
		}
	}()

	for {
		chunk, err := down.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = conn.SetWriteDeadline(time.Now().Add(s.idleTimeout()))
				if err := conn.WriteMessage(websocket.BinaryMessage, []byte{}); err != nil {
					return
				}
				closeWith(conn, nil)
				return
			}
			closeWith(conn, err)
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(s.idleTimeout()))
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			down.Abort(ctx, domain.ReasonReceiverInterrupted)
			return
		}
	}
}
