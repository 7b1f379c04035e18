package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/gorilla/websocket"
)

func (c *Client) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL(path), nil)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return nil, relayError(resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	return conn, nil
}

// endError turns a read error at the end of a stream into the relay's reason when it sent one.
func endError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == websocket.CloseNormalClosure {
			return nil
		}
		if isRelayError(closeErr.Text) {
			return relayError(0, closeErr.Text)
		}
	}
	return fmt.Errorf("%w: %v", ErrIncomplete, err)
}

func closeConn(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = conn.Close()
}

// awaitEnd reads until the relay reports an error or closes the connection.
func awaitEnd(conn *websocket.Conn) error {
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return endError(err)
		}
		if kind == websocket.TextMessage && isRelayError(string(msg)) {
			return relayError(0, string(msg))
		}
	}
}

// Send uploads r as the file described by meta. It blocks until a receiver has taken every byte.
func (c *Client) Send(ctx context.Context, id string, meta domain.FileMetadata, r io.Reader) error {
	conn, err := c.dial(ctx, "/send/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	defer closeConn(conn)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	header, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, header); err != nil {
		return fmt.Errorf("send metadata: %w", err)
	}

	_, reply, err := conn.ReadMessage()
	if err != nil {
		if endErr := endError(err); endErr != nil {
			return endErr
		}
		return ErrIncomplete
	}
	if string(reply) != goSignal {
		if isRelayError(string(reply)) {
			return relayError(0, string(reply))
		}
		return fmt.Errorf("unexpected relay reply %q", reply)
	}

	// From here on the relay only speaks to report an error or to close.
	result := make(chan error, 1)
	go func() { result <- awaitEnd(conn) }()

	buf := make([]byte, c.chunkSize)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); err != nil {
				return preferRelay(result, err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read file: %w", readErr)
		}

		select {
		case err := <-result:
			if err == nil {
				err = ErrIncomplete
			}
			return err
		default:
		}
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{}); err != nil {
		return preferRelay(result, err)
	}
	return <-result
}

// preferRelay reports the relay's own reason for a failed write when it arrives shortly.
func preferRelay(result <-chan error, writeErr error) error {
	select {
	case err := <-result:
		if err != nil {
			return err
		}
	case <-time.After(time.Second):
	}
	return fmt.Errorf("send chunk: %w", writeErr)
}

// Receive downloads the transfer into w and returns its metadata.
func (c *Client) Receive(ctx context.Context, id string, w io.Writer) (domain.FileMetadata, error) {
	var meta domain.FileMetadata

	conn, err := c.dial(ctx, "/receive/"+url.PathEscape(id))
	if err != nil {
		return meta, err
	}
	defer closeConn(conn)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	_, header, err := conn.ReadMessage()
	if err != nil {
		if endErr := endError(err); endErr != nil {
			return meta, endErr
		}
		return meta, ErrIncomplete
	}
	if isRelayError(string(header)) {
		return meta, relayError(0, string(header))
	}
	if err := json.Unmarshal(header, &meta); err != nil {
		return meta, fmt.Errorf("decode metadata: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(goSignal)); err != nil {
		return meta, fmt.Errorf("send ready: %w", err)
	}

	var received int64
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if endErr := endError(err); endErr != nil {
				return meta, endErr
			}
			return meta, ErrIncomplete
		}

		switch kind {
		case websocket.TextMessage:
			if isRelayError(string(data)) {
				return meta, relayError(0, string(data))
			}
		case websocket.BinaryMessage:
			if len(data) == 0 {
				if received != meta.Size {
					return meta, fmt.Errorf("%w: got %d of %d bytes", ErrIncomplete, received, meta.Size)
				}
				return meta, nil
			}
			if _, err := w.Write(data); err != nil {
				return meta, fmt.Errorf("write file: %w", err)
			}
			received += int64(len(data))
		}
	}
}
