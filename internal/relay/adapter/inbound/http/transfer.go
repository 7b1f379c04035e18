package http_handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"sync"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/fiber/v2"
)

// handleUpload is the plain HTTP sender: PUT /{id}/{filename} or PUT /{id}?filename=.
// The body is held back until a receiver binds, then streamed through the relay.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	id := transferID(c)

	size := int64(c.Request().Header.ContentLength())
	if size < 0 {
		return s.sendText(c, fiber.StatusLengthRequired, "Error: Content-Length is required.")
	}
	if size > s.cfg.Server.MaxHTTPUploadSize {
		return s.sendText(c, fiber.StatusRequestEntityTooLarge, "Error: File is too large.")
	}

	name := c.Params("filename")
	if name == "" {
		name = c.Query("filename")
	}
	meta := domain.FileMetadata{
		Name: name,
		Size: size,
		Type: string(c.Request().Header.ContentType()),
	}

	ctx := c.Context()
	up, err := s.service.CreateUpload(ctx, id, meta)
	if err != nil {
		return s.sendError(c, err)
	}
	if err := up.AwaitReceiver(ctx); err != nil {
		return s.sendError(c, err)
	}

	body := c.Context().RequestBodyStream()
	if body == nil {
		body = bytes.NewReader(c.Body())
	}

	buf := make([]byte, s.chunkSize())
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := up.Write(ctx, buf[:n]); err != nil {
				return s.sendError(c, err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			sdklogger.Warnw("Upload body read failed", "transfer_id", id.String(), "error", readErr.Error())
			up.Abort(ctx, domain.ReasonSenderDisconnected)
			return s.sendError(c, domain.SenderDisconnectedError())
		}
	}

	if err := up.Finish(ctx); err != nil {
		return s.sendError(c, err)
	}
	return s.sendText(c, fiber.StatusOK, transferComplete)
}

// handleDownload is the plain HTTP receiver: GET /{id} streams exactly file_size bytes.
func (s *Server) handleDownload(c *fiber.Ctx) error {
	id := transferID(c)

	down, err := s.service.OpenDownload(c.Context(), id)
	if err != nil {
		return s.sendError(c, err)
	}

	file := down.Record().File
	setFileHeaders(c, file)
	c.Context().SetBodyStream(newDownloadStream(down), int(file.Size))
	return nil
}

// handleDownloadHead describes a pending transfer without binding a receiver.
func (s *Server) handleDownloadHead(c *fiber.Ctx) error {
	record, err := s.service.Lookup(c.Context(), transferID(c))
	if err != nil {
		return s.sendError(c, err)
	}

	setFileHeaders(c, record.File)
	c.Status(fiber.StatusOK)
	c.Response().Header.SetContentLength(int(record.File.Size))
	return nil
}

func setFileHeaders(c *fiber.Ctx, file domain.FileMetadata) {
	c.Set(fiber.HeaderContentType, file.Type)
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
}

// downloadStream adapts a Download to the io.ReadCloser fasthttp drains after the handler returns.
// fasthttp stops reading at Content-Length, so the DONE frame is consumed in Close.
type downloadStream struct {
	down    port.Download
	size    int64
	sent    int64
	pending []byte
	done    bool
	once    sync.Once
}

func newDownloadStream(down port.Download) *downloadStream {
	return &downloadStream{down: down, size: down.Record().File.Size}
}

func (d *downloadStream) Read(p []byte) (int, error) {
	for len(d.pending) == 0 {
		if d.done {
			return 0, io.EOF
		}
		chunk, err := d.down.Next(context.Background())
		if errors.Is(err, io.EOF) {
			d.done = true
			return 0, io.EOF
		}
		if err != nil {
			sdklogger.Warnw("Download stream ended early",
				"transfer_id", d.down.Record().ID.String(),
				"error", err.Error(),
			)
			return 0, err
		}
		d.pending = chunk
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	d.sent += int64(n)
	return n, nil
}

// Close completes the session once every byte went out, and interrupts the sender otherwise.
func (d *downloadStream) Close() error {
	d.once.Do(func() {
		if d.done {
			return
		}
		if d.sent == d.size && len(d.pending) == 0 {
			if _, err := d.down.Next(context.Background()); !errors.Is(err, io.EOF) && err != nil {
				sdklogger.Warnw("Transfer did not end cleanly", "transfer_id", d.down.Record().ID.String(), "error", err.Error())
			}
			d.done = true
			return
		}
		d.down.Abort(context.Background(), domain.ReasonReceiverInterrupted)
	})
	return nil
}
