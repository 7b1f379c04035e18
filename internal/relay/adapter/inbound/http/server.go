package http_handler

import (
	"context"
	"net"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/config"
	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	sdklogger "github.com/anthanhphan/gosdk/logger"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	// goSignal is the text frame that releases the sender, and the receiver's ready frame.
	goSignal = "Go for file chunks"

	transferComplete = "Transfer complete."

	localsTransferID = "transfer_id"
)

type Server struct {
	app     *fiber.App
	cfg     *config.Config
	service port.TransferService
}

func NewServer(cfg *config.Config, service port.TransferService) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             int(cfg.Server.MaxHTTPUploadSize),
		StreamRequestBody:     true,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:     app,
		cfg:     cfg,
		service: service,
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/api/new-id", s.handleNewID)
	s.app.Get("/api/transfers/:id", s.requireTransferID, s.handleLookup)

	wsConfig := websocket.Config{
		ReadBufferSize:  s.cfg.Server.WSBufferSize,
		WriteBufferSize: s.cfg.Server.WSBufferSize,
	}
	s.app.Get("/send/:id", s.requireTransferID, requireUpgrade, websocket.New(s.handleSend, wsConfig))
	s.app.Get("/receive/:id", s.requireTransferID, requireUpgrade, websocket.New(s.handleReceive, wsConfig))

	s.app.Put("/:id/:filename", s.requireTransferID, s.handleUpload)
	s.app.Put("/:id", s.requireTransferID, s.handleUpload)
	// Get also answers HEAD, so the side-effect free variant is registered first.
	s.app.Head("/:id", s.requireTransferID, s.handleDownloadHead)
	s.app.Get("/:id", s.requireTransferID, s.handleDownload)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Addr)
}

// Serve accepts connections on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// requireTransferID rejects path-unsafe IDs before any handler or upgrade runs.
func (s *Server) requireTransferID(c *fiber.Ctx) error {
	id := domain.TransferID(c.Params("id"))
	if err := id.Validate(); err != nil {
		return s.sendError(c, err)
	}
	c.Locals(localsTransferID, id)
	return c.Next()
}

func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func transferID(c *fiber.Ctx) domain.TransferID {
	id, _ := c.Locals(localsTransferID).(domain.TransferID)
	return id
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindTimeout:
		return fiber.StatusRequestTimeout
	case domain.KindTransport:
		return fiber.StatusBadGateway
	case domain.KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) sendError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		sdklogger.Errorw("Request failed", "path", c.Path(), "error", err.Error())
	}
	return s.sendText(c, status, domain.UserMessage(err))
}

func (s *Server) sendText(c *fiber.Ctx, status int, message string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(message)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleNewID(c *fiber.Ctx) error {
	id, err := s.service.NewTransferID(c.Context())
	if err != nil {
		return s.sendError(c, err)
	}
	return c.JSON(fiber.Map{"id": id.String()})
}

func (s *Server) handleLookup(c *fiber.Ctx) error {
	record, err := s.service.Lookup(c.Context(), transferID(c))
	if err != nil {
		return s.sendError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":         record.ID.String(),
		"file_name":  record.File.Name,
		"file_size":  record.File.Size,
		"file_type":  record.File.Type,
		"summary":    record.File.String(),
		"created_at": record.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) idleTimeout() time.Duration {
	return s.cfg.Relay.IdleTimeout()
}

func (s *Server) chunkSize() int {
	return s.cfg.Relay.EffectiveChunkSize()
}
