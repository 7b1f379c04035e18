package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	httpHandler "github.com/anthanhphan/go-transit-relay/internal/relay/adapter/inbound/http"
	"github.com/anthanhphan/go-transit-relay/internal/relay/adapter/outbound/membroker"
	"github.com/anthanhphan/go-transit-relay/internal/relay/adapter/outbound/redisbroker"
	"github.com/anthanhphan/go-transit-relay/internal/relay/config"
	"github.com/anthanhphan/go-transit-relay/internal/relay/port"
	"github.com/anthanhphan/go-transit-relay/internal/relay/service"
	"github.com/anthanhphan/go-transit-relay/pkg/idgen"
	"github.com/anthanhphan/go-transit-relay/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg     *config.Config
	server  *httpHandler.Server
	service *service.RelayServiceImpl
	broker  port.Broker
	janitor *resilience.WorkerPool
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. Broker and Snowflake IDGen
	broker, clock, err := newBroker(cfg)
	if err != nil {
		return nil, err
	}

	idGen, err := idgen.New(cfg.App.NodeID, clock)
	if err != nil {
		_ = broker.Close()
		return nil, fmt.Errorf("failed to init snowflake: %w", err)
	}

	// 4. Cleanup workers
	janitor := resilience.NewWorkerPool(cfg.Relay.CleanupWorkers, cfg.Relay.CleanupWorkers*64)
	janitor.OnPanic(func(recovered any) {
		logger.Errorw("Cleanup job panicked", "panic", fmt.Sprint(recovered))
	})

	// 5. Service
	svc := service.NewRelayService(cfg, broker, idGen, janitor)

	// 6. HTTP Server
	httpServer := httpHandler.NewServer(cfg, svc)

	return &App{
		cfg:     cfg,
		server:  httpServer,
		service: svc,
		broker:  broker,
		janitor: janitor,
	}, nil
}

// newBroker builds the configured backend and the clock IDs are stamped with.
func newBroker(cfg *config.Config) (port.Broker, idgen.Clock, error) {
	switch cfg.Broker.Backend {
	case config.BackendMemory:
		logger.Warnw("Using in-memory broker; transfers cannot span relay instances")
		return membroker.New(cfg.Relay.QueueCapacity()), &idgen.SystemClock{}, nil

	case config.BackendRedis, "":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "redis-broker",
			FailureThreshold: cfg.Broker.BreakerFailureThreshold,
			OpenTimeout:      cfg.Broker.BreakerOpenTimeout(),
			IsFailure:        redisbroker.IsBrokerFailure,
			OnStateChange: func(name string, from, to resilience.CircuitBreakerState) {
				logger.Warnw("Circuit breaker state changed", "breaker", name, "from", string(from), "to", string(to))
			},
		})

		broker := redisbroker.New(client, redisbroker.Options{
			CapacityBytes: cfg.Relay.QueueCapacity(),
			RecordTTL:     cfg.Relay.RecordTTL(),
			PollInterval:  cfg.Relay.PollInterval(),
			Breaker:       breaker,
		})
		return broker, idgen.NewRedisClock(client), nil

	default:
		return nil, nil, fmt.Errorf("unknown broker backend %q", cfg.Broker.Backend)
	}
}

func (a *App) Run() error {
	// Start HTTP
	logger.Infow("Transit relay starting", "addr", a.cfg.Server.Addr, "broker", a.cfg.Broker.Backend)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			serverErrCh <- err
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		logger.Infow("Shutdown signal received", "signal", sig.String())
	case err := <-serverErrCh:
		runErr = fmt.Errorf("http server failed: %w", err)
		logger.Errorw("Relay server exited unexpectedly", "error", err.Error())
	}

	logger.Info("Shutting down relay")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Relay.CleanupTimeout())
	defer cancel()

	keep := func(err error) {
		if err != nil && runErr == nil {
			runErr = err
		}
	}

	if err := a.server.Stop(ctx); err != nil {
		logger.Errorw("Relay shutdown error", "error", err.Error())
		keep(err)
	}
	if err := a.service.Shutdown(ctx); err != nil {
		logger.Errorw("Pending cleanups did not finish", "error", err.Error())
		keep(err)
	}
	if err := a.janitor.Shutdown(ctx); err != nil {
		logger.Errorw("Cleanup workers did not stop", "error", err.Error())
		keep(err)
	}
	if err := a.broker.Close(); err != nil {
		logger.Errorw("Broker close error", "error", err.Error())
		keep(err)
	}

	return runErr
}
