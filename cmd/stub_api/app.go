package stubapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"taxi-client/internal/general/config"
	"taxi-client/internal/general/jwt"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/rabbitmq"
	"taxi-client/internal/software/stubapi/handler"
	"taxi-client/internal/software/stubapi/service"
)

// Run serves the development backend and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	log := logger.New("taxi-stub-api")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": configPath})
		return err
	}

	accounts, err := service.NewAccountBook(service.DefaultSeed, 0)
	if err != nil {
		log.Error(ctx, "seed_failed", "Failed to seed accounts", err, nil)
		return err
	}

	tokens := jwt.NewManager(cfg.JWT.SecretKey, cfg.JWT.TTL)

	var push service.PushPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer rmq.Close()
		push = rabbitmq.NewMQPublisher(rmq)
	}

	backend := service.NewBackend(log, accounts, tokens, push)
	httpHandler := handler.NewHandler(log, backend, tokens)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.StubAPI.Port),
		Handler:           withConcurrencyLimit(maxConcurrent, httpHandler.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started", fmt.Sprintf("Stub API started on port %d", cfg.StubAPI.Port),
		map[string]any{"port": cfg.StubAPI.Port, "max_concurrent": maxConcurrent, "push": push != nil})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.StubAPI.Port})
		}
		return err
	}
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
