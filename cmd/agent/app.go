package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"taxi-client/internal/cli"
	"taxi-client/internal/domain/notification"
	"taxi-client/internal/general/apiclient"
	"taxi-client/internal/general/config"
	"taxi-client/internal/general/eventbus"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/rabbitmq"
	"taxi-client/internal/general/websocket"
	pushservice "taxi-client/internal/software/push/service"
	trackinghandler "taxi-client/internal/software/tracking/handler"
	trackingservice "taxi-client/internal/software/tracking/service"

	"golang.org/x/sync/errgroup"
)

// Run wires the client agent and blocks until ctx is cancelled or a component fails.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	log := logger.New("taxi-agent")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": configPath})
		return err
	}

	storage, err := cli.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db_connection_failed", "Failed to initialize storage", err, nil)
		return err
	}
	defer storage.Close()

	store, err := storage.SessionStore(ctx, log)
	if err != nil {
		log.Error(ctx, "session_load_failed", "Failed to restore session", err, nil)
		return err
	}

	// every backend call after login goes through the bearer-injecting transport
	transport := apiclient.NewAuthorizedTransport(log, &http.Client{}, store)
	api, err := apiclient.NewClient(transport, cfg.API.BaseURL, cfg.API.RequestTimeout)
	if err != nil {
		log.Error(ctx, "api_client_failed", "Invalid API configuration", err, nil)
		return err
	}

	bus := eventbus.New[notification.TaxiRequestStatusChanged](ctx, log)
	defer bus.Close()

	tracker := trackingservice.NewTracker(log, api, storage.UOW, storage.TaxiRequests, storage.Trips)
	unsubscribe, err := bus.Subscribe("tracker", 0, tracker.HandleStatusChanged)
	if err != nil {
		return err
	}
	defer unsubscribe()

	bridge := websocket.NewBridge(log, store)
	tracker.AddListener(bridge)

	httpHandler := trackinghandler.NewHandler(log, tracker, bridge, store)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebSocket.Port),
		Handler:           withConcurrencyLimit(maxConcurrent, httpHandler.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(ctx, "service_started", fmt.Sprintf("Taxi agent listening on port %d", cfg.WebSocket.Port),
			map[string]any{"port": cfg.WebSocket.Port, "login_status": store.LoginStatus().String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.WebSocket.Port})
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	})

	if cfg.RabbitMQ.Enabled {
		rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer rmq.Close()

		pipeline := pushservice.NewPipeline(log, bus, cfg.Push.MaxMessageAge, cfg.Push.ClockSkew)
		consumer := pushservice.NewConsumer(log, rmq, pipeline, rmq.Topology().Queue, cfg.Push.Prefetch)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	} else {
		log.Info(ctx, "push_consumer_disabled", "RabbitMQ disabled; push notifications are not consumed", nil)
	}

	return g.Wait()
}

// withConcurrencyLimit caps in-flight HTTP requests; websocket upgrades hold a slot while open.
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
