package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/redis/go-redis/v9"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/groupcart/internal/auth"
	"github.com/mmynk/groupcart/internal/cache"
	"github.com/mmynk/groupcart/internal/catalog"
	"github.com/mmynk/groupcart/internal/config"
	"github.com/mmynk/groupcart/internal/coordinator"
	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/httpx"
	"github.com/mmynk/groupcart/internal/metrics"
	"github.com/mmynk/groupcart/internal/middleware"
	"github.com/mmynk/groupcart/internal/payments"
	"github.com/mmynk/groupcart/internal/service"
	"github.com/mmynk/groupcart/internal/storage"
	"github.com/mmynk/groupcart/internal/storage/postgres"
	"github.com/mmynk/groupcart/internal/storage/sqlite"
	"github.com/mmynk/groupcart/internal/telemetry"
	"github.com/mmynk/groupcart/pkg/logging"
)

const devJWTSecret = "groupcart-dev-secret"

func main() {
	cfg, err := config.Load()
	logging.Setup(cfg.ServiceName)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.Connect(ctx, cfg.PostgresDSN)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.ServiceName, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	if cfg.CatalogFile != "" {
		if _, err := catalog.Seed(ctx, store, cfg.CatalogFile); err != nil {
			return err
		}
	}

	m := metrics.New()
	coordOpts := []coordinator.Option{
		coordinator.WithMetrics(m),
		coordinator.WithProducerName(cfg.ServiceName),
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = cache.New(cfg.RedisAddr)
		defer rdb.Close()
		coordOpts = append(coordOpts, coordinator.WithSnapshotCache(cache.NewSnapshots(rdb, cfg.SnapshotTTL)))
		slog.Info("Snapshot cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.SnapshotTTL)
	}

	var publisher *events.KafkaPublisher
	if cfg.KafkaEnabled() {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaEventsTopic, 1024)
		publisher.Start(ctx)
		coordOpts = append(coordOpts, coordinator.WithPublisher(publisher))
	}

	coord := coordinator.New(store, coordOpts...)

	var handlerOpts []payments.HandlerOption
	if rdb != nil {
		handlerOpts = append(handlerOpts, payments.WithDedup(cache.NewDedup(rdb, cfg.KafkaGroupID)))
	}
	paymentHandler := payments.NewHandler(coord, handlerOpts...)

	// Stays nil without Kafka so the select below never picks it.
	var consumerDone chan error
	if cfg.KafkaEnabled() {
		consumerDone = make(chan error, 1)
		consumer := payments.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.KafkaPaymentTopic, cfg.PaymentWorkers)
		go func() { consumerDone <- consumer.Start(ctx, paymentHandler.HandleMessage) }()
	}

	secret := cfg.JWTSecret
	if secret == "" {
		slog.Warn("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	jwtManager := auth.NewJWTManager(secret, cfg.ServiceName, 24*time.Hour)

	groupPath, groupHandler := service.NewGroupServiceHandler(service.NewGroupService(coord),
		connect.WithInterceptors(middleware.LoggingInterceptor(m), middleware.RequireAuth(jwtManager)))
	cartPath, cartHandler := service.NewCartServiceHandler(service.NewCartService(coord),
		connect.WithInterceptors(middleware.LoggingInterceptor(m), middleware.OptionalAuth(jwtManager)))

	routerOpts := httpx.Options{
		Store:   store,
		Metrics: m,
		Services: map[string]http.Handler{
			groupPath: groupHandler,
			cartPath:  cartHandler,
		},
	}
	if cfg.WebhookSecret != "" {
		routerOpts.Webhook = httpx.NewWebhookHandler(paymentHandler, cfg.WebhookSecret)
	}

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h2c.NewHandler(httpx.NewRouter(routerOpts), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("listen: %w", err)
		}
	case err := <-consumerDone:
		if err != nil {
			runErr = fmt.Errorf("payment consumer: %w", err)
		}
		consumerDone = nil
	}
	slog.Info("Shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	stop()
	if consumerDone != nil {
		<-consumerDone
	}
	if publisher != nil {
		publisher.WaitClosed()
	}
	return runErr
}
