package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_eshop/cart-service/internal/cache"
	"github.com/fjod/go_eshop/cart-service/internal/checkout"
	"github.com/fjod/go_eshop/cart-service/internal/config"
	"github.com/fjod/go_eshop/cart-service/internal/discount"
	h "github.com/fjod/go_eshop/cart-service/internal/http"
	"github.com/fjod/go_eshop/cart-service/internal/outbox"
	"github.com/fjod/go_eshop/cart-service/internal/pricing"
	"github.com/fjod/go_eshop/cart-service/internal/repository"
	"github.com/fjod/go_eshop/cart-service/internal/service"
	"github.com/fjod/go_eshop/pkg/circuitbreaker"
	"github.com/fjod/go_eshop/pkg/httpx"
	"github.com/fjod/go_eshop/pkg/logger"
	"github.com/fjod/go_eshop/pkg/messaging"
	"github.com/fjod/go_eshop/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "cart-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(serviceName, "info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongoDB.Client().Disconnect(context.Background())

	repo := repository.NewMongoRepository(mongoDB)
	if err := repo.CreateIndexes(ctx); err != nil {
		log.Error("failed to create cart indexes", "error", err)
		os.Exit(1)
	}
	log.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	// Metrics
	reg := prometheus.NewRegistry()
	serverMetrics := metrics.NewServerMetrics(reg, serviceName)
	breakerState := metrics.NewBreakerState(reg, serviceName)
	onBreakerChange := func(name string, from, to circuitbreaker.State) {
		breakerState.Set(name, int(to))
		log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	}

	// Pricing
	discountBreaker := circuitbreaker.New("discount", circuitbreaker.DefaultPolicy(), onBreakerChange)
	directory := discount.NewClient(cfg.DiscountURL, cfg.DiscountTimeout, log, discount.WithBreaker(discountBreaker))
	engine := pricing.NewEngine(directory, log)
	carts := service.NewCartService(repo, cache.NewRedisCache(redisClient, cfg.CacheTTL, cfg.CacheJitter), engine, log)

	// Messaging
	publishBreaker := circuitbreaker.New("kafka-publisher", circuitbreaker.Policy{
		TripThreshold:   cfg.BreakerTripThreshold,
		ActiveThreshold: cfg.BreakerActiveThreshold,
		TrackingPeriod:  cfg.BreakerTrackingPeriod,
		ResetInterval:   cfg.BreakerResetInterval,
		ProbeRequests:   1,
	}, onBreakerChange)
	writer := messaging.NewWriter(cfg.CheckoutTopic, cfg.KafkaBrokers...)
	publisher := messaging.NewPublisher(writer, publishBreaker, messaging.RetryPolicy{
		MaxRetries:  cfg.PublishMaxRetries,
		MinInterval: cfg.PublishMinInterval,
		MaxInterval: cfg.PublishMaxInterval,
		Jitter:      cfg.PublishJitter,
	}, log)
	defer publisher.Close()

	var wg sync.WaitGroup
	opts := []checkout.Option{checkout.WithOutcomeCounter(checkout.NewOutcomeCounter(reg))}
	if cfg.CheckoutMode == string(checkout.ModeOutbox) {
		store := outbox.NewMongoStore(mongoDB)
		if err := store.CreateIndexes(ctx); err != nil {
			log.Error("failed to create outbox indexes", "error", err)
			os.Exit(1)
		}
		opts = append(opts, checkout.WithOutbox(store))

		relay := outbox.NewRelay(store, publisher, outbox.RelayConfig{
			BatchSize: cfg.RelayBatchSize,
			EventTick: cfg.RelayInterval,
			PurgeTick: cfg.PurgeInterval,
			Retention: cfg.OutboxRetention,
		}, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
	}
	orchestrator := checkout.New(carts, publisher, log, opts...)
	log.Info("checkout configured", "mode", orchestrator.Mode(), "topic", cfg.CheckoutTopic)

	// HTTP
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(serverMetrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler(reg))
	h.NewCartHandler(carts, orchestrator, log, cfg.RequestTimeout).Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("cart service listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	// gRPC health
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Error("failed to listen", "port", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)
	go func() {
		log.Info("grpc health listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down cart service")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("outbox relay did not stop in time")
	}
	log.Info("cart service stopped")
}
