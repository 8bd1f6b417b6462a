package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wavesplatform/push-notifications/internal/localization"
	"github.com/wavesplatform/push-notifications/internal/storage"
	"github.com/wavesplatform/push-notifications/internal/stream"
	"github.com/wavesplatform/push-notifications/libs/health"
	"github.com/wavesplatform/push-notifications/libs/httpmiddleware"
	"github.com/wavesplatform/push-notifications/libs/logging"
	"github.com/wavesplatform/push-notifications/libs/metrics"
	"github.com/wavesplatform/push-notifications/libs/trace"
	"github.com/wavesplatform/push-notifications/services/processor-orders/internal/config"
	"github.com/wavesplatform/push-notifications/services/processor-orders/internal/processor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.App.LogLevel, cfg.App.ServiceName, cfg.App.Env)
	shutdownTracer, err := trace.InitTracer(cfg.App.ServiceName, cfg.App.Env)
	if err != nil {
		logger.Error("tracer init failed", "error", err)
	} else {
		defer func() {
			_ = shutdownTracer(context.Background())
		}()
	}

	if cfg.App.Env == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)
	processorMetrics := processor.NewMetrics(registry)

	ready := health.NewManager(false)

	pool, err := connectDB(cfg)
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := storage.New(pool, logger)

	localizer, err := localization.LoadRemote(context.Background(), cfg.Processor.TranslationsURL)
	if err != nil {
		logger.Error("translations load failed", "error", err)
		os.Exit(1)
	}

	source, err := buildSource(cfg, logger)
	if err != nil {
		logger.Error("stream source init failed", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	proc := processor.New(source, store, localizer, logger, processorMetrics, cfg.Processor.BatchSize)

	httpServer := buildHTTPServer(cfg, ready, registry, logger)

	ready.SetReady(true)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go func() {
		logger.Info("order processor http starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("order processor starting", "backend", cfg.Stream.Backend)
		if err := proc.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.Error("processor stopped", "error", err)
		}
	}()

	waitForShutdown(httpServer, ready, runCancel, done, logger)
}

func buildSource(cfg *config.Config, logger *slog.Logger) (stream.Source, error) {
	switch cfg.Stream.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return stream.NewRedisSource(ctx, stream.RedisConfig{
			Addr:     cfg.Stream.Redis.Addr,
			User:     cfg.Stream.Redis.User,
			Password: cfg.Stream.Redis.Password,
			Stream:   cfg.Stream.Redis.Stream,
			Group:    cfg.Stream.Redis.Group,
			Consumer: cfg.Stream.Redis.Consumer,
		}, logger)
	case "kafka":
		return stream.NewKafkaSource(stream.KafkaConfig{
			Brokers: cfg.Stream.Kafka.Brokers,
			Topic:   cfg.Stream.Kafka.Topic,
			Group:   cfg.Stream.Kafka.Group,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown stream backend %q", cfg.Stream.Backend)
	}
}

func connectDB(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.App.DB.URL())
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func buildHTTPServer(cfg *config.Config, ready *health.Manager, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	router := gin.New()
	router.Use(httpmiddleware.RequestID())
	router.Use(httpmiddleware.Logger(logger))
	router.Use(httpmiddleware.Recovery(logger))
	router.Use(trace.Middleware(cfg.App.ServiceName))

	router.GET("/healthz", health.LivenessHandler)
	router.GET("/readyz", health.ReadinessHandler(ready))
	router.GET(cfg.App.MetricsPath, gin.WrapH(metrics.Handler(registry)))

	addr := fmt.Sprintf("%s:%d", cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.App.HTTP.ReadTimeout,
		WriteTimeout: cfg.App.HTTP.WriteTimeout,
		IdleTimeout:  cfg.App.HTTP.IdleTimeout,
	}
}

func waitForShutdown(httpServer *http.Server, ready *health.Manager, cancel context.CancelFunc, done chan struct{}, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutdown started")
	ready.SetReady(false)
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("processor did not stop in time")
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
