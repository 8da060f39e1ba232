package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalogstore/internal/config"
	"github.com/utafrali/catalogstore/internal/event"
	handler "github.com/utafrali/catalogstore/internal/handler/http"
	"github.com/utafrali/catalogstore/internal/repository/jsonfile"
	"github.com/utafrali/catalogstore/internal/service"
	"github.com/utafrali/catalogstore/internal/storage/local"
	"github.com/utafrali/catalogstore/pkg/database"
	"github.com/utafrali/catalogstore/pkg/health"
	pkgkafka "github.com/utafrali/catalogstore/pkg/kafka"
	"github.com/utafrali/catalogstore/pkg/middleware"
	"github.com/utafrali/catalogstore/pkg/tracing"
)

// serviceName identifies the service in traces and event envelopes.
const serviceName = "catalog-service"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	producer       *pkgkafka.Producer
	redis          *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Open the document store.
	store, err := jsonfile.Open(cfg.DataDir)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("open document store: %w", err)
	}
	logger.Info("document store ready", slog.String("dir", store.Dir))

	images, err := local.New(cfg.ImagesDir, cfg.ImagesBaseURL())
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("open image storage: %w", err)
	}

	healthHandler := health.NewHandler()
	healthHandler.Register("data_dir", health.DirWritable(cfg.DataDir))
	healthHandler.Register("images_dir", health.DirWritable(cfg.ImagesDir))

	// Initialize Kafka producer.
	var events event.Publisher = event.Noop{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Rate limiter: shared across replicas through redis, otherwise per process.
	var limiter middleware.Limiter
	if cfg.RedisEnabled {
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB

		a.redis, err = database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		healthHandler.Register("redis", database.RedisPinger(a.redis))
		logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))
	}
	if cfg.RateLimitEnabled {
		if a.redis != nil {
			limiter = middleware.NewRedisLimiter(a.redis, cfg.RateLimitPerWindow(), cfg.RateLimitWindow)
		} else {
			limiter = middleware.NewLocalLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
		}
	}

	// Build the dependency graph.
	products := service.NewProductService(store.Products, store.Reviews, images, events, logger)
	reviews := service.NewReviewService(store.Reviews, events, logger)
	uploads := service.NewImageService(store.Products, images, events, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Products:          products,
		Reviews:           reviews,
		Images:            uploads,
		Health:            healthHandler,
		Limiter:           limiter,
		TrustedProxyCIDRs: cfg.TrustedProxyCIDRs,
		AllowedOrigins:    cfg.AllowedOrigins(),
		ImagesDir:         cfg.ImagesDir,
		ImagesPath:        cfg.ImagesPath,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeAll()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka producer and redis client
// 3. Tracer (flush pending spans)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases the clients opened by NewApp. It is safe to call on a
// partially built App.
func (a *App) closeAll() error {
	var errs []error

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}

	if a.tracerShutdown != nil {
		tracerCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	return errors.Join(errs...)
}
