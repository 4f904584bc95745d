package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"studyrooms/internal/reservations/events"
	"studyrooms/internal/reservations/handler"
	"studyrooms/internal/reservations/reaper"
	"studyrooms/internal/reservations/repository"
	"studyrooms/internal/reservations/service"
	"studyrooms/internal/reservations/validator"
	"studyrooms/pkg/clock"
	"studyrooms/pkg/config"
	"studyrooms/pkg/contracts"
	"studyrooms/pkg/kafka"
	kafka_middleware "studyrooms/pkg/kafka/middleware"
	"studyrooms/pkg/metrics"
	"studyrooms/pkg/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Application struct {
	cfg      *config.Config
	clock    clock.Clock
	registry *prometheus.Registry
	repo     repository.ReservationRepository

	server           *http.Server
	handler          http.Handler
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.ClientRateLimiter
	reaper           *reaper.Reaper
	producer         *kafka.Producer
	metrics          *metrics.Metrics
}

type Option func(*Application)

// WithClock replaces the wall clock used by the service and the reaper.
func WithClock(c clock.Clock) Option {
	return func(a *Application) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithRepository bypasses STORE_DRIVER with a ready repository.
func WithRepository(repo repository.ReservationRepository) Option {
	return func(a *Application) {
		a.repo = repo
	}
}

func NewApplication(cfg *config.Config, opts ...Option) *Application {
	a := &Application{
		cfg:      cfg,
		clock:    clock.NewSystem(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetApp builds the object graph: store, lock, publisher, service, reaper and
// the HTTP stack.
func (a *Application) SetApp(ctx context.Context) error {
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	repo, err := a.newRepository()
	if err != nil {
		return err
	}

	lock, err := repository.NewResourceLock(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize resource lock: %w", err)
	}

	publisher, err := a.newPublisher()
	if err != nil {
		return err
	}

	reservationService := service.NewReservationService(
		repo,
		lock,
		validator.NewReservationValidator(a.cfg),
		publisher,
		a.clock,
		a.metrics,
		a.cfg,
	)

	if a.cfg.ReaperEnabled {
		a.reaper = reaper.New(repo, a.cfg.Log.Component("reaper"),
			reaper.WithGracePeriod(a.cfg.GracePeriod),
			reaper.WithInterval(a.cfg.SweepInterval),
			reaper.WithLookback(a.cfg.SweepLookback),
			reaper.WithClock(a.clock),
			reaper.WithPublisher(publisher),
			reaper.WithMetrics(a.metrics),
		)
	}

	healthHandler := a.newHealthHandler(handler.NewHealthHandler(reservationService, a.cfg.Log))
	appHandler := a.newAppHandler(handler.NewReservationHandler(reservationService, a.cfg.Log))

	mux := http.NewServeMux()
	mux.Handle("/health", healthHandler)
	mux.Handle("/ready", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	mux.Handle("/", appHandler)
	a.handler = mux

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
	return nil
}

func (a *Application) newRepository() (repository.ReservationRepository, error) {
	if a.repo != nil {
		return a.repo, nil
	}

	switch a.cfg.StoreDriver {
	case config.StoreDriverGoogle:
		if a.cfg.Client.Calendar == nil {
			return nil, errors.New("calendar client is not initialized")
		}
		a.cfg.Log.Info("Using Google Calendar reservation store", "calendar_id", a.cfg.CalendarID)
		a.repo = repository.NewCalendarReservationRepository(a.cfg, a.metrics)
	case config.StoreDriverMemory:
		a.cfg.Log.Warn("Using in-memory reservation store, reservations are lost on restart")
		a.repo = repository.NewMemoryReservationRepository()
	default:
		return nil, fmt.Errorf("unknown store driver: %s", a.cfg.StoreDriver)
	}
	return a.repo, nil
}

func (a *Application) newPublisher() (events.Publisher, error) {
	if a.cfg.Kafka == nil || !a.cfg.Kafka.Enabled() {
		a.cfg.Log.Info("Kafka brokers not configured, lifecycle events disabled")
		return events.NoopPublisher{}, nil
	}

	producer, err := kafka.NewProducer(a.cfg.Kafka, a.cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(a.cfg.Log.Component("kafka")))
	producer.Use(kafka_middleware.MetricsProducerMiddleware(a.metrics))
	a.producer = producer

	a.cfg.Log.Info("Lifecycle events enabled", "topic", a.cfg.Kafka.Topic)
	return events.NewKafkaPublisher(producer, a.cfg.Log.Component("events")), nil
}

func (a *Application) newHealthHandler(h contracts.Handler) http.Handler {
	router := httprouter.New()
	h.RegisterRoutes(router)

	var healthHTTPHandler http.Handler = router
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
	return healthHTTPHandler
}

func (a *Application) newAppHandler(h contracts.Handler) http.Handler {
	router := httprouter.New()
	h.RegisterRoutes(router)

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewClientRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.ClientKeyExtractor(a.cfg.TrustProxyHeaders),
		a.cfg.Log,
	)

	var appHTTPHandler http.Handler = router
	appHTTPHandler = middleware.Idempotency(a.idempotencyStore, "Idempotency-Key")(appHTTPHandler)
	appHTTPHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHTTPHandler)
	appHTTPHandler = middleware.ClientRateLimit(a.rateLimiter)(appHTTPHandler)
	appHTTPHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize), a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.CORS(a.cfg.CORSAllowedOrigins)(appHTTPHandler)
	appHTTPHandler = middleware.RequestLogging(a.cfg.Log)(appHTTPHandler)
	appHTTPHandler = middleware.Recovery(a.cfg.Log)(appHTTPHandler)
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
	return appHTTPHandler
}

// Handler returns the root handler built by SetApp.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// StartWorkers launches background work that lives as long as ctx.
func (a *Application) StartWorkers(ctx context.Context) {
	if a.reaper != nil {
		a.reaper.Start(ctx)
	} else {
		a.cfg.Log.Warn("No-show reaper disabled")
	}
}

func (a *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.StartWorkers(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.stopWorkers()
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.stopWorkers()
	a.cfg.Log.Info("Server stopped gracefully")
}

// stopWorkers stops the reaper first so a sweep in flight can still publish,
// then flushes and closes the producer.
func (a *Application) stopWorkers() {
	a.cfg.Log.Info("Stopping background workers...")
	if a.reaper != nil {
		a.reaper.Stop()
	}
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.cfg.Log.Error("Failed to close kafka producer", "error", err)
		}
	}
	a.cfg.Log.Info("Background workers stopped")
}

// Close releases everything SetApp and StartWorkers acquired without touching
// the listener. Tests use it in place of Run's signal handling.
func (a *Application) Close() {
	a.stopWorkers()
}
