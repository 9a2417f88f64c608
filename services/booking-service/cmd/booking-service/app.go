package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// app holds the wired service graph shared by the HTTP and gRPC servers.
type app struct {
	settings settings
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.BookingMetrics

	catalog   availability.Catalog
	repo      *storage.BookingRepository
	recorder  *booking.Recorder
	publisher *events.Publisher
	notifier  *notify.Notifier
	limiter   httpx.Limiter
	redis     *redis.Client

	stopPublisher context.CancelFunc
	publisherDone chan struct{}
}

func newApp(s settings, logger *slog.Logger) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(registry)

	now := func() time.Time { return time.Now().In(s.Location) }
	catalog, err := availability.NewCatalog(s.CatalogMode, availability.NewGenerator(nil), availability.WithClock(now))
	if err != nil {
		return nil, err
	}

	repo := storage.NewBookingRepository(
		storage.WithIdempotencyTTL(s.IdempotencyTTL),
		storage.WithIdempotencyMaxKeys(s.IdempotencyMaxKeys),
	)
	a := &app{
		settings: s,
		logger:   logger,
		registry: registry,
		metrics:  m,
		catalog:  catalog,
		repo:     repo,
	}

	a.publisher = events.NewPublisher(events.PublisherConfig{
		Brokers: s.KafkaBrokers,
		Topic:   s.KafkaTopic,
	}, logger, m)
	a.notifier = notify.NewNotifier(a.emailSender(), a.smsSender(), logger, m, notify.Config{Location: s.Location})
	a.recorder = booking.NewRecorder(a.repo, catalog,
		booking.WithEvents(a.publisher),
		booking.WithConfirmations(a.notifier),
		booking.WithLogger(logger),
		booking.WithMetrics(m),
	)

	if s.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		a.limiter = httpx.NewRedisRateLimiter(a.redis, s.RateLimitPerMinute, time.Minute, s.Service)
		logger.Info("rate limiter backed by redis", "addr", s.RedisAddr)
	} else {
		a.limiter = httpx.NewRateLimiter(s.RateLimitPerMinute, time.Minute)
	}
	logger.Info("slot catalog ready", "mode", s.CatalogMode, "timezone", s.Location.String())
	return a, nil
}

func (a *app) emailSender() notify.EmailSender {
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    a.settings.SendGridAPIKey,
		FromEmail: a.settings.SendGridFromEmail,
	}); sg != nil {
		return sg
	}
	if a.settings.SMTPHost != "" {
		return notify.NewSMTPSender(a.settings.SMTPHost, a.settings.SMTPPort, a.settings.SMTPFrom)
	}
	return notify.NewNoopEmailSender(a.logger)
}

func (a *app) smsSender() notify.SMSSender {
	if a.settings.SMSWebhookURL != "" {
		return notify.NewWebhookSender(a.settings.SMSWebhookURL, a.settings.SMSWebhookToken)
	}
	return notify.NoopSMSSender{}
}

func (a *app) readyChecks() []runtime.ReadyCheck {
	var checks []runtime.ReadyCheck
	if a.redis != nil {
		// The limiter fails open, so a redis outage only degrades.
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Optional: true, Check: httpx.RedisReadyCheck(a.redis)})
	}
	if len(a.settings.KafkaBrokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Optional: true, Check: kafkax.ReadyCheck(a.settings.KafkaBrokers)})
	}
	return checks
}

func (a *app) httpHandler() http.Handler {
	api := http.NewServeMux()
	handlers.NewBookingHandler(a.catalog, a.recorder, a.repo, a.logger, a.metrics, a.settings.Location).Register(api)

	mux := runtime.NewBaseMuxWithReady(a.readyChecks()...)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
	mux.Handle("/api/", httpx.Chain(api,
		httpx.RateLimit(a.limiter, a.logger, true),
		httpx.WithBodyLimit(a.settings.BodyLimitBytes),
		httpx.WithTimeout(a.settings.RequestTimeout),
	))

	h := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(a.logger),
		httpx.WithAccessLog(a.logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: a.settings.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", httpx.RequestIDHeader},
			ExposedHeaders: []string{"Idempotent-Replayed", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
	)
	return otelhttp.NewHandler(h, "booking")
}

func (a *app) grpcServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpcx.ServerInterceptors(a.logger),
	)
	grpcserver.Register(srv, grpcserver.Deps{
		Catalog:  a.catalog,
		Recorder: a.recorder,
		Metrics:  a.metrics,
		Logger:   a.logger,
		Location: a.settings.Location,
	})
	return srv
}

// startPublisher drains booking events on a context of its own. close stops
// it, after the servers have finished handling requests.
func (a *app) startPublisher() {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopPublisher = cancel
	a.publisherDone = make(chan struct{})
	go func() {
		defer close(a.publisherDone)
		a.publisher.Run(ctx)
	}()
}

// close flushes the event publisher and releases clients once the servers
// have stopped.
func (a *app) close(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("pending confirmations abandoned at shutdown")
	}

	if a.stopPublisher != nil {
		a.stopPublisher()
		select {
		case <-a.publisherDone:
		case <-ctx.Done():
			a.logger.Warn("booking event flush abandoned at shutdown")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close failed", "err", err)
		}
	}
}
