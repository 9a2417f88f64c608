package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type settings struct {
	Service     string
	Port        string
	GRPCPort    string
	GRPCEnabled bool
	LogLevel    string
	Location    *time.Location
	CatalogMode string

	RedisAddr          string
	RateLimitPerMinute int
	CORSOrigins        []string
	BodyLimitBytes     int64
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	IdempotencyTTL     time.Duration
	IdempotencyMaxKeys int

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost          string
	SMTPPort          string
	SMTPFrom          string
	SendGridAPIKey    string
	SendGridFromEmail string
	SMSWebhookURL     string
	SMSWebhookToken   string
}

func loadSettings() (settings, error) {
	s := settings{
		Service:           config.String("SERVICE_NAME", "booking-service"),
		LogLevel:          config.String("LOG_LEVEL", "info"),
		CatalogMode:       strings.ToLower(config.String("SLOT_CATALOG", availability.ModePersistent)),
		RedisAddr:         strings.TrimSpace(config.String("REDIS_ADDR", "")),
		CORSOrigins:       config.List("CORS_ALLOWED_ORIGINS"),
		KafkaBrokers:      kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")),
		KafkaTopic:        config.String("KAFKA_BOOKING_TOPIC", events.TopicBookingRecorded),
		SMTPHost:          strings.TrimSpace(config.String("SMTP_HOST", "")),
		SMTPPort:          config.String("SMTP_PORT", "1025"),
		SMTPFrom:          config.String("SMTP_FROM", "no-reply@slotbook.local"),
		SendGridAPIKey:    config.String("SENDGRID_API_KEY", ""),
		SendGridFromEmail: config.String("SENDGRID_FROM_EMAIL", "no-reply@slotbook.local"),
		SMSWebhookURL:     config.String("SMS_WEBHOOK_URL", ""),
		SMSWebhookToken:   config.String("SMS_WEBHOOK_TOKEN", ""),
	}

	var err error
	if s.Port, err = config.Port("PORT", "8083"); err != nil {
		return s, err
	}
	if s.GRPCPort, err = config.Port("GRPC_PORT", "9093"); err != nil {
		return s, err
	}
	if s.GRPCEnabled, err = config.Bool("GRPC_ENABLED", true); err != nil {
		return s, err
	}
	if s.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return s, err
	}
	bodyLimit, err := config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20)
	if err != nil {
		return s, err
	}
	s.BodyLimitBytes = int64(bodyLimit)
	if s.RequestTimeout, err = config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return s, err
	}
	if s.ShutdownTimeout, err = config.Duration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return s, err
	}
	if s.IdempotencyTTL, err = config.Duration("IDEMPOTENCY_TTL", storage.DefaultIdempotencyTTL); err != nil {
		return s, err
	}
	if s.IdempotencyMaxKeys, err = config.Int("IDEMPOTENCY_MAX_KEYS", storage.DefaultIdempotencyMaxKeys); err != nil {
		return s, err
	}

	tz := config.String("TIMEZONE", "UTC")
	if s.Location, err = time.LoadLocation(tz); err != nil {
		return s, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}
	switch s.CatalogMode {
	case availability.ModePersistent, availability.ModeEphemeral:
	default:
		return s, fmt.Errorf("SLOT_CATALOG must be %q or %q (got %q)", availability.ModePersistent, availability.ModeEphemeral, s.CatalogMode)
	}
	return s, nil
}
