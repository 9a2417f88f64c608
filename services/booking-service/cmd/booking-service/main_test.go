package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVICE_NAME", "PORT", "GRPC_PORT", "GRPC_ENABLED", "LOG_LEVEL", "TIMEZONE", "SLOT_CATALOG",
		"REDIS_ADDR", "RATE_LIMIT_PER_MINUTE", "CORS_ALLOWED_ORIGINS", "KAFKA_BROKERS", "KAFKA_BOOKING_TOPIC",
		"IDEMPOTENCY_TTL", "IDEMPOTENCY_MAX_KEYS",
		"SMTP_HOST", "SENDGRID_API_KEY", "SMS_WEBHOOK_URL", "HTTP_BODY_LIMIT_BYTES", "HTTP_REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearEnv(t)
	s, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, "booking-service", s.Service)
	assert.Equal(t, "8083", s.Port)
	assert.Equal(t, "9093", s.GRPCPort)
	assert.True(t, s.GRPCEnabled)
	assert.Equal(t, time.UTC, s.Location)
	assert.Equal(t, availability.ModePersistent, s.CatalogMode)
	assert.Equal(t, 120, s.RateLimitPerMinute)
	assert.Equal(t, events.TopicBookingRecorded, s.KafkaTopic)
	assert.Empty(t, s.KafkaBrokers)
	assert.Equal(t, int64(1<<20), s.BodyLimitBytes)
	assert.Equal(t, 24*time.Hour, s.IdempotencyTTL)
	assert.Equal(t, 10000, s.IdempotencyMaxKeys)
}

func TestLoadSettings_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLOT_CATALOG", "Ephemeral")
	t.Setenv("GRPC_ENABLED", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TIMEZONE", "Etc/GMT+5")

	s, err := loadSettings()
	require.NoError(t, err)
	assert.Equal(t, availability.ModeEphemeral, s.CatalogMode)
	assert.False(t, s.GRPCEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, s.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSOrigins)
	assert.Equal(t, "Etc/GMT+5", s.Location.String())
}

func TestLoadSettings_Invalid(t *testing.T) {
	cases := map[string]string{
		"PORT":                  "http",
		"GRPC_ENABLED":          "maybe",
		"RATE_LIMIT_PER_MINUTE": "lots",
		"TIMEZONE":              "Mars/Olympus",
		"SLOT_CATALOG":          "redis",
		"SHUTDOWN_TIMEOUT":      "soon",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := loadSettings()
			assert.Error(t, err)
		})
	}
}

func testSettings(t *testing.T) settings {
	t.Helper()
	clearEnv(t)
	s, err := loadSettings()
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, s settings) (*app, *httptest.Server) {
	t.Helper()
	a, err := newApp(s, discardLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(a.httpHandler())
	t.Cleanup(srv.Close)
	return a, srv
}

func TestHTTP_OpsEndpoints(t *testing.T) {
	_, srv := newTestServer(t, testSettings(t))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(httpx.RequestIDHeader))

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/public/slots?date=" + time.Now().Format("2006-01-02"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "slotbook_availability_slot_queries_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestHTTP_BookThroughMiddleware(t *testing.T) {
	a, srv := newTestServer(t, testSettings(t))
	today := time.Now().In(a.settings.Location)

	resp, err := http.Get(srv.URL + "/api/v1/public/slots?date=" + today.AddDate(0, 0, 1).Format("2006-01-02"))
	require.NoError(t, err)
	var slots struct {
		Slots []struct {
			ID string `json:"id"`
		} `json:"slots"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&slots))
	resp.Body.Close()
	if len(slots.Slots) == 0 {
		t.Skip("no availability drawn for tomorrow")
	}

	slotID := slots.Slots[0].ID
	body := `{"slot_id":"` + slotID + `","name":"Ada","email":"ada@example.com","phone":"5551234567"}`
	resp, err = http.Post(srv.URL+"/api/v1/public/book", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, a.repo.Count())

	booked := a.catalog.BookedSlots(today.AddDate(0, 0, 1))
	var ids []string
	for _, s := range booked {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, slotID)
}

func TestHTTP_BodyLimit(t *testing.T) {
	s := testSettings(t)
	s.BodyLimitBytes = 16
	_, srv := newTestServer(t, s)

	resp, err := http.Post(srv.URL+"/api/v1/public/book", "application/json",
		strings.NewReader(`{"slot_id":"slot-2024-03-04-09-00","name":"Ada"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_RateLimitInMemory(t *testing.T) {
	s := testSettings(t)
	s.RateLimitPerMinute = 2
	_, srv := newTestServer(t, s)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/public/services")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// ops endpoints are not rate limited
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTP_RateLimitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s := testSettings(t)
	s.RedisAddr = mr.Addr()
	s.RateLimitPerMinute = 1
	a, srv := newTestServer(t, s)
	t.Cleanup(func() { _ = a.redis.Close() })

	resp, err := http.Get(srv.URL + "/api/v1/public/services")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/public/services")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	mr.Close()
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "degraded")
}

func TestHTTP_CORSPreflight(t *testing.T) {
	s := testSettings(t)
	s.CORSOrigins = []string{"https://app.example"}
	_, srv := newTestServer(t, s)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/public/book", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestApp_GRPCServerRegistersServices(t *testing.T) {
	a, err := newApp(testSettings(t), discardLogger())
	require.NoError(t, err)
	srv := a.grpcServer()
	defer srv.Stop()

	info := srv.GetServiceInfo()
	assert.Contains(t, info, "slotbook.booking.v1.BookingService")
	assert.Contains(t, info, "grpc.health.v1.Health")
}

func TestApp_ClosesPublisherAfterServers(t *testing.T) {
	a, err := newApp(testSettings(t), discardLogger())
	require.NoError(t, err)
	a.startPublisher()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.close(ctx)

	select {
	case <-a.publisherDone:
	default:
		t.Fatal("publisher still running after close")
	}
	require.NoError(t, ctx.Err())
}
