package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type PublisherConfig struct {
	Brokers   []string
	Topic     string
	QueueSize int
	// FlushTimeout bounds the drain of queued events on shutdown.
	FlushTimeout time.Duration
}

// Publisher queues booking events in memory and writes them to Kafka from Run.
// Without brokers it only logs.
type Publisher struct {
	writer       Writer
	topic        string
	queue        chan record
	logger       *slog.Logger
	metrics      *metrics.BookingMetrics
	flushTimeout time.Duration
	now          func() time.Time

	// mu guards closed. Enqueues hold it shared so that once Run marks the
	// publisher closed, the final flush sees every accepted event.
	mu     sync.RWMutex
	closed bool
}

type record struct {
	EventID string
	Key     string
	Payload []byte
	Trace   otelx.Detached
}

func NewPublisher(cfg PublisherConfig, logger *slog.Logger, m *metrics.BookingMetrics) *Publisher {
	var w Writer
	if len(cfg.Brokers) > 0 {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}
	return NewPublisherWithWriter(w, cfg, logger, m)
}

// NewPublisherWithWriter uses w instead of dialing brokers. A nil w disables publishing.
func NewPublisherWithWriter(w Writer, cfg PublisherConfig, logger *slog.Logger, m *metrics.BookingMetrics) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = TopicBookingRecorded
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer:       w,
		topic:        cfg.Topic,
		queue:        make(chan record, cfg.QueueSize),
		logger:       logger,
		metrics:      m,
		flushTimeout: cfg.FlushTimeout,
		now:          time.Now,
	}
}

func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// BookingRecorded enqueues the event for b. It never blocks: a full queue drops
// the event.
func (p *Publisher) BookingRecorded(ctx context.Context, b model.Booking) {
	if !p.Enabled() {
		p.logger.Debug("booking event not published (no kafka brokers configured)", "booking_id", b.ID)
		return
	}
	eventID := uuid.NewString()
	payload, err := newBookingRecorded(eventID, b, p.now()).marshal()
	if err != nil {
		p.logger.Error("booking event encode failed", "booking_id", b.ID, "err", err)
		p.metrics.ObserveEvent("failed")
		return
	}
	rec := record{
		EventID: eventID,
		Key:     b.TimeSlotID,
		Payload: payload,
		Trace:   otelx.Detach(ctx),
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("booking event dropped (publisher stopped)", "booking_id", b.ID, "event_id", eventID)
		p.metrics.ObserveEvent("dropped")
		return
	}
	select {
	case p.queue <- rec:
	default:
		p.logger.Warn("booking event dropped (queue full)", "booking_id", b.ID, "event_id", eventID)
		p.metrics.ObserveEvent("dropped")
	}
}

// Run writes queued events until ctx is done, then stops accepting events and
// flushes what is left. Cancel ctx only after every producer has finished.
func (p *Publisher) Run(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Warn("booking event publisher disabled (no kafka brokers configured)")
		return
	}
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Error("kafka writer close failed", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()
			p.flush()
			return
		case rec := <-p.queue:
			p.publish(ctx, rec)
		}
	}
}

func (p *Publisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), p.flushTimeout)
	defer cancel()
	for {
		select {
		case rec := <-p.queue:
			p.publish(ctx, rec)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, rec record) {
	msgCtx := rec.Trace.Attach(ctx)
	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(rec.Key),
		Value:   rec.Payload,
		Headers: kafkax.EventMeta{EventID: rec.EventID, EventType: TopicBookingRecorded}.Headers(),
	}
	msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("booking event publish failed", "event_id", rec.EventID, "err", err)
		p.metrics.ObserveEvent("failed")
		return
	}
	p.metrics.ObserveEvent("published")
}
