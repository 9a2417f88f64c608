package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
)

type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Handler receives one decoded booking event. ctx carries the producer's trace.
type Handler func(ctx context.Context, meta kafkax.EventMeta, ev BookingRecorded) error

// FollowerConfig mirrors the reader settings a tail needs.
type FollowerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// NewReader opens a reader on the booking topic. An empty GroupID reads from
// the latest offset without committing.
func NewReader(cfg FollowerConfig) *kafka.Reader {
	if cfg.Topic == "" {
		cfg.Topic = TopicBookingRecorded
	}
	rc := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if cfg.GroupID == "" {
		rc.StartOffset = kafka.LastOffset
	}
	return kafka.NewReader(rc)
}

// Follower reads booking events until its context ends.
type Follower struct {
	reader  Reader
	logger  *slog.Logger
	handler Handler
	backoff time.Duration
}

func NewFollower(r Reader, logger *slog.Logger, h Handler) *Follower {
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{reader: r, logger: logger, handler: h, backoff: time.Second}
}

// Run closes the reader on return. Undecodable payloads and handler errors are
// logged and skipped.
func (f *Follower) Run(ctx context.Context) {
	defer f.reader.Close()

	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.backoff):
			}
			continue
		}
		f.handle(ctx, msg)
	}
}

func (f *Follower) handle(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	var ev BookingRecorded
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		f.logger.Error("booking event undecodable", "event_id", meta.EventID, "err", err)
		span.RecordError(err)
		return
	}
	if err := f.handler(ctxSpan, meta, ev); err != nil {
		f.logger.Error("handler error", "event_id", meta.EventID, "err", err)
		span.RecordError(err)
	}
}
