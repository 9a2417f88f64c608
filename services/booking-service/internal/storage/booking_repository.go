package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInFlight is returned when an idempotency key is held by a request that
	// has not finished yet.
	ErrInFlight = errors.New("idempotency key in flight")
)

// BookingRepository is the process-lifetime, append-only booking list.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings []model.Booking
	byID     map[string]int

	idemMu    sync.Mutex
	idem      map[string]*IdempotencyRecord
	idemOrder []finished // finalized keys, oldest first
	idemTTL   time.Duration
	idemMax   int
	now       func() time.Time
}

type IdempotencyRecord struct {
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
	done            bool
	finishedAt      time.Time
}

type finished struct {
	key string
	at  time.Time
}

const (
	DefaultIdempotencyTTL     = 24 * time.Hour
	DefaultIdempotencyMaxKeys = 10000
)

type Option func(*BookingRepository)

// WithIdempotencyTTL sets how long a finished response stays replayable.
func WithIdempotencyTTL(d time.Duration) Option {
	return func(r *BookingRepository) {
		if d > 0 {
			r.idemTTL = d
		}
	}
}

// WithIdempotencyMaxKeys bounds the stored keys. The oldest finished responses
// are evicted first; claims still in flight are never evicted.
func WithIdempotencyMaxKeys(n int) Option {
	return func(r *BookingRepository) {
		if n > 0 {
			r.idemMax = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *BookingRepository) { r.now = now }
}

func NewBookingRepository(opts ...Option) *BookingRepository {
	r := &BookingRepository{
		byID:    make(map[string]int),
		idem:    make(map[string]*IdempotencyRecord),
		idemTTL: DefaultIdempotencyTTL,
		idemMax: DefaultIdempotencyMaxKeys,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *BookingRepository) Append(ctx context.Context, b model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[b.ID] = len(r.bookings)
	r.bookings = append(r.bookings, b)
	return nil
}

// List returns up to limit bookings, newest first. limit <= 0 means all.
func (r *BookingRepository) List(ctx context.Context, limit int) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.bookings)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.Booking, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.bookings[i])
	}
	return out, nil
}

func (r *BookingRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bookings)
}

func (r *BookingRepository) ByID(ctx context.Context, id string) (model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return model.Booking{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return r.bookings[i], nil
}

// LockIdempotencyKey claims key for the caller. When a finished record exists it
// is returned with found=true and the caller should replay it. A key claimed by
// a request that is still running yields ErrInFlight.
func (r *BookingRepository) LockIdempotencyKey(key string) (IdempotencyRecord, bool, error) {
	r.idemMu.Lock()
	defer r.idemMu.Unlock()
	r.evictLocked()
	if rec, ok := r.idem[key]; ok {
		if !rec.done {
			return IdempotencyRecord{}, false, ErrInFlight
		}
		return *rec, true, nil
	}
	r.idem[key] = &IdempotencyRecord{IdempotencyKey: key}
	return IdempotencyRecord{IdempotencyKey: key}, false, nil
}

// FinalizeIdempotency stores the response for a claimed key.
func (r *BookingRepository) FinalizeIdempotency(key, bookingID string, statusCode int, response []byte) {
	r.idemMu.Lock()
	defer r.idemMu.Unlock()
	at := r.now()
	r.idem[key] = &IdempotencyRecord{
		IdempotencyKey:  key,
		BookingID:       bookingID,
		StatusCode:      statusCode,
		ResponsePayload: append([]byte(nil), response...),
		done:            true,
		finishedAt:      at,
	}
	r.idemOrder = append(r.idemOrder, finished{key: key, at: at})
	r.evictLocked()
}

// IdempotencyKeys reports how many keys are held, finished or in flight.
func (r *BookingRepository) IdempotencyKeys() int {
	r.idemMu.Lock()
	defer r.idemMu.Unlock()
	return len(r.idem)
}

// evictLocked drops expired finished records, then the oldest finished ones
// while the store is over its bound. Callers hold r.idemMu.
func (r *BookingRepository) evictLocked() {
	cutoff := r.now().Add(-r.idemTTL)
	for len(r.idemOrder) > 0 {
		head := r.idemOrder[0]
		if !head.at.Before(cutoff) && len(r.idem) <= r.idemMax {
			break
		}
		r.idemOrder = r.idemOrder[1:]
		// A key evicted and claimed again has a newer entry further back.
		if rec, ok := r.idem[head.key]; ok && rec.done && rec.finishedAt.Equal(head.at) {
			delete(r.idem, head.key)
		}
	}
}

// ReleaseIdempotencyKey drops an unfinished claim so the key can be retried.
func (r *BookingRepository) ReleaseIdempotencyKey(key string) {
	r.idemMu.Lock()
	defer r.idemMu.Unlock()
	if rec, ok := r.idem[key]; ok && !rec.done {
		delete(r.idem, key)
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
