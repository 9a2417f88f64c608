package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func booking(i int) model.Booking {
	return model.Booking{
		ID:            fmt.Sprintf("b-%d", i),
		TimeSlotID:    "slot-2024-03-04-09-00",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "5551234567",
		CreatedAt:     time.Date(2024, 3, 1, 0, i, 0, 0, time.UTC),
	}
}

func TestBookingRepository_AppendList(t *testing.T) {
	ctx := context.Background()
	r := NewBookingRepository()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Append(ctx, booking(i)))
	}
	assert.Equal(t, 3, r.Count())

	all, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b-2", all[0].ID)
	assert.Equal(t, "b-0", all[2].ID)

	two, err := r.List(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b-2", "b-1"}, []string{two[0].ID, two[1].ID})

	big, err := r.List(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, big, 3)
}

func TestBookingRepository_ByID(t *testing.T) {
	ctx := context.Background()
	r := NewBookingRepository()
	require.NoError(t, r.Append(ctx, booking(7)))

	got, err := r.ByID(ctx, "b-7")
	require.NoError(t, err)
	assert.Equal(t, booking(7), got)

	_, err = r.ByID(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestBookingRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewBookingRepository()
	assert.ErrorIs(t, r.Append(ctx, booking(1)), context.Canceled)
	assert.Zero(t, r.Count())
}

func TestBookingRepository_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	r := NewBookingRepository()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.Append(ctx, booking(i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, r.Count())
	for i := 0; i < 50; i++ {
		_, err := r.ByID(ctx, fmt.Sprintf("b-%d", i))
		assert.NoError(t, err)
	}
}

func TestBookingRepository_Idempotency(t *testing.T) {
	r := NewBookingRepository()

	_, found, err := r.LockIdempotencyKey("k1")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = r.LockIdempotencyKey("k1")
	assert.ErrorIs(t, err, ErrInFlight)

	payload := []byte(`{"booking_id":"b-1"}`)
	r.FinalizeIdempotency("k1", "b-1", 201, payload)
	payload[0] = 'x'

	rec, found, err := r.LockIdempotencyKey("k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "b-1", rec.BookingID)
	assert.Equal(t, 201, rec.StatusCode)
	assert.JSONEq(t, `{"booking_id":"b-1"}`, string(rec.ResponsePayload))

	// A finished key is not released.
	r.ReleaseIdempotencyKey("k1")
	_, found, _ = r.LockIdempotencyKey("k1")
	assert.True(t, found)

	_, _, err = r.LockIdempotencyKey("k2")
	require.NoError(t, err)
	r.ReleaseIdempotencyKey("k2")
	_, found, err = r.LockIdempotencyKey("k2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBookingRepository_IdempotencyExpires(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewBookingRepository(WithIdempotencyTTL(time.Hour), WithClock(func() time.Time { return now }))

	_, _, err := repo.LockIdempotencyKey("k1")
	require.NoError(t, err)
	repo.FinalizeIdempotency("k1", "b1", 201, []byte(`{}`))

	now = now.Add(59 * time.Minute)
	_, found, err := repo.LockIdempotencyKey("k1")
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(2 * time.Minute)
	_, found, err = repo.LockIdempotencyKey("k1")
	require.NoError(t, err)
	assert.False(t, found, "expired response must not replay")
	assert.Equal(t, 1, repo.IdempotencyKeys())
}

func TestBookingRepository_IdempotencyBounded(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewBookingRepository(WithIdempotencyMaxKeys(3), WithClock(func() time.Time { return now }))

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("k%d", i)
		_, _, err := repo.LockIdempotencyKey(key)
		require.NoError(t, err)
		repo.FinalizeIdempotency(key, "b", 201, nil)
		now = now.Add(time.Second)
	}
	assert.Equal(t, 3, repo.IdempotencyKeys())

	_, found, err := repo.LockIdempotencyKey("k9")
	require.NoError(t, err)
	assert.True(t, found, "newest response is kept")
	_, found, err = repo.LockIdempotencyKey("k0")
	require.NoError(t, err)
	assert.False(t, found, "oldest response was evicted")
}

func TestBookingRepository_InFlightNotEvicted(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewBookingRepository(WithIdempotencyTTL(time.Minute), WithClock(func() time.Time { return now }))

	_, _, err := repo.LockIdempotencyKey("slow")
	require.NoError(t, err)
	now = now.Add(time.Hour)
	_, _, err = repo.LockIdempotencyKey("slow")
	assert.ErrorIs(t, err, ErrInFlight)
}
