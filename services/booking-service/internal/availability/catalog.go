package availability

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Catalog answers availability queries over the rolling window that starts today.
// Every method is total: dates outside the window simply have no slots.
type Catalog interface {
	AvailableSlots(date time.Time) []model.TimeSlot
	BookedSlots(date time.Time) []model.TimeSlot
	// AvailableDates lists the days in the window with at least one open slot.
	AvailableDates() []time.Time
	// MarkBooked flips the slot to unavailable and reports whether the slot exists in the window.
	MarkBooked(slotID string) bool
}

const (
	ModePersistent = "persistent"
	ModeEphemeral  = "ephemeral"
)

var ErrUnknownMode = errors.New("unknown slot catalog mode")

type Option func(*catalogOptions)

type catalogOptions struct {
	now func() time.Time
}

// WithClock sets the source of "today". The returned time's location is the
// location slots are generated in.
func WithClock(now func() time.Time) Option {
	return func(o *catalogOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) catalogOptions {
	o := catalogOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewCatalog builds the catalog named by mode.
func NewCatalog(mode string, gen *Generator, opts ...Option) (Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModePersistent:
		return NewPersistentCatalog(gen, opts...), nil
	case ModeEphemeral:
		return NewEphemeralCatalog(gen, opts...), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// EphemeralCatalog regenerates the whole window, with fresh availability draws,
// on every call. MarkBooked mutates a copy that is immediately discarded, so a
// booking never shows up in later queries. Kept for parity with the original
// mock data layer; prefer PersistentCatalog.
type EphemeralCatalog struct {
	gen *Generator
	now func() time.Time
}

func NewEphemeralCatalog(gen *Generator, opts ...Option) *EphemeralCatalog {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	o := applyOptions(opts)
	return &EphemeralCatalog{gen: gen, now: o.now}
}

func (c *EphemeralCatalog) AvailableSlots(date time.Time) []model.TimeSlot {
	return FilterByDate(c.gen.Generate(c.now()), date, true)
}

func (c *EphemeralCatalog) BookedSlots(date time.Time) []model.TimeSlot {
	return FilterByDate(c.gen.Generate(c.now()), date, false)
}

func (c *EphemeralCatalog) AvailableDates() []time.Time {
	return availableDates(c.gen.Generate(c.now()))
}

func (c *EphemeralCatalog) MarkBooked(slotID string) bool {
	slots := c.gen.Generate(c.now())
	for i := range slots {
		if slots[i].ID == slotID {
			slots[i].Available = false
			return true
		}
	}
	return false
}

// PersistentCatalog draws each slot's availability once and keeps it, keyed by
// slot id, for the life of the process. Days rolling into the window are drawn
// on first use; days that fall out of it are dropped.
type PersistentCatalog struct {
	gen *Generator
	now func() time.Time

	mu    sync.Mutex
	slots map[string]model.TimeSlot
}

func NewPersistentCatalog(gen *Generator, opts ...Option) *PersistentCatalog {
	if gen == nil {
		gen = NewGenerator(nil)
	}
	o := applyOptions(opts)
	return &PersistentCatalog{
		gen:   gen,
		now:   o.now,
		slots: make(map[string]model.TimeSlot, WindowDays*SlotsPerDay),
	}
}

func (c *PersistentCatalog) AvailableSlots(date time.Time) []model.TimeSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FilterByDate(c.windowLocked(), date, true)
}

func (c *PersistentCatalog) BookedSlots(date time.Time) []model.TimeSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FilterByDate(c.windowLocked(), date, false)
}

func (c *PersistentCatalog) AvailableDates() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return availableDates(c.windowLocked())
}

func (c *PersistentCatalog) MarkBooked(slotID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windowLocked()
	s, ok := c.slots[slotID]
	if !ok {
		return false
	}
	s.Available = false
	c.slots[slotID] = s
	return true
}

// windowLocked materializes the current window and returns it in order.
// Callers hold c.mu.
func (c *PersistentCatalog) windowLocked() []model.TimeSlot {
	today := Midnight(c.now())
	for id, s := range c.slots {
		if s.Date.Before(today) {
			delete(c.slots, id)
		}
	}

	grid := Grid(today)
	for i, s := range grid {
		stored, ok := c.slots[s.ID]
		if !ok {
			s.Available = c.gen.draw()
			c.slots[s.ID] = s
			stored = s
		}
		grid[i] = stored
	}
	return grid
}

func availableDates(slots []model.TimeSlot) []time.Time {
	var dates []time.Time
	seen := make(map[string]bool, WindowDays)
	for _, s := range slots {
		if !s.Available {
			continue
		}
		key := DateKey(s.Date)
		if seen[key] {
			continue
		}
		seen[key] = true
		dates = append(dates, s.Date)
	}
	return dates
}
