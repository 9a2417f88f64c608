package availability

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const (
	// WindowDays is the rolling horizon slots are generated for.
	WindowDays = 30
	OpenHour   = 9
	CloseHour  = 17
	SlotLength = 30 * time.Minute
	SlotPrice  = 50
	// SlotsPerDay is the number of half-hour slots between OpenHour and CloseHour.
	SlotsPerDay = (CloseHour - OpenHour) * int(time.Hour/SlotLength)

	// A slot is available when the random draw is above this threshold (70%).
	unavailableThreshold = 0.3

	slotIDPrefix = "slot-"
	slotIDLayout = "2006-01-02-15-04"
	dateLayout   = "2006-01-02"
)

var (
	ErrInvalidSlotID = errors.New("invalid slot id")
	ErrInvalidDate   = errors.New("invalid date")
)

// RandomSource supplies uniform draws in [0, 1).
type RandomSource interface {
	Float64() float64
}

// RandomFunc adapts a plain function to RandomSource.
type RandomFunc func() float64

func (f RandomFunc) Float64() float64 { return f() }

// Generator fabricates the slot universe for the availability window.
type Generator struct {
	mu  sync.Mutex
	rnd RandomSource
}

// NewGenerator returns a generator drawing from rnd, or from math/rand/v2 when rnd is nil.
func NewGenerator(rnd RandomSource) *Generator {
	if rnd == nil {
		rnd = RandomFunc(rand.Float64)
	}
	return &Generator{rnd: rnd}
}

// Generate returns every slot of the WindowDays days starting at the midnight of
// start, in chronological order, each with an independent availability draw.
func (g *Generator) Generate(start time.Time) []model.TimeSlot {
	slots := Grid(start)
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range slots {
		slots[i].Available = g.rnd.Float64() > unavailableThreshold
	}
	return slots
}

// draw returns one availability flag.
func (g *Generator) draw() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64() > unavailableThreshold
}

// Grid returns the slot universe for the window starting at start's midnight with
// every slot unavailable. Identifiers and times are deterministic.
func Grid(start time.Time) []model.TimeSlot {
	first := Midnight(start)
	loc := first.Location()
	slots := make([]model.TimeSlot, 0, WindowDays*SlotsPerDay)
	for day := 0; day < WindowDays; day++ {
		y, m, d := first.AddDate(0, 0, day).Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, loc)
		for _, s := range DayStarts(date) {
			slots = append(slots, model.TimeSlot{
				ID:    SlotID(s),
				Date:  date,
				Start: s,
				End:   s.Add(SlotLength),
				Price: SlotPrice,
			})
		}
	}
	return slots
}

// Midnight truncates t to the start of its calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SlotID encodes a slot start as slot-yyyy-MM-dd-HH-mm.
func SlotID(start time.Time) string {
	return slotIDPrefix + start.Format(slotIDLayout)
}

// ParseSlotID is the inverse of SlotID, interpreting the wall clock in loc.
func ParseSlotID(id string, loc *time.Location) (time.Time, error) {
	raw, ok := strings.CutPrefix(id, slotIDPrefix)
	if !ok {
		return time.Time{}, ErrInvalidSlotID
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(slotIDLayout, raw, loc)
	if err != nil {
		return time.Time{}, ErrInvalidSlotID
	}
	return t, nil
}

// DateKey is the normalized yyyy-MM-dd form used to match slots to a day.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses yyyy-MM-dd as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FilterByDate keeps the slots on date's day whose availability equals available,
// preserving order.
func FilterByDate(slots []model.TimeSlot, date time.Time, available bool) []model.TimeSlot {
	key := DateKey(date)
	out := make([]model.TimeSlot, 0, SlotsPerDay)
	for _, s := range slots {
		if s.Available == available && DateKey(s.Date) == key {
			out = append(out, s)
		}
	}
	return out
}
