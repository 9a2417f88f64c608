package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayStarts_BusinessHours(t *testing.T) {
	day := time.Date(2024, 3, 1, 15, 45, 0, 0, time.UTC)
	starts := DayStarts(day)
	require.Len(t, starts, 16)
	assert.Equal(t, "09:00", starts[0].Format("15:04"))
	assert.Equal(t, "16:30", starts[len(starts)-1].Format("15:04"))
	for i := 1; i < len(starts); i++ {
		assert.Equal(t, SlotLength, starts[i].Sub(starts[i-1]))
	}
}

func TestDayStarts_DSTSwitchDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks jump forward at 02:00 on 2024-03-10.
	starts := DayStarts(time.Date(2024, 3, 10, 0, 0, 0, 0, loc))
	require.Len(t, starts, SlotsPerDay)
	assert.Equal(t, 9, starts[0].Hour())
	assert.Equal(t, loc, starts[0].Location())
	assert.Equal(t, "16:30", starts[len(starts)-1].Format("15:04"))
}
