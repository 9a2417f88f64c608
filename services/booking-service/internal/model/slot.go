package model

import "time"

// TimeSlot is a fixed 30 minute bookable interval. Start and End are wall-clock
// times in the location the slot universe was generated in.
type TimeSlot struct {
	ID        string
	Date      time.Time
	Start     time.Time
	End       time.Time
	Available bool
	Price     int
}

// StartClock returns the start time as HH:MM.
func (s TimeSlot) StartClock() string { return s.Start.Format("15:04") }

// EndClock returns the end time as HH:MM.
func (s TimeSlot) EndClock() string { return s.End.Format("15:04") }
