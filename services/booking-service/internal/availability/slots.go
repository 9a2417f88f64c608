package availability

import "time"

// DayStarts returns the start of every bookable slot on date's calendar day,
// OpenHour up to the last SlotLength that ends by CloseHour, in date's
// location. Starts are built from wall-clock fields so a DST switch earlier
// in the day does not shift business hours.
func DayStarts(date time.Time) []time.Time {
	y, m, d := date.Date()
	loc := date.Location()
	starts := make([]time.Time, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		offset := time.Duration(i) * SlotLength
		starts = append(starts, time.Date(y, m, d, OpenHour, int(offset/time.Minute), 0, 0, loc))
	}
	return starts
}
