package calendar

import (
	"time"
)

// Day is one cell of the month grid.
type Day struct {
	Date        time.Time
	InMonth     bool
	Selected    bool
	Today       bool
	Highlighted bool
	// Disabled days are outside the month or already past.
	Disabled bool
}

type Week [7]Day

// Grid is a Sunday-first month view.
type Grid struct {
	Year  int
	Month time.Month
	Weeks []Week
}

// Month lays out the weeks covering month. Only the year and month of month are
// used; every date is midnight in month's location. A zero selected selects nothing.
func Month(month, selected, today time.Time, highlighted []time.Time) Grid {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	todayKey := key(today.In(loc))

	marked := make(map[string]bool, len(highlighted))
	for _, h := range highlighted {
		marked[key(h)] = true
	}
	selectedKey := ""
	if !selected.IsZero() {
		selectedKey = key(selected)
	}

	g := Grid{Year: first.Year(), Month: first.Month()}
	for day := start; ; {
		var w Week
		for i := range w {
			k := key(day)
			inMonth := day.Month() == first.Month()
			w[i] = Day{
				Date:        day,
				InMonth:     inMonth,
				Selected:    k == selectedKey,
				Today:       k == todayKey,
				Highlighted: marked[k],
				Disabled:    !inMonth || k < todayKey,
			}
			day = day.AddDate(0, 0, 1)
		}
		g.Weeks = append(g.Weeks, w)
		if day.Month() != first.Month() {
			break
		}
	}
	return g
}

// Next returns the first day of the month after month.
func Next(month time.Time) time.Time {
	return time.Date(month.Year(), month.Month()+1, 1, 0, 0, 0, 0, month.Location())
}

// Prev returns the first day of the month before month.
func Prev(month time.Time) time.Time {
	return time.Date(month.Year(), month.Month()-1, 1, 0, 0, 0, 0, month.Location())
}

// key sorts lexically in date order.
func key(t time.Time) string {
	return t.Format("2006-01-02")
}
