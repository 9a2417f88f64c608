package availability

import (
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Period groups slots into the halves of the business day.
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodMorning:
		return PeriodMorning, nil
	case PeriodAfternoon:
		return PeriodAfternoon, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// PeriodOf is morning for slots starting before noon.
func PeriodOf(s model.TimeSlot) Period {
	if s.Start.Hour() < 12 {
		return PeriodMorning
	}
	return PeriodAfternoon
}

// SplitByPeriod partitions slots into morning and afternoon, preserving order.
func SplitByPeriod(slots []model.TimeSlot) (morning, afternoon []model.TimeSlot) {
	for _, s := range slots {
		if PeriodOf(s) == PeriodMorning {
			morning = append(morning, s)
		} else {
			afternoon = append(afternoon, s)
		}
	}
	return morning, afternoon
}

// InPeriod keeps the slots of one period.
func InPeriod(slots []model.TimeSlot, p Period) []model.TimeSlot {
	morning, afternoon := SplitByPeriod(slots)
	if p == PeriodMorning {
		return morning
	}
	return afternoon
}
