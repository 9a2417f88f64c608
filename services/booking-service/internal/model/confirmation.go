package model

import (
	"fmt"
	"time"
)

const (
	ConfirmationTitle = "Appointment Confirmed!"
	FailureTitle      = "Booking Failed"
	FailureMessage    = "There was an error processing your booking. Please try again."
)

// ConfirmationMessage renders the customer-facing confirmation for a slot start,
// e.g. "Your appointment on Monday, March 4, 2024 at 09:00 has been booked."
func ConfirmationMessage(start time.Time) string {
	return fmt.Sprintf("Your appointment on %s at %s has been booked.",
		start.Format("Monday, January 2, 2006"), start.Format("15:04"))
}
