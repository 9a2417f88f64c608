package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfirmationMessage(t *testing.T) {
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "Your appointment on Monday, March 4, 2024 at 09:00 has been booked.", ConfirmationMessage(start))
}

func TestFailureCopy(t *testing.T) {
	assert.Equal(t, "Booking Failed", FailureTitle)
	assert.Equal(t, "There was an error processing your booking. Please try again.", FailureMessage)
}
