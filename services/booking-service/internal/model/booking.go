package model

import "time"

type Booking struct {
	ID            string
	TimeSlotID    string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
	CreatedAt     time.Time
}
