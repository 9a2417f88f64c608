package model

// Contact is what the customer types into the booking form.
type Contact struct {
	Name  string
	Email string
	Phone string
	Notes string
}
