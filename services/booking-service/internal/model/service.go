package model

// Service is an entry of the static service catalog. Duration is in minutes.
type Service struct {
	ID          string
	Name        string
	Duration    int
	Price       int
	Description string
}

var services = []Service{
	{
		ID:          "service-1",
		Name:        "Standard Consultation",
		Duration:    30,
		Price:       50,
		Description: "A standard 30-minute consultation session.",
	},
	{
		ID:          "service-2",
		Name:        "Premium Consultation",
		Duration:    60,
		Price:       90,
		Description: "An extended 60-minute in-depth consultation.",
	},
	{
		ID:          "service-3",
		Name:        "Quick Check-in",
		Duration:    15,
		Price:       25,
		Description: "A brief 15-minute check-in session.",
	},
}

// Services returns a copy of the catalog.
func Services() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}
