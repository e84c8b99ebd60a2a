package domain

// Category groups tickets by subject.
type Category struct {
	ID   string
	Name string
}

// Subcategory refines a category.
type Subcategory struct {
	ID         string
	CategoryID string
	Name       string
}

// Priority carries the SLA target for tickets that reference it.
type Priority struct {
	ID       string
	Name     string
	SLAHours int
}

// Area is the organizational unit responsible for a ticket.
type Area struct {
	ID         string
	Name       string
	IsCritical bool
}
