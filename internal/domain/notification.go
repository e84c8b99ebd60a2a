package domain

import "time"

// Notification is an in-app message delivered to a single user.
type Notification struct {
	ID        string
	UserID    string
	Message   string
	URL       string
	Read      bool
	CreatedAt time.Time
}
