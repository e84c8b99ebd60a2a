package domain

import "time"

// TicketComment is a message in the ticket thread.
type TicketComment struct {
	ID         string
	TicketID   string
	AuthorID   string
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}

// TicketAttachment stores metadata for an uploaded file.
type TicketAttachment struct {
	ID          string
	TicketID    string
	UploadedBy  string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	CreatedAt   time.Time
}
