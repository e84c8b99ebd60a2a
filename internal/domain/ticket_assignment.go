package domain

import "time"

// AssignReasonAuto marks assignments performed by rule resolution.
const AssignReasonAuto = "auto-assign"

// TicketAssignment is an append-only assignment history record.
type TicketAssignment struct {
	ID         string
	TicketID   string
	FromUserID *string
	ToUserID   string
	Reason     string
	CreatedAt  time.Time
}
