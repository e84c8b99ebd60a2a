package domain

import "time"

// AuditAction captures what happened to a ticket.
type AuditAction string

const (
	AuditCreate    AuditAction = "CREATE"
	AuditAssign    AuditAction = "ASSIGN"
	AuditStatus    AuditAction = "STATUS"
	AuditComment   AuditAction = "COMMENT"
	AuditAttach    AuditAction = "ATTACH"
	AuditSLAWarn   AuditAction = "SLA_WARN"
	AuditSLABreach AuditAction = "SLA_BREACH"
	AuditUpdate    AuditAction = "UPDATE"
)

// Valid reports whether the action is part of the closed set.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditCreate, AuditAssign, AuditStatus, AuditComment, AuditAttach, AuditSLAWarn, AuditSLABreach, AuditUpdate:
		return true
	}
	return false
}

// OncePerTicket reports whether a ticket may carry at most one entry of this action.
func (a AuditAction) OncePerTicket() bool {
	return a == AuditSLAWarn || a == AuditSLABreach
}

// AuditLog is an immutable audit trail entry. A nil ActorID means the system acted.
type AuditLog struct {
	ID        string
	TicketID  string
	ActorID   *string
	Action    AuditAction
	Meta      map[string]any
	CreatedAt time.Time
}
