package domain

import (
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketKind distinguishes incidents from service requests.
type TicketKind string

const (
	TicketKindIncident TicketKind = "INCIDENT"
	TicketKindRequest  TicketKind = "REQUEST"
)

var statusLabels = map[TicketStatus]string{
	TicketStatusOpen:       "Abierto",
	TicketStatusInProgress: "En progreso",
	TicketStatusResolved:   "Resuelto",
	TicketStatusClosed:     "Cerrado",
}

// Valid reports whether the status is one of the known lifecycle states.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable name of the status.
func (s TicketStatus) Label() string {
	return statusLabels[s]
}

// IsOpen reports whether the ticket still counts against its SLA clock.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusOpen || s == TicketStatusInProgress
}

// Valid reports whether the kind is known.
func (k TicketKind) Valid() bool {
	return k == TicketKindIncident || k == TicketKindRequest
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	Code          string
	Title         string
	Description   string
	Kind          TicketKind
	Status        TicketStatus
	CategoryID    string
	SubcategoryID *string
	PriorityID    string
	AreaID        *string
	RequesterID   string
	AssignedToID  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
}

// DueAt derives the SLA deadline; it is never stored.
func (t *Ticket) DueAt(slaHours int) time.Time {
	return t.CreatedAt.Add(time.Duration(slaHours) * time.Hour)
}

// IsAssignedTo reports whether the ticket is currently assigned to userID.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.SubcategoryID = cloneString(t.SubcategoryID)
	cp.AreaID = cloneString(t.AreaID)
	cp.AssignedToID = cloneString(t.AssignedToID)
	cp.ResolvedAt = cloneTime(t.ResolvedAt)
	cp.ClosedAt = cloneTime(t.ClosedAt)
	return &cp
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusOpen},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:     {},
}

// CanTransition reports whether next is reachable from current in one step.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from current.
func AllowedTransitions(current TicketStatus) []TicketStatus {
	return append([]TicketStatus(nil), allowedTransitions[current]...)
}

// ApplyStatus moves the ticket to next and stamps lifecycle timestamps.
// resolved_at is written only on the first entry into RESOLVED.
func (t *Ticket) ApplyStatus(next TicketStatus, now time.Time) {
	t.Status = next
	switch next {
	case TicketStatusResolved:
		if t.ResolvedAt == nil {
			resolved := now
			t.ResolvedAt = &resolved
		}
	case TicketStatusClosed:
		closed := now
		if t.ResolvedAt != nil && closed.Before(*t.ResolvedAt) {
			closed = *t.ResolvedAt
		}
		t.ClosedAt = &closed
	}
	t.UpdatedAt = now
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// StringPtr is a small helper for optional references.
func StringPtr(v string) *string {
	return &v
}
