package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketAttachAdded   EventType = "ticket_attachment_added"
	EventSLAWarning          EventType = "sla_warning"
	EventSLABreach           EventType = "sla_breach"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New builds an event with a fresh id.
func New(eventType EventType, ticketID string, actorID *string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code         string  `json:"code"`
	Title        string  `json:"title"`
	RequesterID  string  `json:"requester_id"`
	AssignedToID *string `json:"assigned_to_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Code         string              `json:"code"`
	From         domain.TicketStatus `json:"from"`
	To           domain.TicketStatus `json:"to"`
	RequesterID  string              `json:"requester_id"`
	AssignedToID *string             `json:"assigned_to_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Code   string  `json:"code"`
	From   *string `json:"from,omitempty"`
	To     string  `json:"to"`
	Reason string  `json:"reason"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	Code        string `json:"code"`
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	RequesterID string `json:"requester_id"`
	Internal    bool   `json:"internal"`
	BodyPreview string `json:"body_preview"`
}

// TicketAttachmentAddedPayload payload.
type TicketAttachmentAddedPayload struct {
	Code         string `json:"code"`
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
}

// SLAPayload is shared by sla_warning and sla_breach.
type SLAPayload struct {
	Code           string          `json:"code"`
	Severity       domain.Severity `json:"severity"`
	DueAt          time.Time       `json:"due_at"`
	RemainingHours float64         `json:"remaining_hours"`
	RequesterID    string          `json:"requester_id"`
	AssignedToID   *string         `json:"assigned_to_id,omitempty"`
}
