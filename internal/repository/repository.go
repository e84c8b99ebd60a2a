package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a compare-and-swap status update
	// finds the ticket in a different status than expected.
	ErrStatusConflict = errors.New("ticket status changed concurrently")
)

// TxManager runs fn inside a transaction carried by the context. Nested calls
// open a nested transaction that can fail without aborting the outer one.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TicketFilter captures listing parameters.
type TicketFilter struct {
	RequesterID *string
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// UpdateStatus persists status and lifecycle timestamps only if the stored
	// status still equals expected.
	UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
	// UpdateAssignee sets the assignee and returns the one it replaced, read
	// under the same row lock.
	UpdateAssignee(ctx context.Context, ticketID string, assigneeID *string, updatedAt time.Time) (previous *string, err error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListSLACandidates returns open tickets plus resolved tickets without an
	// SLA_BREACH entry, ordered by id, strictly after afterID.
	ListSLACandidates(ctx context.Context, afterID string, limit int) ([]domain.Ticket, error)
}

// AuditRepository is the write-once audit store. It exposes no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditLog) error
	// AppendOnce inserts entry unless the ticket already has an entry with the
	// same action; it reports whether a row was written.
	AppendOnce(ctx context.Context, entry *domain.AuditLog) (bool, error)
	Exists(ctx context.Context, ticketID string, action domain.AuditAction) (bool, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLog, error)
}

// AssignmentRepository stores assignment history.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.TicketAssignment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAssignment, error)
}

// RuleRepository manages auto-assign rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AutoAssignRule) error
	GetByID(ctx context.Context, id int64) (*domain.AutoAssignRule, error)
	// ListActive returns active rules ordered by id ascending.
	ListActive(ctx context.Context) ([]domain.AutoAssignRule, error)
	List(ctx context.Context) ([]domain.AutoAssignRule, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// CommentRepository manages ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error)
}

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.TicketAttachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error)
}

// NotificationRepository stores in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
}

// UserRepository is the read side of the identity directory.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// ListActiveStaff returns active users holding the TECH or ADMIN role.
	ListActiveStaff(ctx context.Context) ([]domain.User, error)
}

// CatalogRepository is the read-only catalog store.
type CatalogRepository interface {
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetSubcategory(ctx context.Context, id string) (*domain.Subcategory, error)
	GetPriority(ctx context.Context, id string) (*domain.Priority, error)
	GetArea(ctx context.Context, id string) (*domain.Area, error)
	ListPriorities(ctx context.Context) ([]domain.Priority, error)
}
