package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Kind          domain.TicketKind `json:"kind"`
	CategoryID    string            `json:"category_id"`
	SubcategoryID *string           `json:"subcategory_id"`
	PriorityID    string            `json:"priority_id"`
	AreaID        *string           `json:"area_id"`
}

// AssignRequest payload.
type AssignRequest struct {
	ToUserID string `json:"to_user_id"`
	Reason   string `json:"reason"`
}

// AssignResponse reports the assignee change.
type AssignResponse struct {
	From *string `json:"from"`
	To   string  `json:"to"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	NextStatus domain.TicketStatus `json:"next_status"`
	Comment    string              `json:"comment"`
	Internal   bool                `json:"internal"`
}

// TransitionResponse carries the new status.
type TransitionResponse struct {
	Status      domain.TicketStatus `json:"status"`
	StatusLabel string              `json:"status_label"`
}

// TicketResponse is the API view of a ticket.
type TicketResponse struct {
	ID            string              `json:"id"`
	Code          string              `json:"code"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Kind          domain.TicketKind   `json:"kind"`
	Status        domain.TicketStatus `json:"status"`
	StatusLabel   string              `json:"status_label"`
	CategoryID    string              `json:"category_id"`
	SubcategoryID *string             `json:"subcategory_id"`
	PriorityID    string              `json:"priority_id"`
	AreaID        *string             `json:"area_id"`
	RequesterID   string              `json:"requester_id"`
	AssignedToID  *string             `json:"assigned_to_id"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	ResolvedAt    *time.Time          `json:"resolved_at"`
	ClosedAt      *time.Time          `json:"closed_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// CommentResponse represents a thread message.
type CommentResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateAttachmentRequest carries upload metadata; the bytes are stored elsewhere.
type CreateAttachmentRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"storage_key"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssignmentResponse is one assignment history row.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	FromUserID *string   `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditResponse is one audit trail entry.
type AuditResponse struct {
	ID        string             `json:"id"`
	ActorID   *string            `json:"actor_id"`
	Action    domain.AuditAction `json:"action"`
	Meta      map[string]any     `json:"meta"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID,
		Code:          t.Code,
		Title:         t.Title,
		Description:   t.Description,
		Kind:          t.Kind,
		Status:        t.Status,
		StatusLabel:   t.Status.Label(),
		CategoryID:    t.CategoryID,
		SubcategoryID: t.SubcategoryID,
		PriorityID:    t.PriorityID,
		AreaID:        t.AreaID,
		RequesterID:   t.RequesterID,
		AssignedToID:  t.AssignedToID,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
		ClosedAt:      t.ClosedAt,
	}
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.TicketComment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		AuthorID:   c.AuthorID,
		Body:       c.Body,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}

// NewAttachmentResponse maps attachment metadata.
func NewAttachmentResponse(a *domain.TicketAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		StorageKey:  a.StorageKey,
		UploadedBy:  a.UploadedBy,
		CreatedAt:   a.CreatedAt,
	}
}

// NewAssignmentResponses maps assignment history.
func NewAssignmentResponses(rows []domain.TicketAssignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, AssignmentResponse{
			ID:         r.ID,
			FromUserID: r.FromUserID,
			ToUserID:   r.ToUserID,
			Reason:     r.Reason,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out
}

// NewAuditResponses maps audit entries.
func NewAuditResponses(entries []domain.AuditLog) []AuditResponse {
	out := make([]AuditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Action:    e.Action,
			Meta:      e.Meta,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
