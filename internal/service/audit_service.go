package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuditRecorder writes and reads the per-ticket audit trail. Entries are
// immutable; no layer offers update or delete.
type AuditRecorder struct {
	repo repository.AuditRepository
}

// NewAuditRecorder creates the recorder.
func NewAuditRecorder(repo repository.AuditRepository) *AuditRecorder {
	return &AuditRecorder{repo: repo}
}

// Append records one entry. Once-per-ticket actions that already exist fail
// with a conflict; use AppendOnce for idempotent writes.
func (a *AuditRecorder) Append(ctx context.Context, ticketID string, actorID *string, action domain.AuditAction, meta map[string]any) (*domain.AuditLog, error) {
	if action.OncePerTicket() {
		entry, written, err := a.AppendOnce(ctx, ticketID, actorID, action, meta)
		if err != nil {
			return nil, err
		}
		if !written {
			return nil, apperrors.NewConflict("audit entry already recorded", map[string]any{
				"ticket_id": ticketID, "action": action,
			})
		}
		return entry, nil
	}
	if err := validateAction(action); err != nil {
		return nil, err
	}
	entry := &domain.AuditLog{TicketID: ticketID, ActorID: actorID, Action: action, Meta: meta}
	if err := a.repo.Append(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	return entry, nil
}

// AppendOnce records entry unless the ticket already carries this action.
func (a *AuditRecorder) AppendOnce(ctx context.Context, ticketID string, actorID *string, action domain.AuditAction, meta map[string]any) (*domain.AuditLog, bool, error) {
	if err := validateAction(action); err != nil {
		return nil, false, err
	}
	entry := &domain.AuditLog{TicketID: ticketID, ActorID: actorID, Action: action, Meta: meta}
	written, err := a.repo.AppendOnce(ctx, entry)
	if err != nil {
		return nil, false, apperrors.MapError(err)
	}
	if !written {
		return nil, false, nil
	}
	return entry, true, nil
}

// List returns the ticket's entries newest first.
func (a *AuditRecorder) List(ctx context.Context, ticketID string) ([]domain.AuditLog, error) {
	entries, err := a.repo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Exists reports whether the ticket has an entry with action.
func (a *AuditRecorder) Exists(ctx context.Context, ticketID string, action domain.AuditAction) (bool, error) {
	ok, err := a.repo.Exists(ctx, ticketID, action)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	return ok, nil
}

func validateAction(action domain.AuditAction) error {
	if !action.Valid() {
		return apperrors.NewValidationError("unknown audit action", map[string]any{"action": action})
	}
	return nil
}
