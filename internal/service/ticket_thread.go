package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/pkg/util"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AddComment appends a message to the ticket thread. Requesters may only
// comment on their own tickets and their comments are always public.
func (s *TicketService) AddComment(ctx context.Context, ticketID string, actor *domain.User, body string, internal bool) (*domain.TicketComment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if !canComment(actor, ticket) {
		return nil, apperrors.NewForbidden("not allowed to comment on this ticket")
	}
	if !domain.IsStaff(actor) {
		internal = false
	}
	clean := util.SanitizeText(body)
	if clean == "" {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "body"})
	}

	comment := &domain.TicketComment{TicketID: ticket.ID, AuthorID: actor.ID, Body: clean, IsInternal: internal}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		_, err := s.audit.Append(ctx, ticket.ID, domain.StringPtr(actor.ID), domain.AuditComment, map[string]any{
			"internal":        internal,
			"comment_id":      comment.ID,
			"with_attachment": false,
			"body_preview":    util.Preview(clean, previewLen),
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publishAll(ctx, s.dispatcher, s.logger, []events.Event{
		events.New(events.EventTicketCommentAdded, ticket.ID, domain.StringPtr(actor.ID), s.now(), events.TicketCommentAddedPayload{
			Code:        ticket.Code,
			CommentID:   comment.ID,
			AuthorID:    actor.ID,
			RequesterID: ticket.RequesterID,
			Internal:    internal,
			BodyPreview: util.Preview(clean, previewLen),
		}),
	})
	s.notifyCritical(ctx, ticket, actor, "recibió un comentario")
	return comment, nil
}

// ListComments returns the thread; internal comments are hidden from requesters.
func (s *TicketService) ListComments(ctx context.Context, ticketID string, viewer *domain.User) ([]domain.TicketComment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if !canComment(viewer, ticket) {
		return nil, apperrors.NewForbidden("not allowed to read this ticket thread")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID, domain.IsStaff(viewer))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// AttachmentInput is the metadata of an uploaded file. Bytes live in external storage.
type AttachmentInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
}

// AddAttachment records attachment metadata after validating name, size and type.
func (s *TicketService) AddAttachment(ctx context.Context, ticketID string, actor *domain.User, input AttachmentInput) (*domain.TicketAttachment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if !canAttach(actor, ticket) {
		return nil, apperrors.NewForbidden("not allowed to attach files to this ticket")
	}
	if err := s.validateAttachment(input); err != nil {
		return nil, err
	}

	attachment := &domain.TicketAttachment{
		TicketID:    ticket.ID,
		UploadedBy:  actor.ID,
		FileName:    input.FileName,
		ContentType: input.ContentType,
		SizeBytes:   input.SizeBytes,
		StorageKey:  input.StorageKey,
	}
	if attachment.StorageKey == "" {
		attachment.StorageKey = fmt.Sprintf("tickets/%s/%s-%s", ticket.ID, uuid.NewString(), input.FileName)
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attachments.Create(ctx, attachment); err != nil {
			return err
		}
		_, err := s.audit.Append(ctx, ticket.ID, domain.StringPtr(actor.ID), domain.AuditAttach, map[string]any{
			"filename":     attachment.FileName,
			"size":         attachment.SizeBytes,
			"content_type": attachment.ContentType,
		})
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	publishAll(ctx, s.dispatcher, s.logger, []events.Event{
		events.New(events.EventTicketAttachAdded, ticket.ID, domain.StringPtr(actor.ID), s.now(), events.TicketAttachmentAddedPayload{
			Code:         ticket.Code,
			AttachmentID: attachment.ID,
			FileName:     attachment.FileName,
		}),
	})
	return attachment, nil
}

// ListAttachments returns attachment metadata under the upload permission rules.
func (s *TicketService) ListAttachments(ctx context.Context, ticketID string, viewer *domain.User) ([]domain.TicketAttachment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if !canAttach(viewer, ticket) {
		return nil, apperrors.NewForbidden("not allowed to see attachments of this ticket")
	}
	list, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

func (s *TicketService) validateAttachment(input AttachmentInput) error {
	if !util.IsBareFileName(input.FileName) {
		return apperrors.NewValidationError("invalid file name", map[string]any{"file_name": input.FileName})
	}
	if input.SizeBytes <= 0 {
		return apperrors.NewValidationError("empty file", nil)
	}
	if s.attachCfg.MaxBytes > 0 && input.SizeBytes > s.attachCfg.MaxBytes {
		return apperrors.NewValidationError("file too large", map[string]any{
			"size": input.SizeBytes, "max": s.attachCfg.MaxBytes,
		})
	}
	if input.ContentType != "" && len(s.attachCfg.AllowedContentTypes) > 0 {
		for _, allowed := range s.attachCfg.AllowedContentTypes {
			if allowed == input.ContentType {
				return nil
			}
		}
		return apperrors.NewValidationError("content type not allowed", map[string]any{"content_type": input.ContentType})
	}
	return nil
}

func canComment(actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil || !actor.Active {
		return false
	}
	return domain.IsStaff(actor) || ticket.RequesterID == actor.ID
}

func canAttach(actor *domain.User, ticket *domain.Ticket) bool {
	switch {
	case actor == nil || !actor.Active:
		return false
	case domain.IsAdmin(actor):
		return true
	case domain.IsTech(actor):
		return ticket.AssignedToID == nil || ticket.IsAssignedTo(actor.ID)
	default:
		return ticket.RequesterID == actor.ID
	}
}
