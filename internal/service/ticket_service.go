package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket lifecycle workflows.
type TicketService struct {
	tx          repository.TxManager
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	assignments repository.AssignmentRepository
	catalog     repository.CatalogRepository
	audit       *AuditRecorder
	autoAssign  *AutoAssigner
	critical    *CriticalClassifier
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	attachCfg   config.AttachmentConfig
	now         func() time.Time
}

// TicketDependencies bundles repositories and collaborators for the ticket service.
type TicketDependencies struct {
	Tx             repository.TxManager
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	AssignmentRepo repository.AssignmentRepository
	CatalogRepo    repository.CatalogRepository
	Audit          *AuditRecorder
	AutoAssign     *AutoAssigner
	Critical       *CriticalClassifier
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Attachments    config.AttachmentConfig
	Clock          func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tx:          deps.Tx,
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		assignments: deps.AssignmentRepo,
		catalog:     deps.CatalogRepo,
		audit:       deps.Audit,
		autoAssign:  deps.AutoAssign,
		critical:    deps.Critical,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      defaultLogger(deps.Logger),
		attachCfg:   deps.Attachments,
		now:         defaultClock(deps.Clock),
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	Kind          domain.TicketKind
	CategoryID    string
	SubcategoryID *string
	PriorityID    string
	AreaID        *string
}

// CreateTicket opens a ticket for requester, records CREATE and tries the
// auto-assign rules. A failing rule resolution is logged and rolled back on
// its own; the ticket is still created.
func (s *TicketService) CreateTicket(ctx context.Context, requester *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if requester == nil || !requester.Active {
		return nil, apperrors.NewUnauthorized("active user required")
	}
	ticket, err := s.buildTicket(ctx, requester, input)
	if err != nil {
		return nil, err
	}

	var evts []events.Event
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		if _, err := s.audit.Append(ctx, ticket.ID, domain.StringPtr(requester.ID), domain.AuditCreate, map[string]any{
			"category": ticket.CategoryID,
			"priority": ticket.PriorityID,
			"area":     refOrNil(ticket.AreaID),
		}); err != nil {
			return err
		}

		if s.autoAssign != nil {
			snapshot := ticket.Clone()
			_, assignEvts, err := s.autoAssign.Resolve(ctx, ticket, requester)
			if err != nil {
				*ticket = *snapshot
				s.logger.Error("auto-assign failed; ticket left unassigned",
					zap.String("ticket_id", ticket.ID),
					zap.String("code", ticket.Code),
					zap.Error(err))
			} else {
				evts = append(evts, assignEvts...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	created := events.New(events.EventTicketCreated, ticket.ID, domain.StringPtr(requester.ID), ticket.CreatedAt, events.TicketCreatedPayload{
		Code:         ticket.Code,
		Title:        ticket.Title,
		RequesterID:  ticket.RequesterID,
		AssignedToID: ticket.AssignedToID,
	})
	publishAll(ctx, s.dispatcher, s.logger, append([]events.Event{created}, evts...))
	s.notifyCritical(ctx, ticket, requester, "creado")

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("code", ticket.Code),
		zap.Bool("auto_assigned", ticket.AssignedToID != nil))
	return ticket, nil
}

func (s *TicketService) buildTicket(ctx context.Context, requester *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := util.SanitizeText(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	kind := input.Kind
	if kind == "" {
		kind = domain.TicketKindIncident
	}
	if !kind.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket kind", map[string]any{"kind": kind})
	}
	if input.CategoryID == "" {
		return nil, apperrors.NewValidationError("category_id is required", map[string]any{"field": "category_id"})
	}
	if input.PriorityID == "" {
		return nil, apperrors.NewValidationError("priority_id is required", map[string]any{"field": "priority_id"})
	}

	if _, err := s.catalog.GetCategory(ctx, input.CategoryID); err != nil {
		return nil, mapRepoError(err, "category", input.CategoryID)
	}
	if input.SubcategoryID != nil {
		sub, err := s.catalog.GetSubcategory(ctx, *input.SubcategoryID)
		if err != nil {
			return nil, mapRepoError(err, "subcategory", *input.SubcategoryID)
		}
		if sub.CategoryID != input.CategoryID {
			return nil, apperrors.NewValidationError("subcategory does not belong to category", map[string]any{
				"subcategory_id": sub.ID, "category_id": input.CategoryID,
			})
		}
	}
	if _, err := s.catalog.GetPriority(ctx, input.PriorityID); err != nil {
		return nil, mapRepoError(err, "priority", input.PriorityID)
	}
	if input.AreaID != nil {
		if _, err := s.catalog.GetArea(ctx, *input.AreaID); err != nil {
			return nil, mapRepoError(err, "area", *input.AreaID)
		}
	}

	now := s.now()
	return &domain.Ticket{
		Code:          generateTicketKey(),
		Title:         title,
		Description:   util.SanitizeText(input.Description),
		Kind:          kind,
		Status:        domain.TicketStatusOpen,
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		PriorityID:    input.PriorityID,
		AreaID:        input.AreaID,
		RequesterID:   requester.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetTicket returns a ticket visible to viewer. Invisible tickets read as not found.
func (s *TicketService) GetTicket(ctx context.Context, viewer *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	if !canView(viewer, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

// ListTickets returns the tickets visible to viewer.
func (s *TicketService) ListTickets(ctx context.Context, viewer *domain.User, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	filter, err := visibilityFilter(viewer)
	if err != nil {
		return nil, err
	}
	filter.Statuses = statuses
	filter.Limit = limit
	filter.Offset = offset
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// TransitionTicket moves a ticket through the lifecycle. Only admins and the
// assigned technician may do so. The status write is a compare-and-swap on
// the status read at request time.
func (s *TicketService) TransitionTicket(ctx context.Context, ticketID string, actor *domain.User, next domain.TicketStatus, comment string, internal bool) (*domain.Ticket, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown target status", map[string]any{"next_status": next})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	previous := ticket.Status
	if !domain.CanTransition(previous, next) {
		return nil, apperrors.NewInvalidTransition(string(previous), string(next))
	}
	if !(domain.IsAdmin(actor) || (domain.IsTech(actor) && ticket.IsAssignedTo(actor.ID))) {
		return nil, apperrors.NewForbidden("only admins or the assigned technician may change status")
	}

	body := util.SanitizeText(comment)
	updated := ticket.Clone()
	now := s.now()
	updated.ApplyStatus(next, now)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.UpdateStatus(ctx, updated, previous); err != nil {
			return err
		}
		var commentID any
		if body != "" {
			c := &domain.TicketComment{TicketID: ticket.ID, AuthorID: actor.ID, Body: body, IsInternal: internal}
			if err := s.comments.Create(ctx, c); err != nil {
				return err
			}
			commentID = c.ID
		}
		_, err := s.audit.Append(ctx, ticket.ID, domain.StringPtr(actor.ID), domain.AuditStatus, map[string]any{
			"from":         previous,
			"from_label":   previous.Label(),
			"to":           next,
			"to_label":     next.Label(),
			"with_comment": body != "",
			"internal":     internal,
			"comment_id":   commentID,
			"body_preview": util.Preview(body, previewLen),
		})
		return err
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}

	s.metrics.RecordTransition(string(previous), string(next))
	publishAll(ctx, s.dispatcher, s.logger, []events.Event{
		events.New(events.EventTicketStatusChanged, updated.ID, domain.StringPtr(actor.ID), now, events.TicketStatusChangedPayload{
			Code:         updated.Code,
			From:         previous,
			To:           next,
			RequesterID:  updated.RequesterID,
			AssignedToID: updated.AssignedToID,
		}),
	})
	s.notifyCritical(ctx, updated, actor, fmt.Sprintf("cambió a %s", next.Label()))
	return updated, nil
}

// ListAudit returns the audit trail of a visible ticket, newest first.
func (s *TicketService) ListAudit(ctx context.Context, viewer *domain.User, ticketID string) ([]domain.AuditLog, error) {
	if _, err := s.GetTicket(ctx, viewer, ticketID); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, ticketID)
}

// ListAssignments returns the assignment history of a visible ticket, newest first.
func (s *TicketService) ListAssignments(ctx context.Context, viewer *domain.User, ticketID string) ([]domain.TicketAssignment, error) {
	if _, err := s.GetTicket(ctx, viewer, ticketID); err != nil {
		return nil, err
	}
	history, err := s.assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

func (s *TicketService) notifyCritical(ctx context.Context, ticket *domain.Ticket, actor *domain.User, action string) {
	if s.critical == nil {
		return
	}
	s.critical.NotifyIfCritical(ctx, ticket, actor, action)
}

// canView: admins see everything, technicians their own and the unassigned
// queue, requesters their own tickets.
func canView(viewer *domain.User, ticket *domain.Ticket) bool {
	switch {
	case viewer == nil || !viewer.Active:
		return false
	case domain.IsAdmin(viewer):
		return true
	case domain.IsTech(viewer):
		return ticket.AssignedToID == nil || ticket.IsAssignedTo(viewer.ID)
	default:
		return ticket.RequesterID == viewer.ID
	}
}

// visibilityFilter scopes listings: admin all, tech assigned to self,
// requester own.
func visibilityFilter(viewer *domain.User) (repository.TicketFilter, error) {
	switch {
	case viewer == nil || !viewer.Active:
		return repository.TicketFilter{}, apperrors.NewUnauthorized("active user required")
	case domain.IsAdmin(viewer):
		return repository.TicketFilter{}, nil
	case domain.IsTech(viewer):
		return repository.TicketFilter{AssigneeID: domain.StringPtr(viewer.ID)}, nil
	default:
		return repository.TicketFilter{RequesterID: domain.StringPtr(viewer.ID)}, nil
	}
}
