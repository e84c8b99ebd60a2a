package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/pkg/util"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AssignmentService handles manual ticket assignment.
type AssignmentService struct {
	tx          repository.TxManager
	tickets     repository.TicketRepository
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	audit       *AuditRecorder
	critical    *CriticalClassifier
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	Tx             repository.TxManager
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	AssignmentRepo repository.AssignmentRepository
	Audit          *AuditRecorder
	Critical       *CriticalClassifier
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tx:          deps.Tx,
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		assignments: deps.AssignmentRepo,
		audit:       deps.Audit,
		critical:    deps.Critical,
		dispatcher:  deps.Dispatcher,
		logger:      defaultLogger(deps.Logger),
		now:         defaultClock(deps.Clock),
	}
}

// AssignResult reports the assignee change.
type AssignResult struct {
	From *string
	To   string
}

// AssignTicket sets the assignee. Admins may assign anyone; technicians may
// only assign themselves.
func (s *AssignmentService) AssignTicket(ctx context.Context, ticketID, toUserID string, actor *domain.User, reason string) (*AssignResult, error) {
	toUserID = strings.TrimSpace(toUserID)
	if toUserID == "" {
		return nil, apperrors.NewValidationError("to_user_id is required", map[string]any{"field": "to_user_id"})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	target, err := s.users.GetByID(ctx, toUserID)
	if err != nil {
		return nil, mapRepoError(err, "user", toUserID)
	}
	if !(domain.IsAdmin(actor) || (domain.IsTech(actor) && target.ID == actor.ID)) {
		return nil, apperrors.NewForbidden("not allowed to assign this ticket")
	}
	if !domain.IsStaff(target) {
		return nil, apperrors.NewValidationError("assignee must be an active technician or admin", map[string]any{"to_user_id": target.ID})
	}

	reason = util.SanitizeText(reason)
	var previous *string
	now := s.now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if previous, err = s.tickets.UpdateAssignee(ctx, ticket.ID, &target.ID, now); err != nil {
			return err
		}
		if err := s.assignments.Create(ctx, &domain.TicketAssignment{
			TicketID:   ticket.ID,
			FromUserID: domain.StringPtr(actor.ID),
			ToUserID:   target.ID,
			Reason:     reason,
		}); err != nil {
			return err
		}
		_, err = s.audit.Append(ctx, ticket.ID, domain.StringPtr(actor.ID), domain.AuditAssign, map[string]any{
			"from":   refOrNil(previous),
			"to":     target.ID,
			"reason": reason,
		})
		return err
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}

	ticket.AssignedToID = domain.StringPtr(target.ID)
	ticket.UpdatedAt = now
	publishAll(ctx, s.dispatcher, s.logger, []events.Event{
		events.New(events.EventTicketAssigned, ticket.ID, domain.StringPtr(actor.ID), now, events.TicketAssignedPayload{
			Code:   ticket.Code,
			From:   previous,
			To:     target.ID,
			Reason: reason,
		}),
	})
	if s.critical != nil {
		s.critical.NotifyIfCritical(ctx, ticket, actor, "fue asignado")
	}
	return &AssignResult{From: previous, To: target.ID}, nil
}
