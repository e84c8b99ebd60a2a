package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// NotificationService turns committed domain events into user notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		metrics:    metrics,
		logger:     defaultLogger(logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.notifier == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
	n.dispatcher.Subscribe(events.EventSLAWarning, n.handleSLA)
	n.dispatcher.Subscribe(events.EventSLABreach, n.handleSLA)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, event, fmt.Sprintf("Se creó tu ticket %s: %s", p.Code, p.Title), p.RequesterID)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	switch p.To {
	case domain.TicketStatusResolved:
		return n.send(ctx, event, fmt.Sprintf("Tu ticket %s fue marcado como RESUELTO. Por favor valida.", p.Code), p.RequesterID)
	case domain.TicketStatusClosed:
		return n.send(ctx, event, fmt.Sprintf("Tu ticket %s ha sido CERRADO. ¡Gracias!", p.Code), p.RequesterID)
	}
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	reason := p.Reason
	if reason == "" {
		reason = "-"
	}
	return n.send(ctx, event, fmt.Sprintf("Se te asignó el ticket %s. Motivo: %s", p.Code, reason), p.To)
}

// Only public comments written by someone other than the requester reach the requester.
func (n *NotificationService) handleTicketCommentAdded(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	if p.Internal || p.AuthorID == p.RequesterID {
		return nil
	}
	return n.send(ctx, event, fmt.Sprintf("Nuevo comentario en el ticket %s: %s", p.Code, p.BodyPreview), p.RequesterID)
}

// Warnings go to the assignee; breaches to the assignee and the requester.
func (n *NotificationService) handleSLA(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.SLAPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	var recipients []string
	if p.AssignedToID != nil {
		recipients = append(recipients, *p.AssignedToID)
	}
	message := fmt.Sprintf("El ticket %s está por vencer su SLA.", p.Code)
	if event.Type == events.EventSLABreach {
		message = fmt.Sprintf("El ticket %s ha vencido su SLA.", p.Code)
		if p.AssignedToID == nil || *p.AssignedToID != p.RequesterID {
			recipients = append(recipients, p.RequesterID)
		}
	}
	return n.send(ctx, event, message, recipients...)
}

func (n *NotificationService) send(ctx context.Context, event events.Event, message string, recipients ...string) error {
	var errs []error
	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		err := n.notifier.Notify(ctx, domain.Notification{UserID: userID, Message: message, URL: ticketURL(event.TicketID)})
		n.metrics.RecordNotification(err)
		if err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", userID, err))
			continue
		}
		n.logger.Debug("notification sent",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.String("user_id", userID))
	}
	return errors.Join(errs...)
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
