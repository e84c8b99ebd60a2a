package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const (
	reasonCriticalUser = "usuario"
	reasonCriticalArea = "área"
)

// CriticalScore is the outcome of scoring a ticket action.
type CriticalScore struct {
	Score   int
	Reasons []string
}

// IsCritical reports whether staff must be alerted.
func (s CriticalScore) IsCritical() bool {
	return s.Score > 0 && len(s.Reasons) > 0
}

// CriticalClassifier flags actions on tickets that involve critical actors or
// critical areas and alerts all active staff.
type CriticalClassifier struct {
	users    repository.UserRepository
	catalog  repository.CatalogRepository
	notifier notify.Dispatcher
	weights  config.CriticalConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// CriticalDependencies bundles collaborators.
type CriticalDependencies struct {
	UserRepo    repository.UserRepository
	CatalogRepo repository.CatalogRepository
	Notifier    notify.Dispatcher
	Weights     config.CriticalConfig
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewCriticalClassifier creates the classifier.
func NewCriticalClassifier(deps CriticalDependencies) *CriticalClassifier {
	return &CriticalClassifier{
		users:    deps.UserRepo,
		catalog:  deps.CatalogRepo,
		notifier: deps.Notifier,
		weights:  deps.Weights,
		metrics:  deps.Metrics,
		logger:   defaultLogger(deps.Logger),
	}
}

// Score weighs a critical actor and a critical area.
func (c *CriticalClassifier) Score(area *domain.Area, actor *domain.User) CriticalScore {
	var out CriticalScore
	if domain.IsCriticalActor(actor) {
		out.Score += c.weights.UserWeight
		out.Reasons = append(out.Reasons, reasonCriticalUser)
	}
	if area != nil && area.IsCritical {
		out.Score += c.weights.AreaWeight
		out.Reasons = append(out.Reasons, reasonCriticalArea)
	}
	return out
}

// NotifyIfCritical alerts every active technician and admin when the action
// is critical. Lookup and delivery failures are logged, never returned.
func (c *CriticalClassifier) NotifyIfCritical(ctx context.Context, ticket *domain.Ticket, actor *domain.User, action string) CriticalScore {
	var area *domain.Area
	if ticket.AreaID != nil {
		loaded, err := c.catalog.GetArea(ctx, *ticket.AreaID)
		if err != nil {
			c.logger.Warn("critical check: area lookup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			area = loaded
		}
	}

	score := c.Score(area, actor)
	if !score.IsCritical() {
		return score
	}

	recipients, err := c.users.ListActiveStaff(ctx)
	if err != nil {
		c.logger.Error("critical check: staff lookup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return score
	}

	message := c.message(ctx, ticket, score, action)
	for _, user := range recipients {
		err := c.notifier.Notify(ctx, domain.Notification{UserID: user.ID, Message: message, URL: ticketURL(ticket.ID)})
		c.metrics.RecordNotification(err)
		if err != nil {
			c.logger.Warn("critical notification failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("user_id", user.ID),
				zap.Error(err))
		}
	}
	c.logger.Info("critical ticket action",
		zap.String("ticket_id", ticket.ID),
		zap.Int("score", score.Score),
		zap.Strings("reasons", score.Reasons),
		zap.Int("recipients", len(recipients)))
	return score
}

func (c *CriticalClassifier) message(ctx context.Context, ticket *domain.Ticket, score CriticalScore, action string) string {
	priority := "sin prioridad"
	if p, err := c.catalog.GetPriority(ctx, ticket.PriorityID); err == nil && p.Name != "" {
		priority = p.Name
	}
	status := ticket.Status.Label()
	if status == "" {
		status = string(ticket.Status)
	}
	return fmt.Sprintf("Atención crítica (%s): ticket %s %s. Estado %s, prioridad %s.",
		strings.Join(score.Reasons, " y "), ticket.Code, action, status, priority)
}
