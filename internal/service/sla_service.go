package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const defaultSweepChunk = 200

// SweepResult counts the alerts recorded (or that would be recorded) by a sweep.
type SweepResult struct {
	Warnings int `json:"warnings"`
	Breaches int `json:"breaches"`
}

// SummaryResult is the outcome of ExpiringSummary.
type SummaryResult struct {
	Tickets    int `json:"tickets"`
	Recipients int `json:"recipients"`
}

// SLAService scans open tickets against their priority SLA and records
// deduplicated warning and breach alerts.
type SLAService struct {
	tickets    repository.TicketRepository
	catalog    repository.CatalogRepository
	users      repository.UserRepository
	audit      *AuditRecorder
	checkpoint persistence.Checkpoint
	notifier   notify.Dispatcher
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	chunkSize  int
	now        func() time.Time
}

// SLADependencies bundles collaborators.
type SLADependencies struct {
	TicketRepo  repository.TicketRepository
	CatalogRepo repository.CatalogRepository
	UserRepo    repository.UserRepository
	Audit       *AuditRecorder
	Checkpoint  persistence.Checkpoint
	Notifier    notify.Dispatcher
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	ChunkSize   int
	Clock       func() time.Time
}

// NewSLAService creates the monitor.
func NewSLAService(deps SLADependencies) *SLAService {
	chunk := deps.ChunkSize
	if chunk <= 0 {
		chunk = defaultSweepChunk
	}
	checkpoint := deps.Checkpoint
	if checkpoint == nil {
		checkpoint = &persistence.MemoryCheckpoint{}
	}
	return &SLAService{
		tickets:    deps.TicketRepo,
		catalog:    deps.CatalogRepo,
		users:      deps.UserRepo,
		audit:      deps.Audit,
		checkpoint: checkpoint,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     defaultLogger(deps.Logger),
		chunkSize:  chunk,
		now:        defaultClock(deps.Clock),
	}
}

// RunSLACheck is the scheduler entry point: a timed, logged Sweep.
func (s *SLAService) RunSLACheck(ctx context.Context, warnRatio float64, dryRun bool) (SweepResult, error) {
	started := time.Now()
	result, err := s.Sweep(ctx, warnRatio, dryRun)
	s.metrics.ObserveSweep(time.Since(started), err)
	if err != nil {
		s.logger.Error("sla check failed", zap.Float64("warn_ratio", warnRatio), zap.Bool("dry_run", dryRun), zap.Error(err))
		return result, err
	}
	s.metrics.RecordSLA(string(domain.SeverityWarning), result.Warnings, dryRun)
	s.metrics.RecordSLA(string(domain.SeverityBreach), result.Breaches, dryRun)
	s.logger.Info("sla check finished",
		zap.Int("warnings", result.Warnings),
		zap.Int("breaches", result.Breaches),
		zap.Bool("dry_run", dryRun),
		zap.Duration("took", time.Since(started)))
	return result, nil
}

// Sweep walks SLA candidates in id order, chunk by chunk. Each ticket gets at
// most one SLA_WARN and one SLA_BREACH entry over its lifetime. A dry run
// counts the same alerts but writes nothing, publishes nothing and ignores
// the checkpoint.
func (s *SLAService) Sweep(ctx context.Context, warnRatio float64, dryRun bool) (SweepResult, error) {
	var result SweepResult
	if !domain.ValidWarnRatio(warnRatio) {
		return result, apperrors.NewValidationError("warn_ratio must be in (0, 1]", map[string]any{"warn_ratio": warnRatio})
	}
	priorities, err := s.priorityHours(ctx)
	if err != nil {
		return result, err
	}

	afterID := ""
	if !dryRun {
		afterID, err = s.checkpoint.Load(ctx)
		if err != nil {
			s.logger.Warn("sla checkpoint unavailable; starting from the beginning", zap.Error(err))
			afterID = ""
		}
		if afterID != "" {
			s.logger.Info("resuming sla sweep", zap.String("after_id", afterID))
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		chunk, err := s.tickets.ListSLACandidates(ctx, afterID, s.chunkSize)
		if err != nil {
			return result, apperrors.MapError(err)
		}
		if len(chunk) == 0 {
			break
		}

		var evts []events.Event
		for i := range chunk {
			ticket := &chunk[i]
			hours, ok := priorities[ticket.PriorityID]
			if !ok {
				s.logger.Warn("ticket priority not found; skipping", zap.String("ticket_id", ticket.ID), zap.String("priority_id", ticket.PriorityID))
				continue
			}
			evt, severity, err := s.evaluate(ctx, ticket, hours, warnRatio, dryRun)
			if err != nil {
				return result, err
			}
			switch severity {
			case domain.SeverityWarning:
				result.Warnings++
			case domain.SeverityBreach:
				result.Breaches++
			}
			if evt != nil {
				evts = append(evts, *evt)
			}
		}
		publishAll(ctx, s.dispatcher, s.logger, evts)

		afterID = chunk[len(chunk)-1].ID
		if !dryRun {
			if err := s.checkpoint.Save(ctx, afterID); err != nil {
				s.logger.Warn("save sla checkpoint failed", zap.String("after_id", afterID), zap.Error(err))
			}
		}
		if len(chunk) < s.chunkSize {
			break
		}
	}

	if !dryRun {
		if err := s.checkpoint.Clear(ctx); err != nil {
			s.logger.Warn("clear sla checkpoint failed", zap.Error(err))
		}
	}
	return result, nil
}

// evaluate classifies one ticket and, outside dry runs, records the alert.
// The returned severity is set only when an alert counts for this sweep. An
// open ticket whose breach is already on record still gets its warning.
func (s *SLAService) evaluate(ctx context.Context, ticket *domain.Ticket, slaHours int, warnRatio float64, dryRun bool) (*events.Event, domain.Severity, error) {
	now := s.now()
	assessment := domain.ClassifySLA(ticket, slaHours, warnRatio, now)
	dueAt := assessment.DueAt.UTC().Format(time.RFC3339)

	severity := assessment.Severity
	if severity == domain.SeverityBreach {
		meta := map[string]any{"due_at": dueAt}
		if assessment.Resolved {
			meta["resolved_at"] = ticket.ResolvedAt.UTC().Format(time.RFC3339)
		} else {
			meta["overdue_h"] = round2(-assessment.RemainingHours)
		}
		fresh, err := s.recordAlert(ctx, ticket.ID, domain.AuditSLABreach, meta, dryRun)
		if err != nil {
			return nil, domain.SeverityOK, err
		}
		if fresh {
			return s.slaEvent(ticket, assessment, domain.SeverityBreach, now, dryRun), domain.SeverityBreach, nil
		}
		if assessment.Resolved {
			return nil, domain.SeverityOK, nil
		}
		severity = domain.SeverityWarning
	}
	if severity != domain.SeverityWarning {
		return nil, domain.SeverityOK, nil
	}

	fresh, err := s.recordAlert(ctx, ticket.ID, domain.AuditSLAWarn, map[string]any{
		"due_at":      dueAt,
		"remaining_h": round2(assessment.RemainingHours),
	}, dryRun)
	if err != nil || !fresh {
		return nil, domain.SeverityOK, err
	}
	return s.slaEvent(ticket, assessment, domain.SeverityWarning, now, dryRun), domain.SeverityWarning, nil
}

// recordAlert reports whether action is new for the ticket. Dry runs only look.
func (s *SLAService) recordAlert(ctx context.Context, ticketID string, action domain.AuditAction, meta map[string]any, dryRun bool) (bool, error) {
	if dryRun {
		exists, err := s.audit.Exists(ctx, ticketID, action)
		return err == nil && !exists, err
	}
	_, written, err := s.audit.AppendOnce(ctx, ticketID, nil, action, meta)
	return written, err
}

func (s *SLAService) slaEvent(ticket *domain.Ticket, assessment domain.SLAAssessment, severity domain.Severity, now time.Time, dryRun bool) *events.Event {
	if dryRun {
		return nil
	}
	eventType := events.EventSLAWarning
	if severity == domain.SeverityBreach {
		eventType = events.EventSLABreach
	}
	evt := events.New(eventType, ticket.ID, nil, now, events.SLAPayload{
		Code:           ticket.Code,
		Severity:       severity,
		DueAt:          assessment.DueAt,
		RemainingHours: round2(assessment.RemainingHours),
		RequesterID:    ticket.RequesterID,
		AssignedToID:   ticket.AssignedToID,
	})
	return &evt
}

// ExpiringSummary sends one summary notification to every active technician
// and admin listing open tickets due within the next withinHours.
func (s *SLAService) ExpiringSummary(ctx context.Context, withinHours int, dryRun bool) (SummaryResult, error) {
	if withinHours < 1 {
		withinHours = 1
	}
	priorities, err := s.priorityHours(ctx)
	if err != nil {
		return SummaryResult{}, err
	}
	open, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
	})
	if err != nil {
		return SummaryResult{}, apperrors.MapError(err)
	}

	now := s.now()
	windowEnd := now.Add(time.Duration(withinHours) * time.Hour)
	type expiring struct {
		ticket domain.Ticket
		due    time.Time
	}
	var due []expiring
	for _, t := range open {
		hours, ok := priorities[t.PriorityID]
		if !ok {
			continue
		}
		at := t.DueAt(hours)
		if !at.Before(now) && !at.After(windowEnd) {
			due = append(due, expiring{ticket: t, due: at})
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })

	recipients, err := s.users.ListActiveStaff(ctx)
	if err != nil {
		return SummaryResult{}, apperrors.MapError(err)
	}
	summary := SummaryResult{Tickets: len(due), Recipients: len(recipients)}
	if len(due) == 0 || len(recipients) == 0 || dryRun || s.notifier == nil {
		return summary, nil
	}

	noun := "tickets están"
	if len(due) == 1 {
		noun = "ticket está"
	}
	message := fmt.Sprintf("%d %s por vencer en las próximas %d horas.", len(due), noun, withinHours)
	for _, user := range recipients {
		err := s.notifier.Notify(ctx, domain.Notification{UserID: user.ID, Message: message, URL: "/alerts"})
		s.metrics.RecordNotification(err)
		if err != nil {
			s.logger.Warn("expiring summary notification failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	s.logger.Info("expiring summary sent", zap.Int("tickets", summary.Tickets), zap.Int("recipients", summary.Recipients))
	return summary, nil
}

func (s *SLAService) priorityHours(ctx context.Context) (map[string]int, error) {
	priorities, err := s.catalog.ListPriorities(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return priorityMap(priorities), nil
}

func priorityMap(priorities []domain.Priority) map[string]int {
	out := make(map[string]int, len(priorities))
	for _, p := range priorities {
		out[p.ID] = p.SLAHours
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
