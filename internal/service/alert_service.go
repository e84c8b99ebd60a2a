package service

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	defaultAlertPageSize = 20
	maxAlertPageSize     = 100
)

// Alert orderings accepted by ListAlerts.
const (
	OrderDueAt              = "due_at"
	OrderDueAtDesc          = "-due_at"
	OrderRemainingHours     = "remaining_hours"
	OrderRemainingHoursDesc = "-remaining_hours"
)

// AlertQuery filters and pages the alert listing. Zero values take defaults.
type AlertQuery struct {
	WarnRatio float64
	Severity  domain.Severity
	Ordering  string
	Page      int
	PageSize  int
}

// AlertSummary aggregates the whole filtered alert set, before paging.
type AlertSummary struct {
	WarnRatio float64 `json:"warn_ratio"`
	Warnings  int     `json:"warnings"`
	Breaches  int     `json:"breaches"`
}

// AlertPage is one page of alerts.
type AlertPage struct {
	Items    []domain.TicketAlertSnapshot
	Total    int
	Page     int
	PageSize int
	Summary  AlertSummary
}

// AlertService builds read-only SLA alert snapshots.
type AlertService struct {
	tickets repository.TicketRepository
	catalog repository.CatalogRepository
	now     func() time.Time
}

// NewAlertService creates the service.
func NewAlertService(tickets repository.TicketRepository, catalog repository.CatalogRepository, clock func() time.Time) *AlertService {
	return &AlertService{tickets: tickets, catalog: catalog, now: defaultClock(clock)}
}

// Collect classifies open tickets and keeps those in warning or breach.
// Tickets whose priority is unknown are skipped.
func Collect(tickets []domain.Ticket, priorities map[string]int, warnRatio float64, now time.Time) []domain.TicketAlertSnapshot {
	var out []domain.TicketAlertSnapshot
	for i := range tickets {
		t := &tickets[i]
		if !t.Status.IsOpen() {
			continue
		}
		hours, ok := priorities[t.PriorityID]
		if !ok {
			continue
		}
		a := domain.ClassifySLA(t, hours, warnRatio, now)
		if a.Severity == domain.SeverityOK {
			continue
		}
		out = append(out, domain.TicketAlertSnapshot{
			Ticket:         t,
			Severity:       a.Severity,
			DueAt:          a.DueAt,
			RemainingHours: round2(a.RemainingHours),
			ElapsedHours:   round2(a.ElapsedHours),
			ThresholdHours: round2(a.ThresholdHours),
		})
	}
	return out
}

// ListAlerts returns the alerts of the tickets visible to viewer.
func (s *AlertService) ListAlerts(ctx context.Context, viewer *domain.User, query AlertQuery) (*AlertPage, error) {
	if query.WarnRatio == 0 {
		query.WarnRatio = domain.DefaultWarnRatio
	}
	if !domain.ValidWarnRatio(query.WarnRatio) {
		return nil, apperrors.NewValidationError("warn_ratio must be in (0, 1]", map[string]any{"warn_ratio": query.WarnRatio})
	}
	if query.Severity != "" && query.Severity != domain.SeverityWarning && query.Severity != domain.SeverityBreach {
		return nil, apperrors.NewValidationError("severity must be warning or breach", map[string]any{"severity": query.Severity})
	}
	less, err := alertOrdering(query.Ordering)
	if err != nil {
		return nil, err
	}
	page, size := normalizePage(query.Page, query.PageSize)

	filter, err := visibilityFilter(viewer)
	if err != nil {
		return nil, err
	}
	filter.Statuses = []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	priorities, err := s.catalog.ListPriorities(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	all := Collect(tickets, priorityMap(priorities), query.WarnRatio, s.now())
	summary := AlertSummary{WarnRatio: query.WarnRatio}
	filtered := all[:0]
	for _, a := range all {
		switch a.Severity {
		case domain.SeverityWarning:
			summary.Warnings++
		case domain.SeverityBreach:
			summary.Breaches++
		}
		if query.Severity == "" || a.Severity == query.Severity {
			filtered = append(filtered, a)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return less(filtered[i], filtered[j]) })

	result := &AlertPage{Total: len(filtered), Page: page, PageSize: size, Summary: summary}
	start := (page - 1) * size
	if start < len(filtered) {
		end := start + size
		if end > len(filtered) {
			end = len(filtered)
		}
		result.Items = filtered[start:end]
	}
	return result, nil
}

func alertOrdering(ordering string) (func(a, b domain.TicketAlertSnapshot) bool, error) {
	switch ordering {
	case "", OrderDueAt:
		return func(a, b domain.TicketAlertSnapshot) bool { return a.DueAt.Before(b.DueAt) }, nil
	case OrderDueAtDesc:
		return func(a, b domain.TicketAlertSnapshot) bool { return a.DueAt.After(b.DueAt) }, nil
	case OrderRemainingHours:
		return func(a, b domain.TicketAlertSnapshot) bool { return a.RemainingHours < b.RemainingHours }, nil
	case OrderRemainingHoursDesc:
		return func(a, b domain.TicketAlertSnapshot) bool { return a.RemainingHours > b.RemainingHours }, nil
	default:
		return nil, apperrors.NewValidationError("unknown ordering", map[string]any{"ordering": ordering})
	}
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultAlertPageSize
	}
	if size > maxAlertPageSize {
		size = maxAlertPageSize
	}
	return page, size
}
