package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestCollect(t *testing.T) {
	resolved := t0.Add(-time.Hour)
	tickets := []domain.Ticket{
		{ID: "warn", Status: domain.TicketStatusOpen, PriorityID: "p24", CreatedAt: t0.Add(-20 * time.Hour)},
		{ID: "breach", Status: domain.TicketStatusInProgress, PriorityID: "p24", CreatedAt: t0.Add(-25 * time.Hour)},
		{ID: "fresh", Status: domain.TicketStatusOpen, PriorityID: "p24", CreatedAt: t0.Add(-time.Hour)},
		{ID: "resolved", Status: domain.TicketStatusResolved, PriorityID: "p24", CreatedAt: t0.Add(-30 * time.Hour), ResolvedAt: &resolved},
		{ID: "unknown", Status: domain.TicketStatusOpen, PriorityID: "gone", CreatedAt: t0.Add(-30 * time.Hour)},
	}

	alerts := Collect(tickets, map[string]int{"p24": 24}, 0.8, t0)

	require.Len(t, alerts, 2)
	assert.Equal(t, "warn", alerts[0].Ticket.ID)
	assert.Equal(t, domain.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, 4.0, alerts[0].RemainingHours)
	assert.Equal(t, 19.2, alerts[0].ThresholdHours)
	assert.Equal(t, "breach", alerts[1].Ticket.ID)
	assert.Equal(t, domain.SeverityBreach, alerts[1].Severity)
	assert.Equal(t, -1.0, alerts[1].RemainingHours)
	assert.Equal(t, 25.0, alerts[1].ElapsedHours)
}

func alertIDs(page *AlertPage) []string {
	out := make([]string, 0, len(page.Items))
	for _, a := range page.Items {
		out = append(out, a.Ticket.ID)
	}
	return out
}

func seedAlerts(f *fixture) {
	f.putTicket(domain.Ticket{ID: "w", CreatedAt: t0.Add(-20 * time.Hour), AssignedToID: ptr(tech.ID)})
	f.putTicket(domain.Ticket{ID: "b1", CreatedAt: t0.Add(-25 * time.Hour)})
	f.putTicket(domain.Ticket{ID: "b2", CreatedAt: t0.Add(-30 * time.Hour), RequesterID: other.ID})
	f.putTicket(domain.Ticket{ID: "ok", CreatedAt: t0.Add(-2 * time.Hour)})
}

func TestListAlerts(t *testing.T) {
	f := newFixture(t)
	seedAlerts(f)

	page, err := f.alerts.ListAlerts(f.ctx, &admin, AlertQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b1", "w"}, alertIDs(page))
	assert.Equal(t, AlertSummary{WarnRatio: 0.8, Warnings: 1, Breaches: 2}, page.Summary)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	page, err = f.alerts.ListAlerts(f.ctx, &admin, AlertQuery{Severity: domain.SeverityBreach, Ordering: OrderDueAtDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, alertIDs(page))
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Summary.Warnings, "summary ignores the severity filter")

	page, err = f.alerts.ListAlerts(f.ctx, &admin, AlertQuery{Ordering: OrderRemainingHoursDesc, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, alertIDs(page))
	assert.Equal(t, 3, page.Total)

	page, err = f.alerts.ListAlerts(f.ctx, &admin, AlertQuery{Page: 5, PageSize: 500})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 100, page.PageSize)

	page, err = f.alerts.ListAlerts(f.ctx, &admin, AlertQuery{WarnRatio: 0.05})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total, "a low ratio also flags the two hour old ticket")
}

func TestListAlertsRejectsBadQuery(t *testing.T) {
	f := newFixture(t)

	for name, q := range map[string]AlertQuery{
		"ratio":    {WarnRatio: 1.5},
		"severity": {Severity: "ok"},
		"ordering": {Ordering: "title"},
	} {
		_, err := f.alerts.ListAlerts(f.ctx, &admin, q)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), name)
	}
}

func TestListAlertsScopesToViewer(t *testing.T) {
	f := newFixture(t)
	seedAlerts(f)

	page, err := f.alerts.ListAlerts(f.ctx, &tech, AlertQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, alertIDs(page))

	page, err = f.alerts.ListAlerts(f.ctx, &other, AlertQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, alertIDs(page))

	page, err = f.alerts.ListAlerts(f.ctx, &tech2, AlertQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, AlertSummary{WarnRatio: 0.8}, page.Summary)
}
