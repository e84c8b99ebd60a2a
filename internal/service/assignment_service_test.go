package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestAssignTicketByAdmin(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(requester, TicketCreateInput{})
	f.notifier.Sent = nil

	first, err := f.assign.AssignTicket(f.ctx, ticket.ID, tech.ID, &admin, "  <i>turno</i> mañana ")
	require.NoError(t, err)
	assert.Nil(t, first.From)
	assert.Equal(t, tech.ID, first.To)

	second, err := f.assign.AssignTicket(f.ctx, ticket.ID, tech2.ID, &admin, "")
	require.NoError(t, err)
	require.NotNil(t, second.From)
	assert.Equal(t, tech.ID, *second.From)
	assert.Equal(t, tech2.ID, *f.reload(ticket.ID).AssignedToID)

	history, err := f.tickets.ListAssignments(f.ctx, &admin, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, tech2.ID, history[0].ToUserID)
	assert.Equal(t, admin.ID, *history[0].FromUserID)
	assert.Equal(t, "turno mañana", history[1].Reason)

	entries, err := f.tickets.ListAudit(f.ctx, &admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditAssign, entries[0].Action)
	assert.Equal(t, tech.ID, entries[0].Meta["from"])
	assert.Equal(t, tech2.ID, entries[0].Meta["to"])
	assert.Nil(t, entries[1].Meta["from"])

	require.Len(t, f.notifier.Sent, 2)
	assert.Equal(t, "Se te asignó el ticket "+ticket.Code+". Motivo: turno mañana", f.notifier.Sent[0].Message)
	assert.Equal(t, tech2.ID, f.notifier.Sent[1].UserID)
	assert.Contains(t, f.notifier.Sent[1].Message, "Motivo: -")
}

func TestAssignTicketRules(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(requester, TicketCreateInput{})

	cases := []struct {
		name  string
		to    string
		actor domain.User
		code  string
	}{
		{"missing target", " ", admin, apperrors.CodeValidation},
		{"unknown target", "u-ghost", admin, apperrors.CodeNotFound},
		{"tech assigning someone else", tech2.ID, tech, apperrors.CodeForbidden},
		{"requester", requester.ID, requester, apperrors.CodeForbidden},
		{"requester as assignee", requester.ID, admin, apperrors.CodeValidation},
		{"inactive assignee", retired.ID, admin, apperrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actor := tc.actor
			_, err := f.assign.AssignTicket(f.ctx, ticket.ID, tc.to, &actor, "")
			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	_, err := f.assign.AssignTicket(f.ctx, "missing", tech.ID, &admin, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Nil(t, f.reload(ticket.ID).AssignedToID)
	assert.Zero(t, f.countAudit(ticket.ID, domain.AuditAssign))
}

func TestTechSelfAssign(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(requester, TicketCreateInput{})

	result, err := f.assign.AssignTicket(f.ctx, ticket.ID, tech.ID, &tech, "lo tomo")
	require.NoError(t, err)
	assert.Equal(t, tech.ID, result.To)

	history, err := f.store.Assignments().ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, tech.ID, *history[0].FromUserID)
}

// staleTickets hands out the ticket as it was before a concurrent assignment.
type staleTickets struct {
	repository.TicketRepository
}

func (r staleTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.TicketRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stale := ticket.Clone()
	stale.AssignedToID = nil
	return stale, nil
}

func TestAssignTicketReportsStoredPreviousAssignee(t *testing.T) {
	f := newFixture(t, func(d *fixtureDeps) {
		d.tickets = staleTickets{TicketRepository: d.tickets}
	})
	ticket := f.putTicket(domain.Ticket{ID: "t1", CreatedAt: t0, AssignedToID: ptr(tech.ID)})

	result, err := f.assign.AssignTicket(f.ctx, ticket.ID, tech2.ID, &admin, "")
	require.NoError(t, err)
	require.NotNil(t, result.From)
	assert.Equal(t, tech.ID, *result.From)

	entries, err := f.store.Audit().ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, tech.ID, entries[0].Meta["from"])
	assert.Equal(t, tech2.ID, entries[0].Meta["to"])
}
