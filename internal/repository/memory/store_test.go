package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func newTicket(id string, status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{
		ID:          id,
		Code:        "TCK-" + id,
		Title:       "printer down",
		Kind:        domain.TicketKindIncident,
		Status:      status,
		CategoryID:  "hw",
		PriorityID:  "p1",
		RequesterID: "req",
		CreatedAt:   time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Tickets().Create(ctx, newTicket("a", domain.TicketStatusOpen)))
		require.NoError(t, store.Audit().Append(ctx, &domain.AuditLog{TicketID: "a", Action: domain.AuditCreate}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Tickets().GetByID(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	entries, err := store.Audit().ListByTicket(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNestedTxFailureKeepsOuterWork(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Tickets().Create(ctx, newTicket("a", domain.TicketStatusOpen)))
		inner := store.RunInTx(ctx, func(ctx context.Context) error {
			_, err := store.Tickets().UpdateAssignee(ctx, "a", domain.StringPtr("tech"), time.Now())
			require.NoError(t, err)
			return errors.New("rule failed")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	got, err := store.Tickets().GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got.AssignedToID)
}

func TestUpdateStatusCompareAndSwap(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Tickets().Create(ctx, newTicket("a", domain.TicketStatusOpen)))

	ticket, err := store.Tickets().GetByID(ctx, "a")
	require.NoError(t, err)
	ticket.ApplyStatus(domain.TicketStatusInProgress, time.Now())
	require.NoError(t, store.Tickets().UpdateStatus(ctx, ticket, domain.TicketStatusOpen))

	err = store.Tickets().UpdateStatus(ctx, ticket, domain.TicketStatusOpen)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	ticket.ID = "missing"
	err = store.Tickets().UpdateStatus(ctx, ticket, domain.TicketStatusOpen)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppendOnceDeduplicates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	written, err := store.Audit().AppendOnce(ctx, &domain.AuditLog{TicketID: "a", Action: domain.AuditSLAWarn})
	require.NoError(t, err)
	assert.True(t, written)

	written, err = store.Audit().AppendOnce(ctx, &domain.AuditLog{TicketID: "a", Action: domain.AuditSLAWarn})
	require.NoError(t, err)
	assert.False(t, written)

	exists, err := store.Audit().Exists(ctx, "a", domain.AuditSLAWarn)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListSLACandidates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	resolvedAt := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Tickets().Create(ctx, newTicket("a", domain.TicketStatusOpen)))
	closed := newTicket("b", domain.TicketStatusClosed)
	require.NoError(t, store.Tickets().Create(ctx, closed))
	resolved := newTicket("c", domain.TicketStatusResolved)
	resolved.ResolvedAt = &resolvedAt
	require.NoError(t, store.Tickets().Create(ctx, resolved))
	breached := newTicket("d", domain.TicketStatusResolved)
	breached.ResolvedAt = &resolvedAt
	require.NoError(t, store.Tickets().Create(ctx, breached))
	require.NoError(t, store.Audit().Append(ctx, &domain.AuditLog{TicketID: "d", Action: domain.AuditSLABreach}))
	require.NoError(t, store.Tickets().Create(ctx, newTicket("e", domain.TicketStatusInProgress)))

	got, err := store.Tickets().ListSLACandidates(ctx, "", 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, tk := range got {
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []string{"a", "c", "e"}, ids)

	got, err = store.Tickets().ListSLACandidates(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)
}

func TestAuditListNewestFirst(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for _, action := range []domain.AuditAction{domain.AuditCreate, domain.AuditAssign, domain.AuditStatus} {
		require.NoError(t, store.Audit().Append(ctx, &domain.AuditLog{TicketID: "a", Action: action}))
	}
	entries, err := store.Audit().ListByTicket(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AuditStatus, entries[0].Action)
	assert.Equal(t, domain.AuditCreate, entries[2].Action)
}
