package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusOpen, TicketStatusInProgress, true},
		{TicketStatusOpen, TicketStatusClosed, false},
		{TicketStatusOpen, TicketStatusResolved, false},
		{TicketStatusInProgress, TicketStatusResolved, true},
		{TicketStatusInProgress, TicketStatusOpen, true},
		{TicketStatusInProgress, TicketStatusClosed, false},
		{TicketStatusResolved, TicketStatusClosed, true},
		{TicketStatusResolved, TicketStatusInProgress, true},
		{TicketStatusResolved, TicketStatusOpen, false},
		{TicketStatusClosed, TicketStatusOpen, false},
		{TicketStatusClosed, TicketStatusInProgress, false},
		{TicketStatusClosed, TicketStatusResolved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.Empty(t, AllowedTransitions(TicketStatusClosed))
}

func TestApplyStatus_ResolvedAtIsMonotonic(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ticket := &Ticket{Status: TicketStatusOpen, CreatedAt: created}

	ticket.ApplyStatus(TicketStatusInProgress, created.Add(time.Hour))
	assert.Nil(t, ticket.ResolvedAt)

	firstResolve := created.Add(2 * time.Hour)
	ticket.ApplyStatus(TicketStatusResolved, firstResolve)
	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, firstResolve, *ticket.ResolvedAt)

	ticket.ApplyStatus(TicketStatusInProgress, created.Add(3*time.Hour))
	require.NotNil(t, ticket.ResolvedAt)

	ticket.ApplyStatus(TicketStatusResolved, created.Add(4*time.Hour))
	assert.Equal(t, firstResolve, *ticket.ResolvedAt)

	closedAt := created.Add(5 * time.Hour)
	ticket.ApplyStatus(TicketStatusClosed, closedAt)
	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, closedAt, *ticket.ClosedAt)
	assert.False(t, ticket.ClosedAt.Before(*ticket.ResolvedAt))
}

func TestTicketClone(t *testing.T) {
	ticket := &Ticket{ID: "t1", AssignedToID: StringPtr("u1")}
	cp := ticket.Clone()
	*cp.AssignedToID = "u2"
	assert.Equal(t, "u1", *ticket.AssignedToID)
}

func TestRoles(t *testing.T) {
	admin := &User{ID: "a", Role: RoleAdmin, Active: true}
	tech := &User{ID: "t", Role: RoleTech, Active: true}
	inactiveTech := &User{ID: "x", Role: RoleTech}
	requester := &User{ID: "r", Role: RoleRequester, Active: true, IsCriticalActor: true}

	assert.True(t, IsAdmin(admin))
	assert.False(t, IsTech(admin))
	assert.True(t, IsTech(tech))
	assert.False(t, IsStaff(inactiveTech))
	assert.False(t, IsStaff(requester))
	assert.True(t, IsCriticalActor(requester))
	assert.False(t, IsCriticalActor(nil))
}
