package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestCriticalScore(t *testing.T) {
	f := newFixture(t)
	critical := &domain.Area{ID: "fin", IsCritical: true}
	plain := &domain.Area{ID: "ops"}

	both := f.critical.Score(critical, &vip)
	assert.Equal(t, 3, both.Score)
	assert.Equal(t, []string{"usuario", "área"}, both.Reasons)

	user := f.critical.Score(plain, &vip)
	assert.Equal(t, 2, user.Score)
	assert.True(t, user.IsCritical())

	area := f.critical.Score(critical, &requester)
	assert.Equal(t, 1, area.Score)

	none := f.critical.Score(nil, &requester)
	assert.False(t, none.IsCritical())
}

func TestCriticalActorAlertsAllActiveStaff(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(vip, TicketCreateInput{PriorityID: "p8"})

	var staff []domain.Notification
	for _, n := range f.notifier.Sent {
		if n.UserID != vip.ID {
			staff = append(staff, n)
		}
	}
	require.Len(t, staff, 3)
	assert.ElementsMatch(t, []string{admin.ID, tech.ID, tech2.ID}, []string{staff[0].UserID, staff[1].UserID, staff[2].UserID})
	assert.Equal(t,
		"Atención crítica (usuario): ticket "+ticket.Code+" creado. Estado Abierto, prioridad Alta.",
		staff[0].Message)
}

func TestNonCriticalActionSendsNothingToStaff(t *testing.T) {
	f := newFixture(t)

	f.createTicket(requester, TicketCreateInput{AreaID: ptr("ops")})

	assert.Equal(t, []string{requester.ID}, f.notifier.Recipients())
}
