package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/notify/notifytest"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

func TestMultiAttemptsEveryDispatcher(t *testing.T) {
	failing := &notifytest.Recorder{Err: errors.New("down")}
	ok := &notifytest.Recorder{}
	err := Multi{failing, ok}.Notify(context.Background(), domain.Notification{UserID: "u1", Message: "hi"})

	assert.ErrorContains(t, err, "down")
	assert.Equal(t, []string{"u1"}, ok.Recipients())
}

func TestStoreDispatcherPersists(t *testing.T) {
	store := memory.NewStore()
	d := NewStoreDispatcher(store.Notifications())
	ctx := context.Background()

	require.NoError(t, d.Notify(ctx, domain.Notification{UserID: "u1", Message: "ticket TCK-1 creado", URL: "/tickets/1"}))

	got, err := store.Notifications().ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ticket TCK-1 creado", got[0].Message)
	assert.NotEmpty(t, got[0].ID)
}
