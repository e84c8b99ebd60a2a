package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const previewLen = 120

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func ticketURL(ticketID string) string {
	return "/tickets/" + ticketID
}

// mapRepoError turns repository sentinels into domain errors.
func mapRepoError(err error, resource string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrStatusConflict):
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"id": id})
	default:
		return apperrors.MapError(err)
	}
}

// publishAll dispatches committed events. Failures are logged only.
func publishAll(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, evts []events.Event) {
	if dispatcher == nil {
		return
	}
	for _, event := range evts {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now()
		}
		if err := dispatcher.Publish(ctx, event); err != nil {
			logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

func refOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func defaultClock(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
