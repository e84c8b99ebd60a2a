// Package notifytest provides an in-memory notification dispatcher for tests.
package notifytest

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Recorder keeps delivered notifications in memory. A non-nil Err fails
// every delivery.
type Recorder struct {
	Sent []domain.Notification
	Err  error
}

func (r *Recorder) Notify(_ context.Context, n domain.Notification) error {
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, n)
	return nil
}

// Recipients returns the user ids notified so far, in order.
func (r *Recorder) Recipients() []string {
	out := make([]string, 0, len(r.Sent))
	for _, n := range r.Sent {
		out = append(out, n.UserID)
	}
	return out
}
