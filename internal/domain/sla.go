package domain

import "time"

// Severity is the SLA state of a ticket.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityBreach  Severity = "breach"
)

// DefaultWarnRatio is the fraction of the SLA after which a warning is raised.
const DefaultWarnRatio = 0.8

// ValidWarnRatio reports whether r lies in (0, 1].
func ValidWarnRatio(r float64) bool {
	return r > 0 && r <= 1
}

// SLAAssessment is the outcome of classifying one ticket against its SLA.
type SLAAssessment struct {
	Severity       Severity
	DueAt          time.Time
	ElapsedHours   float64
	RemainingHours float64
	ThresholdHours float64
	// Resolved is set when the classification used resolved_at instead of now.
	Resolved bool
}

// ClassifySLA computes the severity of t at now. Resolved tickets only ever
// classify as breach (resolved after due) or ok; breach takes precedence over
// warning for unresolved tickets.
func ClassifySLA(t *Ticket, slaHours int, warnRatio float64, now time.Time) SLAAssessment {
	due := t.DueAt(slaHours)
	elapsed := now.Sub(t.CreatedAt).Hours()
	if elapsed < 0 {
		elapsed = 0
	}
	out := SLAAssessment{
		Severity:       SeverityOK,
		DueAt:          due,
		ElapsedHours:   elapsed,
		RemainingHours: due.Sub(now).Hours(),
		ThresholdHours: float64(slaHours) * warnRatio,
	}

	if t.ResolvedAt != nil {
		out.Resolved = true
		if t.ResolvedAt.After(due) {
			out.Severity = SeverityBreach
		}
		return out
	}

	switch {
	case elapsed >= float64(slaHours):
		out.Severity = SeverityBreach
	case elapsed >= out.ThresholdHours:
		out.Severity = SeverityWarning
	}
	return out
}

// TicketAlertSnapshot is the transient read-path view of a ticket in warning or breach.
type TicketAlertSnapshot struct {
	Ticket         *Ticket
	Severity       Severity
	DueAt          time.Time
	RemainingHours float64
	ElapsedHours   float64
	ThresholdHours float64
}
