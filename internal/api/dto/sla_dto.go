package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SLACheckRequest payload. A nil WarnRatio means the configured default.
type SLACheckRequest struct {
	WarnRatio *float64 `json:"warn_ratio"`
	DryRun    bool     `json:"dry_run"`
}

// SLACheckResponse reports counts.
type SLACheckResponse struct {
	Warnings  int     `json:"warnings"`
	Breaches  int     `json:"breaches"`
	WarnRatio float64 `json:"warn_ratio"`
	DryRun    bool    `json:"dry_run"`
}

// AlertResponse is one ticket in warning or breach.
type AlertResponse struct {
	TicketID       string              `json:"ticket_id"`
	Code           string              `json:"code"`
	Title          string              `json:"title"`
	Status         domain.TicketStatus `json:"status"`
	PriorityID     string              `json:"priority_id"`
	AssignedToID   *string             `json:"assigned_to_id"`
	Severity       domain.Severity     `json:"severity"`
	DueAt          time.Time           `json:"due_at"`
	RemainingHours float64             `json:"remaining_hours"`
	ElapsedHours   float64             `json:"elapsed_hours"`
	ThresholdHours float64             `json:"threshold_hours"`
}

// AlertListResponse is a page of alerts plus the unpaged summary.
type AlertListResponse struct {
	Results  []AlertResponse `json:"results"`
	Count    int             `json:"count"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Summary  AlertSummary    `json:"summary"`
}

// AlertSummary totals.
type AlertSummary struct {
	WarnRatio float64 `json:"warn_ratio"`
	Warnings  int     `json:"warnings"`
	Breaches  int     `json:"breaches"`
}

// NewAlertResponse maps a snapshot.
func NewAlertResponse(s domain.TicketAlertSnapshot) AlertResponse {
	return AlertResponse{
		TicketID:       s.Ticket.ID,
		Code:           s.Ticket.Code,
		Title:          s.Ticket.Title,
		Status:         s.Ticket.Status,
		PriorityID:     s.Ticket.PriorityID,
		AssignedToID:   s.Ticket.AssignedToID,
		Severity:       s.Severity,
		DueAt:          s.DueAt,
		RemainingHours: s.RemainingHours,
		ElapsedHours:   s.ElapsedHours,
		ThresholdHours: s.ThresholdHours,
	}
}

// CreateRuleRequest payload.
type CreateRuleRequest struct {
	CategoryID    *string `json:"category_id"`
	SubcategoryID *string `json:"subcategory_id"`
	AreaID        *string `json:"area_id"`
	TechID        string  `json:"tech_id"`
}

// RuleResponse is an auto-assign rule.
type RuleResponse struct {
	ID            int64     `json:"id"`
	CategoryID    *string   `json:"category_id"`
	SubcategoryID *string   `json:"subcategory_id"`
	AreaID        *string   `json:"area_id"`
	TechID        string    `json:"tech_id"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewRuleResponse maps a rule.
func NewRuleResponse(r *domain.AutoAssignRule) RuleResponse {
	return RuleResponse{
		ID:            r.ID,
		CategoryID:    r.CategoryID,
		SubcategoryID: r.SubcategoryID,
		AreaID:        r.AreaID,
		TechID:        r.TechID,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
	}
}
