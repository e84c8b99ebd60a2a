package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// SweepLock is the lock shared with the SLA worker and the CLI.
type SweepLock struct {
	Locker persistence.Locker
	Key    string
	TTL    time.Duration
}

// SLAHandler serves alert listings and manual SLA checks.
type SLAHandler struct {
	sla              *service.SLAService
	alerts           *service.AlertService
	defaultWarnRatio float64
	lock             SweepLock
}

// NewSLAHandler constructs handler.
func NewSLAHandler(sla *service.SLAService, alerts *service.AlertService, defaultWarnRatio float64, lock SweepLock) *SLAHandler {
	if defaultWarnRatio == 0 {
		defaultWarnRatio = domain.DefaultWarnRatio
	}
	if lock.Locker == nil {
		lock.Locker = persistence.NewLocalLocker()
	}
	return &SLAHandler{sla: sla, alerts: alerts, defaultWarnRatio: defaultWarnRatio, lock: lock}
}

// ListAlerts GET /api/alerts.
func (h *SLAHandler) ListAlerts(c *fiber.Ctx) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	ratio := h.defaultWarnRatio
	if raw := c.Query("warn_ratio"); raw != "" {
		ratio, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return apperrors.NewValidationError("warn_ratio must be a number", map[string]any{"warn_ratio": raw})
		}
	}
	page, err := h.alerts.ListAlerts(c.UserContext(), user, service.AlertQuery{
		WarnRatio: ratio,
		Severity:  domain.Severity(c.Query("severity")),
		Ordering:  c.Query("ordering"),
		Page:      parseInt(c.Query("page"), 1),
		PageSize:  parseInt(c.Query("page_size"), 0),
	})
	if err != nil {
		return err
	}

	results := make([]dto.AlertResponse, 0, len(page.Items))
	for _, item := range page.Items {
		results = append(results, dto.NewAlertResponse(item))
	}
	return c.JSON(dto.AlertListResponse{
		Results:  results,
		Count:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Summary: dto.AlertSummary{
			WarnRatio: page.Summary.WarnRatio,
			Warnings:  page.Summary.Warnings,
			Breaches:  page.Summary.Breaches,
		},
	})
}

// RunCheck POST /api/sla/check. Admin only. A real check answers 409 while
// another sweep holds the lock; dry runs never take it.
func (h *SLAHandler) RunCheck(c *fiber.Ctx) error {
	var req dto.SLACheckRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ratio := h.defaultWarnRatio
	if req.WarnRatio != nil {
		ratio = *req.WarnRatio
	}
	if !req.DryRun {
		release, ok, err := h.lock.Locker.TryLock(c.UserContext(), h.lock.Key, h.lock.TTL)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if !ok {
			return apperrors.NewConflict("another sla check is running", nil)
		}
		defer release()
	}
	result, err := h.sla.RunSLACheck(c.UserContext(), ratio, req.DryRun)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SLACheckResponse{
		Warnings:  result.Warnings,
		Breaches:  result.Breaches,
		WarnRatio: ratio,
		DryRun:    req.DryRun,
	}})
}
