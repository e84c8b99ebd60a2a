package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RulesHandler administers auto-assign rules.
type RulesHandler struct {
	rules *service.AutoAssigner
}

// NewRulesHandler constructs handler.
func NewRulesHandler(rules *service.AutoAssigner) *RulesHandler {
	return &RulesHandler{rules: rules}
}

// List GET /api/auto-assign-rules.
func (h *RulesHandler) List(c *fiber.Ctx) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	rules, err := h.rules.ListRules(c.UserContext(), user)
	if err != nil {
		return err
	}
	items := make([]dto.RuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, dto.NewRuleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /api/auto-assign-rules.
func (h *RulesHandler) Create(c *fiber.Ctx) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.rules.CreateRule(c.UserContext(), user, service.RuleInput{
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		AreaID:        req.AreaID,
		TechID:        req.TechID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewRuleResponse(rule)})
}

// Deactivate POST /api/auto-assign-rules/:id/deactivate.
func (h *RulesHandler) Deactivate(c *fiber.Ctx) error {
	user, err := principal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid rule id", map[string]any{"id": c.Params("id")})
	}
	rule, err := h.rules.DeactivateRule(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRuleResponse(rule)})
}
