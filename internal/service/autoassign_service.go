package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AutoAssigner routes tickets to technicians using the active rule set and
// administers those rules.
type AutoAssigner struct {
	tx          repository.TxManager
	rules       repository.RuleRepository
	tickets     repository.TicketRepository
	assignments repository.AssignmentRepository
	users       repository.UserRepository
	catalog     repository.CatalogRepository
	audit       *AuditRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// AutoAssignDependencies bundles collaborators.
type AutoAssignDependencies struct {
	Tx             repository.TxManager
	RuleRepo       repository.RuleRepository
	TicketRepo     repository.TicketRepository
	AssignmentRepo repository.AssignmentRepository
	UserRepo       repository.UserRepository
	CatalogRepo    repository.CatalogRepository
	Audit          *AuditRecorder
	Logger         *zap.Logger
	Clock          func() time.Time
}

// NewAutoAssigner creates the resolver.
func NewAutoAssigner(deps AutoAssignDependencies) *AutoAssigner {
	return &AutoAssigner{
		tx:          deps.Tx,
		rules:       deps.RuleRepo,
		tickets:     deps.TicketRepo,
		assignments: deps.AssignmentRepo,
		users:       deps.UserRepo,
		catalog:     deps.CatalogRepo,
		audit:       deps.Audit,
		logger:      defaultLogger(deps.Logger),
		now:         defaultClock(deps.Clock),
	}
}

// Resolve applies the best matching active rule to ticket. It reports whether
// the assignee changed; on success ticket.AssignedToID is updated in place.
// The writes run in their own (possibly nested) transaction.
func (a *AutoAssigner) Resolve(ctx context.Context, ticket *domain.Ticket, actor *domain.User) (bool, []events.Event, error) {
	var (
		changed bool
		evts    []events.Event
	)
	err := a.tx.RunInTx(ctx, func(ctx context.Context) error {
		rules, err := a.rules.ListActive(ctx)
		if err != nil {
			return err
		}
		rule := a.match(rules, ticket)
		if rule == nil || ticket.IsAssignedTo(rule.TechID) {
			return nil
		}

		var actorID *string
		if actor != nil {
			actorID = domain.StringPtr(actor.ID)
		}
		now := a.now()
		previous, err := a.tickets.UpdateAssignee(ctx, ticket.ID, &rule.TechID, now)
		if err != nil {
			return err
		}
		if err := a.assignments.Create(ctx, &domain.TicketAssignment{
			TicketID:   ticket.ID,
			FromUserID: previous,
			ToUserID:   rule.TechID,
			Reason:     domain.AssignReasonAuto,
		}); err != nil {
			return err
		}
		if _, err := a.audit.Append(ctx, ticket.ID, actorID, domain.AuditAssign, map[string]any{
			"from":    refOrNil(previous),
			"to":      rule.TechID,
			"reason":  domain.AssignReasonAuto,
			"rule_id": rule.ID,
		}); err != nil {
			return err
		}

		ticket.AssignedToID = domain.StringPtr(rule.TechID)
		ticket.UpdatedAt = now
		changed = true
		evts = append(evts, events.New(events.EventTicketAssigned, ticket.ID, actorID, now, events.TicketAssignedPayload{
			Code:   ticket.Code,
			From:   previous,
			To:     rule.TechID,
			Reason: domain.AssignReasonAuto,
		}))
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return changed, evts, nil
}

// match picks the rule for ticket by tier: (category, area), then
// (category, any area), then (any category, area). Inside a tier rules bound
// to the ticket's subcategory win over generic ones, then the lowest id.
func (a *AutoAssigner) match(rules []domain.AutoAssignRule, ticket *domain.Ticket) *domain.AutoAssignRule {
	tiers := [3][]domain.AutoAssignRule{}
	for _, rule := range rules {
		if !rule.Active || !subcategoryMatches(rule.SubcategoryID, ticket.SubcategoryID) {
			continue
		}
		switch {
		case rule.CategoryID != nil && *rule.CategoryID == ticket.CategoryID && sameArea(rule.AreaID, ticket.AreaID):
			tiers[0] = append(tiers[0], rule)
		case rule.CategoryID != nil && *rule.CategoryID == ticket.CategoryID && rule.AreaID == nil:
			tiers[1] = append(tiers[1], rule)
		case rule.CategoryID == nil && sameArea(rule.AreaID, ticket.AreaID):
			tiers[2] = append(tiers[2], rule)
		}
	}

	for tier, candidates := range tiers {
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			si, sj := candidates[i].SubcategoryID != nil, candidates[j].SubcategoryID != nil
			if si != sj {
				return si
			}
			return candidates[i].ID < candidates[j].ID
		})
		if len(candidates) > 1 && (candidates[0].SubcategoryID != nil) == (candidates[1].SubcategoryID != nil) {
			a.logger.Warn("ambiguous auto-assign rules; using lowest id",
				zap.String("ticket_id", ticket.ID),
				zap.Int("tier", tier+1),
				zap.Int64("rule_id", candidates[0].ID),
				zap.Int64("shadowed_rule_id", candidates[1].ID))
		}
		chosen := candidates[0]
		return &chosen
	}
	return nil
}

func sameArea(ruleArea, ticketArea *string) bool {
	return ruleArea != nil && ticketArea != nil && *ruleArea == *ticketArea
}

func subcategoryMatches(ruleSub, ticketSub *string) bool {
	if ruleSub == nil {
		return true
	}
	return ticketSub != nil && *ruleSub == *ticketSub
}

// RuleInput describes a new auto-assign rule.
type RuleInput struct {
	CategoryID    *string
	SubcategoryID *string
	AreaID        *string
	TechID        string
}

// CreateRule adds an active rule. Admin only.
func (a *AutoAssigner) CreateRule(ctx context.Context, actor *domain.User, input RuleInput) (*domain.AutoAssignRule, error) {
	if !domain.IsAdmin(actor) {
		return nil, apperrors.NewForbidden("only admins manage auto-assign rules")
	}
	if input.CategoryID == nil && input.AreaID == nil {
		return nil, apperrors.NewValidationError("rule needs a category or an area", nil)
	}
	if input.TechID == "" {
		return nil, apperrors.NewValidationError("tech_id is required", nil)
	}
	if input.CategoryID != nil {
		if _, err := a.catalog.GetCategory(ctx, *input.CategoryID); err != nil {
			return nil, mapRepoError(err, "category", *input.CategoryID)
		}
	}
	if input.SubcategoryID != nil {
		if input.CategoryID == nil {
			return nil, apperrors.NewValidationError("subcategory requires a category", nil)
		}
		sub, err := a.catalog.GetSubcategory(ctx, *input.SubcategoryID)
		if err != nil {
			return nil, mapRepoError(err, "subcategory", *input.SubcategoryID)
		}
		if sub.CategoryID != *input.CategoryID {
			return nil, apperrors.NewValidationError("subcategory does not belong to category", map[string]any{
				"subcategory_id": sub.ID, "category_id": *input.CategoryID,
			})
		}
	}
	if input.AreaID != nil {
		if _, err := a.catalog.GetArea(ctx, *input.AreaID); err != nil {
			return nil, mapRepoError(err, "area", *input.AreaID)
		}
	}
	tech, err := a.users.GetByID(ctx, input.TechID)
	if err != nil {
		return nil, mapRepoError(err, "user", input.TechID)
	}
	if !domain.IsStaff(tech) {
		return nil, apperrors.NewValidationError("rule target must be an active technician or admin", map[string]any{"tech_id": tech.ID})
	}

	rule := &domain.AutoAssignRule{
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		AreaID:        input.AreaID,
		TechID:        tech.ID,
		Active:        true,
	}
	err = a.tx.RunInTx(ctx, func(ctx context.Context) error {
		active, err := a.rules.ListActive(ctx)
		if err != nil {
			return err
		}
		for i := range active {
			if active[i].SameScope(rule) {
				return apperrors.NewConflict("an active rule already covers this scope", map[string]any{"rule_id": active[i].ID})
			}
		}
		return a.rules.Create(ctx, rule)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	a.logger.Info("auto-assign rule created", zap.Int64("rule_id", rule.ID), zap.String("tech_id", rule.TechID))
	return rule, nil
}

// ListRules returns every rule ordered by id. Admin only.
func (a *AutoAssigner) ListRules(ctx context.Context, actor *domain.User) ([]domain.AutoAssignRule, error) {
	if !domain.IsAdmin(actor) {
		return nil, apperrors.NewForbidden("only admins manage auto-assign rules")
	}
	rules, err := a.rules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// DeactivateRule disables a rule. Admin only.
func (a *AutoAssigner) DeactivateRule(ctx context.Context, actor *domain.User, id int64) (*domain.AutoAssignRule, error) {
	if !domain.IsAdmin(actor) {
		return nil, apperrors.NewForbidden("only admins manage auto-assign rules")
	}
	if err := a.rules.SetActive(ctx, id, false); err != nil {
		return nil, mapRepoError(err, "auto-assign rule", id)
	}
	rule, err := a.rules.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "auto-assign rule", id)
	}
	return rule, nil
}
