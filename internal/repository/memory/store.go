// Package memory provides in-process implementations of the repository
// interfaces. They back unit tests and the API when no database DSN is set.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type txMarker struct{}

type state struct {
	tickets       map[string]*domain.Ticket
	audit         []domain.AuditLog
	assignments   []domain.TicketAssignment
	rules         []domain.AutoAssignRule
	comments      []domain.TicketComment
	attachments   []domain.TicketAttachment
	notifications []domain.Notification
	users         map[string]domain.User
	categories    map[string]domain.Category
	subcategories map[string]domain.Subcategory
	priorities    map[string]domain.Priority
	areas         map[string]domain.Area
	nextRuleID    int64
}

func (s *state) clone() *state {
	cp := &state{
		tickets:       make(map[string]*domain.Ticket, len(s.tickets)),
		audit:         append([]domain.AuditLog(nil), s.audit...),
		assignments:   append([]domain.TicketAssignment(nil), s.assignments...),
		rules:         append([]domain.AutoAssignRule(nil), s.rules...),
		comments:      append([]domain.TicketComment(nil), s.comments...),
		attachments:   append([]domain.TicketAttachment(nil), s.attachments...),
		notifications: append([]domain.Notification(nil), s.notifications...),
		users:         s.users,
		categories:    s.categories,
		subcategories: s.subcategories,
		priorities:    s.priorities,
		areas:         s.areas,
		nextRuleID:    s.nextRuleID,
	}
	for id, t := range s.tickets {
		cp.tickets[id] = t.Clone()
	}
	return cp
}

// Store is a single in-memory database. Transactions serialize on a
// store-wide lock and roll back by restoring a snapshot.
type Store struct {
	mu    sync.Mutex
	data  *state
	clock func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		data: &state{
			tickets:       map[string]*domain.Ticket{},
			users:         map[string]domain.User{},
			categories:    map[string]domain.Category{},
			subcategories: map[string]domain.Subcategory{},
			priorities:    map[string]domain.Priority{},
			areas:         map[string]domain.Area{},
		},
		clock: time.Now,
	}
}

// SetClock overrides the time source used for generated created_at values.
func (s *Store) SetClock(clock func() time.Time) {
	s.clock = clock
}

// RunInTx implements repository.TxManager.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) == s {
		snapshot := s.data.clone()
		if err := fn(ctx); err != nil {
			s.data = snapshot
			return err
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()
	if err := fn(context.WithValue(ctx, txMarker{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// with runs fn under the store lock unless ctx already holds it.
func (s *Store) with(ctx context.Context, fn func(d *state) error) error {
	if ctx.Value(txMarker{}) == s {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Seeding helpers for the identity directory and catalog.

func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *Store) PutCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.categories[c.ID] = c
}

func (s *Store) PutSubcategory(c domain.Subcategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.subcategories[c.ID] = c
}

func (s *Store) PutPriority(p domain.Priority) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.priorities[p.ID] = p
}

func (s *Store) PutArea(a domain.Area) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.areas[a.ID] = a
}

// Accessors for the repositories backed by this store.

func (s *Store) Tickets() repository.TicketRepository             { return ticketRepo{s} }
func (s *Store) Audit() repository.AuditRepository                { return auditRepo{s} }
func (s *Store) Assignments() repository.AssignmentRepository     { return assignmentRepo{s} }
func (s *Store) Rules() repository.RuleRepository                 { return ruleRepo{s} }
func (s *Store) Comments() repository.CommentRepository           { return commentRepo{s} }
func (s *Store) Attachments() repository.AttachmentRepository     { return attachmentRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Catalog() repository.CatalogRepository            { return catalogRepo{s} }

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.with(ctx, func(d *state) error {
		if ticket.ID == "" {
			ticket.ID = uuid.NewString()
		}
		ticket.UpdatedAt = ticket.CreatedAt
		d.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.with(ctx, func(d *state) error {
		t, ok := d.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r ticketRepo) UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	return r.s.with(ctx, func(d *state) error {
		stored, ok := d.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Status != expected {
			return repository.ErrStatusConflict
		}
		updated := stored.Clone()
		updated.Status = ticket.Status
		updated.ResolvedAt = ticket.Clone().ResolvedAt
		updated.ClosedAt = ticket.Clone().ClosedAt
		updated.UpdatedAt = ticket.UpdatedAt
		d.tickets[ticket.ID] = updated
		return nil
	})
}

func (r ticketRepo) UpdateAssignee(ctx context.Context, ticketID string, assigneeID *string, updatedAt time.Time) (*string, error) {
	var previous *string
	err := r.s.with(ctx, func(d *state) error {
		stored, ok := d.tickets[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.AssignedToID != nil {
			previous = domain.StringPtr(*stored.AssignedToID)
		}
		updated := stored.Clone()
		updated.AssignedToID = nil
		if assigneeID != nil {
			updated.AssignedToID = domain.StringPtr(*assigneeID)
		}
		updated.UpdatedAt = updatedAt
		d.tickets[ticketID] = updated
		return nil
	})
	return previous, err
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.s.with(ctx, func(d *state) error {
		for _, t := range d.tickets {
			if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
				continue
			}
			if filter.AssigneeID != nil && !t.IsAssignedTo(*filter.AssigneeID) {
				continue
			}
			if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
				continue
			}
			out = append(out, *t.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 {
		start := filter.Offset
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (r ticketRepo) ListSLACandidates(ctx context.Context, afterID string, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.s.with(ctx, func(d *state) error {
		breached := map[string]bool{}
		for _, e := range d.audit {
			if e.Action == domain.AuditSLABreach {
				breached[e.TicketID] = true
			}
		}
		for id, t := range d.tickets {
			if id <= afterID {
				continue
			}
			if t.Status.IsOpen() || (t.ResolvedAt != nil && !breached[id]) {
				out = append(out, *t.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type auditRepo struct{ s *Store }

func (r auditRepo) Append(ctx context.Context, entry *domain.AuditLog) error {
	return r.s.with(ctx, func(d *state) error {
		r.insert(d, entry)
		return nil
	})
}

func (r auditRepo) AppendOnce(ctx context.Context, entry *domain.AuditLog) (bool, error) {
	written := false
	err := r.s.with(ctx, func(d *state) error {
		for _, e := range d.audit {
			if e.TicketID == entry.TicketID && e.Action == entry.Action {
				return nil
			}
		}
		r.insert(d, entry)
		written = true
		return nil
	})
	return written, err
}

func (r auditRepo) insert(d *state, entry *domain.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = r.s.clock()
	stored := *entry
	stored.Meta = copyMeta(entry.Meta)
	d.audit = append(d.audit, stored)
}

func (r auditRepo) Exists(ctx context.Context, ticketID string, action domain.AuditAction) (bool, error) {
	found := false
	err := r.s.with(ctx, func(d *state) error {
		for _, e := range d.audit {
			if e.TicketID == ticketID && e.Action == action {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r auditRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	err := r.s.with(ctx, func(d *state) error {
		for i := len(d.audit) - 1; i >= 0; i-- {
			if d.audit[i].TicketID == ticketID {
				e := d.audit[i]
				e.Meta = copyMeta(e.Meta)
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func copyMeta(meta map[string]any) map[string]any {
	cp := make(map[string]any, len(meta))
	for k, v := range meta {
		cp[k] = v
	}
	return cp
}

type assignmentRepo struct{ s *Store }

func (r assignmentRepo) Create(ctx context.Context, a *domain.TicketAssignment) error {
	return r.s.with(ctx, func(d *state) error {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.CreatedAt = r.s.clock()
		d.assignments = append(d.assignments, *a)
		return nil
	})
}

func (r assignmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAssignment, error) {
	var out []domain.TicketAssignment
	err := r.s.with(ctx, func(d *state) error {
		for i := len(d.assignments) - 1; i >= 0; i-- {
			if d.assignments[i].TicketID == ticketID {
				out = append(out, d.assignments[i])
			}
		}
		return nil
	})
	return out, err
}

type ruleRepo struct{ s *Store }

func (r ruleRepo) Create(ctx context.Context, rule *domain.AutoAssignRule) error {
	return r.s.with(ctx, func(d *state) error {
		d.nextRuleID++
		rule.ID = d.nextRuleID
		rule.CreatedAt = r.s.clock()
		d.rules = append(d.rules, *rule)
		return nil
	})
}

func (r ruleRepo) GetByID(ctx context.Context, id int64) (*domain.AutoAssignRule, error) {
	var out *domain.AutoAssignRule
	err := r.s.with(ctx, func(d *state) error {
		for _, rule := range d.rules {
			if rule.ID == id {
				cp := rule
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r ruleRepo) ListActive(ctx context.Context) ([]domain.AutoAssignRule, error) {
	var out []domain.AutoAssignRule
	err := r.s.with(ctx, func(d *state) error {
		for _, rule := range d.rules {
			if rule.Active {
				out = append(out, rule)
			}
		}
		return nil
	})
	return out, err
}

func (r ruleRepo) List(ctx context.Context) ([]domain.AutoAssignRule, error) {
	var out []domain.AutoAssignRule
	err := r.s.with(ctx, func(d *state) error {
		out = append(out, d.rules...)
		return nil
	})
	return out, err
}

func (r ruleRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.s.with(ctx, func(d *state) error {
		for i := range d.rules {
			if d.rules[i].ID == id {
				d.rules[i].Active = active
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(ctx context.Context, c *domain.TicketComment) error {
	return r.s.with(ctx, func(d *state) error {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = r.s.clock()
		d.comments = append(d.comments, *c)
		return nil
	})
}

func (r commentRepo) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketComment, error) {
	var out []domain.TicketComment
	err := r.s.with(ctx, func(d *state) error {
		for _, c := range d.comments {
			if c.TicketID == ticketID && (includeInternal || !c.IsInternal) {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

type attachmentRepo struct{ s *Store }

func (r attachmentRepo) Create(ctx context.Context, a *domain.TicketAttachment) error {
	return r.s.with(ctx, func(d *state) error {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.CreatedAt = r.s.clock()
		d.attachments = append(d.attachments, *a)
		return nil
	})
}

func (r attachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	var out []domain.TicketAttachment
	err := r.s.with(ctx, func(d *state) error {
		for _, a := range d.attachments {
			if a.TicketID == ticketID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	return r.s.with(ctx, func(d *state) error {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		n.CreatedAt = r.s.clock()
		d.notifications = append(d.notifications, *n)
		return nil
	})
}

func (r notificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.s.with(ctx, func(d *state) error {
		for i := len(d.notifications) - 1; i >= 0; i-- {
			if d.notifications[i].UserID != userID {
				continue
			}
			out = append(out, d.notifications[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.with(ctx, func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) ListActiveStaff(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.s.with(ctx, func(d *state) error {
		for _, u := range d.users {
			u := u
			if domain.IsStaff(&u) {
				out = append(out, u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, err
}

type catalogRepo struct{ s *Store }

func (r catalogRepo) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var out *domain.Category
	err := r.s.with(ctx, func(d *state) error {
		c, ok := d.categories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r catalogRepo) GetSubcategory(ctx context.Context, id string) (*domain.Subcategory, error) {
	var out *domain.Subcategory
	err := r.s.with(ctx, func(d *state) error {
		c, ok := d.subcategories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r catalogRepo) GetPriority(ctx context.Context, id string) (*domain.Priority, error) {
	var out *domain.Priority
	err := r.s.with(ctx, func(d *state) error {
		p, ok := d.priorities[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r catalogRepo) GetArea(ctx context.Context, id string) (*domain.Area, error) {
	var out *domain.Area
	err := r.s.with(ctx, func(d *state) error {
		a, ok := d.areas[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r catalogRepo) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	var out []domain.Priority
	err := r.s.with(ctx, func(d *state) error {
		for _, p := range d.priorities {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SLAHours < out[j].SLAHours })
	return out, err
}
