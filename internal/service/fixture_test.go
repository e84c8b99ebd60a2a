package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify/notifytest"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

var (
	admin     = domain.User{ID: "u-admin", Username: "ana", Role: domain.RoleAdmin, Active: true}
	tech      = domain.User{ID: "u-tech", Username: "tomas", Role: domain.RoleTech, Active: true}
	tech2     = domain.User{ID: "u-tech2", Username: "teresa", Role: domain.RoleTech, Active: true}
	requester = domain.User{ID: "u-req", Username: "rita", Role: domain.RoleRequester, Active: true}
	other     = domain.User{ID: "u-other", Username: "oscar", Role: domain.RoleRequester, Active: true}
	vip       = domain.User{ID: "u-vip", Username: "victor", Role: domain.RoleRequester, Active: true, IsCriticalActor: true}
	retired   = domain.User{ID: "u-retired", Username: "rolo", Role: domain.RoleTech, Active: false}
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *memory.Store
	clock      *clock
	notifier   *notifytest.Recorder
	dispatcher events.Dispatcher
	checkpoint *persistence.MemoryCheckpoint

	audit    *AuditRecorder
	auto     *AutoAssigner
	critical *CriticalClassifier
	tickets  *TicketService
	assign   *AssignmentService
	sla      *SLAService
	alerts   *AlertService
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	rules   repository.RuleRepository
	tickets repository.TicketRepository
	chunk   int
}

func withRuleRepo(r repository.RuleRepository) fixtureOption {
	return func(d *fixtureDeps) { d.rules = r }
}

func withTicketRepo(r repository.TicketRepository) fixtureOption {
	return func(d *fixtureDeps) { d.tickets = r }
}

func withChunk(n int) fixtureOption {
	return func(d *fixtureDeps) { d.chunk = n }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := &clock{now: t0}
	store.SetClock(clk.Now)

	for _, u := range []domain.User{admin, tech, tech2, requester, other, vip, retired} {
		store.PutUser(u)
	}
	store.PutCategory(domain.Category{ID: "hw", Name: "Hardware"})
	store.PutCategory(domain.Category{ID: "sw", Name: "Software"})
	store.PutSubcategory(domain.Subcategory{ID: "printers", CategoryID: "hw", Name: "Impresoras"})
	store.PutSubcategory(domain.Subcategory{ID: "office", CategoryID: "sw", Name: "Ofimática"})
	store.PutPriority(domain.Priority{ID: "p24", Name: "Media", SLAHours: 24})
	store.PutPriority(domain.Priority{ID: "p8", Name: "Alta", SLAHours: 8})
	store.PutArea(domain.Area{ID: "fin", Name: "Finanzas", IsCritical: true})
	store.PutArea(domain.Area{ID: "ops", Name: "Operaciones"})

	deps := fixtureDeps{rules: store.Rules(), tickets: store.Tickets(), chunk: 200}
	for _, opt := range opts {
		opt(&deps)
	}

	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		clock:      clk,
		notifier:   &notifytest.Recorder{},
		dispatcher: events.NewInMemoryDispatcher(),
		checkpoint: &persistence.MemoryCheckpoint{},
	}
	f.audit = NewAuditRecorder(store.Audit())
	f.auto = NewAutoAssigner(AutoAssignDependencies{
		Tx:             store,
		RuleRepo:       deps.rules,
		TicketRepo:     deps.tickets,
		AssignmentRepo: store.Assignments(),
		UserRepo:       store.Users(),
		CatalogRepo:    store.Catalog(),
		Audit:          f.audit,
		Clock:          clk.Now,
	})
	f.critical = NewCriticalClassifier(CriticalDependencies{
		UserRepo:    store.Users(),
		CatalogRepo: store.Catalog(),
		Notifier:    f.notifier,
		Weights:     config.CriticalConfig{UserWeight: 2, AreaWeight: 1},
	})
	f.tickets = NewTicketService(TicketDependencies{
		Tx:             store,
		TicketRepo:     deps.tickets,
		CommentRepo:    store.Comments(),
		AttachmentRepo: store.Attachments(),
		AssignmentRepo: store.Assignments(),
		CatalogRepo:    store.Catalog(),
		Audit:          f.audit,
		AutoAssign:     f.auto,
		Critical:       f.critical,
		Dispatcher:     f.dispatcher,
		Attachments:    config.AttachmentConfig{MaxBytes: 1024, AllowedContentTypes: []string{"image/png", "application/pdf"}},
		Clock:          clk.Now,
	})
	f.assign = NewAssignmentService(AssignmentDependencies{
		Tx:             store,
		TicketRepo:     deps.tickets,
		UserRepo:       store.Users(),
		AssignmentRepo: store.Assignments(),
		Audit:          f.audit,
		Critical:       f.critical,
		Dispatcher:     f.dispatcher,
		Clock:          clk.Now,
	})
	f.sla = NewSLAService(SLADependencies{
		TicketRepo:  deps.tickets,
		CatalogRepo: store.Catalog(),
		UserRepo:    store.Users(),
		Audit:       f.audit,
		Checkpoint:  f.checkpoint,
		Notifier:    f.notifier,
		Dispatcher:  f.dispatcher,
		ChunkSize:   deps.chunk,
		Clock:       clk.Now,
	})
	f.alerts = NewAlertService(deps.tickets, store.Catalog(), clk.Now)
	NewNotificationService(f.dispatcher, f.notifier, nil, nil).RegisterHandlers()
	return f
}

func (f *fixture) createTicket(by domain.User, input TicketCreateInput) *domain.Ticket {
	f.t.Helper()
	if input.Title == "" {
		input.Title = "Impresora sin tóner"
	}
	if input.CategoryID == "" {
		input.CategoryID = "hw"
	}
	if input.PriorityID == "" {
		input.PriorityID = "p24"
	}
	ticket, err := f.tickets.CreateTicket(f.ctx, &by, input)
	require.NoError(f.t, err)
	return ticket
}

// putTicket stores a ticket directly, bypassing the lifecycle service.
func (f *fixture) putTicket(t domain.Ticket) *domain.Ticket {
	f.t.Helper()
	if t.Code == "" {
		t.Code = "TCK-" + t.ID
	}
	if t.Kind == "" {
		t.Kind = domain.TicketKindIncident
	}
	if t.Status == "" {
		t.Status = domain.TicketStatusOpen
	}
	if t.CategoryID == "" {
		t.CategoryID = "hw"
	}
	if t.PriorityID == "" {
		t.PriorityID = "p24"
	}
	if t.RequesterID == "" {
		t.RequesterID = requester.ID
	}
	require.NoError(f.t, f.store.Tickets().Create(f.ctx, &t))
	return &t
}

func (f *fixture) addRule(r domain.AutoAssignRule) domain.AutoAssignRule {
	f.t.Helper()
	r.Active = true
	require.NoError(f.t, f.store.Rules().Create(f.ctx, &r))
	return r
}

func (f *fixture) auditActions(ticketID string) []domain.AuditAction {
	f.t.Helper()
	entries, err := f.store.Audit().ListByTicket(f.ctx, ticketID)
	require.NoError(f.t, err)
	out := make([]domain.AuditAction, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func (f *fixture) countAudit(ticketID string, action domain.AuditAction) int {
	n := 0
	for _, a := range f.auditActions(ticketID) {
		if a == action {
			n++
		}
	}
	return n
}

func (f *fixture) reload(id string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.store.Tickets().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return ticket
}

func ptr(s string) *string { return &s }
