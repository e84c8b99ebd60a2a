package app

import (
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

// Fixed identities of the demo directory, so tokens can be minted with
// `helpdeskctl token` against a fresh in-memory instance.
const (
	DemoAdminID     = "00000000-0000-4000-8000-000000000001"
	DemoTechID      = "00000000-0000-4000-8000-000000000002"
	DemoRequesterID = "00000000-0000-4000-8000-000000000003"
)

// SeedDemo loads a small catalog and identity directory into store.
func SeedDemo(store *memory.Store) {
	store.PutUser(domain.User{ID: DemoAdminID, Username: "admin", Email: "admin@example.com", Role: domain.RoleAdmin, Active: true})
	store.PutUser(domain.User{ID: DemoTechID, Username: "tech", Email: "tech@example.com", Role: domain.RoleTech, Active: true})
	store.PutUser(domain.User{ID: DemoRequesterID, Username: "requester", Email: "requester@example.com", Role: domain.RoleRequester, Active: true})

	store.PutCategory(domain.Category{ID: "hardware", Name: "Hardware"})
	store.PutCategory(domain.Category{ID: "software", Name: "Software"})
	store.PutSubcategory(domain.Subcategory{ID: "printers", CategoryID: "hardware", Name: "Impresoras"})

	store.PutPriority(domain.Priority{ID: "high", Name: "Alta", SLAHours: 8})
	store.PutPriority(domain.Priority{ID: "medium", Name: "Media", SLAHours: 24})
	store.PutPriority(domain.Priority{ID: "low", Name: "Baja", SLAHours: 72})

	store.PutArea(domain.Area{ID: "finance", Name: "Finanzas", IsCritical: true})
	store.PutArea(domain.Area{ID: "sales", Name: "Ventas"})
}
