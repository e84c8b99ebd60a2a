package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates the audit log repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO audit_logs (id, ticket_id, actor_id, action, meta)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		entry.ID, entry.TicketID, entry.ActorID, entry.Action, metaOrEmpty(entry.Meta),
	).Scan(&entry.CreatedAt)
}

// AppendOnce relies on the partial unique index over (ticket_id, action) for
// the once-per-ticket actions.
func (r *auditRepository) AppendOnce(ctx context.Context, entry *domain.AuditLog) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO audit_logs (id, ticket_id, actor_id, action, meta)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (ticket_id, action) WHERE action IN ('SLA_WARN','SLA_BREACH') DO NOTHING
        RETURNING created_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		entry.ID, entry.TicketID, entry.ActorID, entry.Action, metaOrEmpty(entry.Meta),
	).Scan(&entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *auditRepository) Exists(ctx context.Context, ticketID string, action domain.AuditAction) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM audit_logs WHERE ticket_id=$1 AND action=$2)`, ticketID, action,
	).Scan(&exists)
	return exists, err
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AuditLog, error) {
	const query = `
        SELECT id, ticket_id, actor_id, action, meta, created_at
        FROM audit_logs WHERE ticket_id=$1
        ORDER BY created_at DESC, seq DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.ActorID, &entry.Action, &entry.Meta, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func metaOrEmpty(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
