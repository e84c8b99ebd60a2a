package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const ticketColumns = `id, code, title, description, kind, status, category_id, subcategory_id, priority_id,
               area_id, requester_id, assigned_to_id, created_at, updated_at, resolved_at, closed_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO tickets (id, code, title, description, kind, status, category_id, subcategory_id, priority_id,
            area_id, requester_id, assigned_to_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)
        RETURNING updated_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.ID,
		ticket.Code,
		ticket.Title,
		ticket.Description,
		ticket.Kind,
		ticket.Status,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.PriorityID,
		ticket.AreaID,
		ticket.RequesterID,
		ticket.AssignedToID,
		ticket.CreatedAt,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status=$1, resolved_at=$2, closed_at=$3, updated_at=$4
        WHERE id=$5 AND status=$6`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.Status,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.UpdatedAt,
		ticket.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return r.missOrConflict(ctx, ticket.ID)
	}
	return nil
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, ticketID string, assigneeID *string, updatedAt time.Time) (*string, error) {
	const query = `
        UPDATE tickets t SET assigned_to_id=$1, updated_at=$2
        FROM (SELECT id, assigned_to_id FROM tickets WHERE id=$3 FOR UPDATE) prev
        WHERE t.id = prev.id
        RETURNING prev.assigned_to_id`
	var previous *string
	if err := conn(ctx, r.pool).QueryRow(ctx, query, assigneeID, updatedAt, ticketID).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return previous, nil
}

func (r *ticketRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at ASC, id ASC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListSLACandidates(ctx context.Context, afterID string, limit int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t
        WHERE t.id > $1
          AND (t.status IN ('OPEN','IN_PROGRESS')
               OR (t.resolved_at IS NOT NULL AND NOT EXISTS (
                    SELECT 1 FROM audit_logs a WHERE a.ticket_id = t.id AND a.action = 'SLA_BREACH')))
        ORDER BY t.id ASC
        LIMIT $2`
	rows, err := conn(ctx, r.pool).Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.Title,
		&ticket.Description,
		&ticket.Kind,
		&ticket.Status,
		&ticket.CategoryID,
		&ticket.SubcategoryID,
		&ticket.PriorityID,
		&ticket.AreaID,
		&ticket.RequesterID,
		&ticket.AssignedToID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
