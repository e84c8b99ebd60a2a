package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates the assignment history repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.TicketAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO ticket_assignments (id, ticket_id, from_user_id, to_user_id, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		assignment.ID,
		assignment.TicketID,
		assignment.FromUserID,
		assignment.ToUserID,
		assignment.Reason,
	).Scan(&assignment.CreatedAt)
}

func (r *assignmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAssignment, error) {
	const query = `
        SELECT id, ticket_id, from_user_id, to_user_id, reason, created_at
        FROM ticket_assignments WHERE ticket_id=$1
        ORDER BY created_at DESC, seq DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAssignment
	for rows.Next() {
		var a domain.TicketAssignment
		if err := rows.Scan(&a.ID, &a.TicketID, &a.FromUserID, &a.ToUserID, &a.Reason, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
