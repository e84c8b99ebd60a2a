package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, username, email, role, is_critical_actor, active
        FROM users WHERE id=$1`
	var user domain.User
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.IsCriticalActor,
		&user.Active,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &user, nil
}

func (r *userRepository) ListActiveStaff(ctx context.Context) ([]domain.User, error) {
	const query = `
        SELECT id, username, email, role, is_critical_actor, active
        FROM users WHERE active AND role IN ('TECH','ADMIN')
        ORDER BY username`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.IsCriticalActor, &user.Active); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
