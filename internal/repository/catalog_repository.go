package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates the read-only catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT id, name FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name); err != nil {
		return nil, mapNoRows(err)
	}
	return &c, nil
}

func (r *catalogRepository) GetSubcategory(ctx context.Context, id string) (*domain.Subcategory, error) {
	var s domain.Subcategory
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, category_id, name FROM subcategories WHERE id=$1`, id,
	).Scan(&s.ID, &s.CategoryID, &s.Name)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &s, nil
}

func (r *catalogRepository) GetPriority(ctx context.Context, id string) (*domain.Priority, error) {
	var p domain.Priority
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, sla_hours FROM priorities WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.SLAHours)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

func (r *catalogRepository) GetArea(ctx context.Context, id string) (*domain.Area, error) {
	var a domain.Area
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, is_critical FROM areas WHERE id=$1`, id,
	).Scan(&a.ID, &a.Name, &a.IsCritical)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &a, nil
}

func (r *catalogRepository) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT id, name, sla_hours FROM priorities ORDER BY sla_hours`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var p domain.Priority
		if err := rows.Scan(&p.ID, &p.Name, &p.SLAHours); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
