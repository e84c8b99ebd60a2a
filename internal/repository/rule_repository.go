package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const ruleColumns = `id, category_id, subcategory_id, area_id, tech_id, active, created_at`

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository creates the auto-assign rule repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

func (r *ruleRepository) Create(ctx context.Context, rule *domain.AutoAssignRule) error {
	const query = `
        INSERT INTO auto_assign_rules (category_id, subcategory_id, area_id, tech_id, active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		rule.CategoryID, rule.SubcategoryID, rule.AreaID, rule.TechID, rule.Active,
	).Scan(&rule.ID, &rule.CreatedAt)
}

func (r *ruleRepository) GetByID(ctx context.Context, id int64) (*domain.AutoAssignRule, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+ruleColumns+` FROM auto_assign_rules WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, ErrNotFound
	}
	return &rules[0], nil
}

func (r *ruleRepository) ListActive(ctx context.Context) ([]domain.AutoAssignRule, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+ruleColumns+` FROM auto_assign_rules WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *ruleRepository) List(ctx context.Context) ([]domain.AutoAssignRule, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+ruleColumns+` FROM auto_assign_rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *ruleRepository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `UPDATE auto_assign_rules SET active=$1 WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRules(rows pgx.Rows) ([]domain.AutoAssignRule, error) {
	var rules []domain.AutoAssignRule
	for rows.Next() {
		var rule domain.AutoAssignRule
		if err := rows.Scan(
			&rule.ID,
			&rule.CategoryID,
			&rule.SubcategoryID,
			&rule.AreaID,
			&rule.TechID,
			&rule.Active,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
