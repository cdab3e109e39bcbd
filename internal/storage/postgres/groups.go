package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hongminglow/storefront-accounts/internal/models"
	"github.com/jackc/pgx/v5"
)

const groupColumns = `g.id, g.name, g.description, g.discount_percentage, g.min_orders, g.min_spent, g.is_active, g.created_at`

func (s *Store) CreateGroup(ctx context.Context, group models.CustomerGroup) (models.CustomerGroup, error) {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	const query = `
		INSERT INTO customer_groups AS g (id, name, description, discount_percentage, min_orders, min_spent, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + groupColumns
	created, err := scanGroup(s.pool.QueryRow(ctx, query, group.ID, group.Name, group.Description,
		group.DiscountPercentage, group.MinOrders, group.MinSpent, group.IsActive))
	return created, translate(err)
}

func (s *Store) ListActiveGroups(ctx context.Context) ([]models.CustomerGroup, error) {
	return s.queryGroups(ctx, `SELECT `+groupColumns+` FROM customer_groups g WHERE g.is_active ORDER BY g.name`)
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]models.CustomerGroup, error) {
	const query = `
		SELECT ` + groupColumns + `
		FROM customer_groups g
		JOIN customer_group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.name`
	return s.queryGroups(ctx, query, userID)
}

func (s *Store) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customer_group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, userID)
	return translate(err)
}

func (s *Store) queryGroups(ctx context.Context, query string, args ...any) ([]models.CustomerGroup, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query customer groups: %w", err)
	}
	defer rows.Close()

	out := make([]models.CustomerGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGroup(row pgx.Row) (models.CustomerGroup, error) {
	var g models.CustomerGroup
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.DiscountPercentage, &g.MinOrders,
		&g.MinSpent, &g.IsActive, &g.CreatedAt); err != nil {
		return models.CustomerGroup{}, err
	}
	return g, nil
}
