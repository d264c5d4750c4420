package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourusername/talentpool-api/internal/model"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// ActivityFilter narrows an activity listing
type ActivityFilter struct {
	UserID *uuid.UUID
	Types  []int
	Limit  int
	Offset int
}

func (r *ActivityRepo) Create(ctx context.Context, a *model.Activity) (*model.Activity, error) {
	var created model.Activity
	err := r.pool.QueryRow(ctx, `
		INSERT INTO activities (domain_id, user_id, type, source_table, source_id, params)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, domain_id, user_id, type, source_table, source_id, params, created_at
	`, a.DomainID, a.UserID, a.Type, a.SourceTable, a.SourceID, a.Params,
	).Scan(
		&created.ID, &created.DomainID, &created.UserID, &created.Type,
		&created.SourceTable, &created.SourceID, &created.Params, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating activity: %w", err)
	}
	return &created, nil
}

// List returns a domain's activities, newest first
func (r *ActivityRepo) List(ctx context.Context, domainID uuid.UUID, filter ActivityFilter) ([]model.Activity, error) {
	query := `
		SELECT id, domain_id, user_id, type, source_table, source_id, params, created_at
		FROM activities
		WHERE domain_id = $1
	`
	args := []any{domainID}
	argIdx := 2

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if len(filter.Types) > 0 {
		query += fmt.Sprintf(" AND type = ANY($%d)", argIdx)
		args = append(args, filter.Types)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.DomainID, &a.UserID, &a.Type, &a.SourceTable, &a.SourceID, &a.Params, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
