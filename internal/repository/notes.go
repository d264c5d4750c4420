package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourusername/talentpool-api/internal/model"
)

type NoteRepo struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

func (r *NoteRepo) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]model.Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, candidate_id, user_id, content, created_at
		FROM candidate_notes
		WHERE candidate_id = $1
		ORDER BY created_at DESC
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.CandidateID, &n.UserID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *NoteRepo) Create(ctx context.Context, candidateID, userID uuid.UUID, content string) (*model.Note, error) {
	var n model.Note
	err := r.pool.QueryRow(ctx, `
		INSERT INTO candidate_notes (candidate_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, candidate_id, user_id, content, created_at
	`, candidateID, userID, content).Scan(&n.ID, &n.CandidateID, &n.UserID, &n.Content, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}
	return &n, nil
}

// Delete removes a note; only its author may delete it
func (r *NoteRepo) Delete(ctx context.Context, candidateID, id, userID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM candidate_notes WHERE id = $1 AND candidate_id = $2 AND user_id = $3
	`, id, candidateID, userID)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
