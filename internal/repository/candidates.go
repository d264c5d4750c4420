package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourusername/talentpool-api/internal/model"
)

type CandidateRepo struct {
	pool *pgxpool.Pool
}

func NewCandidateRepo(pool *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

// emails, phones and addresses are jsonb; skills, areas_of_interest and tags are text[]
const candidateColumns = `id, domain_id, owner_id, first_name, middle_name, last_name, formatted_name,
	emails, phones, addresses, skills, areas_of_interest, tags, source_id, status,
	objective, summary, resume_text, years_experience, added_at, updated_at`

func scanCandidate(row pgx.Row) (*model.Candidate, error) {
	var c model.Candidate
	err := row.Scan(
		&c.ID, &c.DomainID, &c.OwnerID, &c.FirstName, &c.MiddleName, &c.LastName, &c.FormattedName,
		&c.Emails, &c.Phones, &c.Addresses, &c.Skills, &c.AreasOfInterest, &c.Tags, &c.SourceID, &c.Status,
		&c.Objective, &c.Summary, &c.ResumeText, &c.YearsExperience, &c.AddedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const insertCandidateSQL = `
	INSERT INTO candidates (domain_id, owner_id, first_name, middle_name, last_name, formatted_name,
	                        emails, phones, addresses, skills, areas_of_interest, tags, source_id,
	                        status, objective, summary, years_experience)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	RETURNING ` + candidateColumns

func insertArgs(c *model.Candidate) []any {
	return []any{
		c.DomainID, c.OwnerID, c.FirstName, c.MiddleName, c.LastName, c.FormattedName,
		c.Emails, c.Phones, c.Addresses, nonNil(c.Skills), nonNil(c.AreasOfInterest), nonNil(c.Tags),
		c.SourceID, c.Status, c.Objective, c.Summary, c.YearsExperience,
	}
}

// Create inserts a single candidate
func (r *CandidateRepo) Create(ctx context.Context, c *model.Candidate) (*model.Candidate, error) {
	created, err := scanCandidate(r.pool.QueryRow(ctx, insertCandidateSQL, insertArgs(c)...))
	if err != nil {
		return nil, fmt.Errorf("creating candidate: %w", err)
	}
	return created, nil
}

// CreateBatch inserts all candidates in one transaction; any failure rolls back the batch
func (r *CandidateRepo) CreateBatch(ctx context.Context, candidates []*model.Candidate) ([]*model.Candidate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	created := make([]*model.Candidate, 0, len(candidates))
	for i, c := range candidates {
		row, err := scanCandidate(tx.QueryRow(ctx, insertCandidateSQL, insertArgs(c)...))
		if err != nil {
			return nil, fmt.Errorf("creating candidate %d of batch: %w", i+1, err)
		}
		created = append(created, row)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return created, nil
}

// FindByID returns a candidate in the domain, or nil
func (r *CandidateRepo) FindByID(ctx context.Context, domainID, id uuid.UUID) (*model.Candidate, error) {
	c, err := scanCandidate(r.pool.QueryRow(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE id = $1 AND domain_id = $2
	`, id, domainID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding candidate: %w", err)
	}
	return c, nil
}

// List returns a page of the domain's candidates, newest first, with the total count
func (r *CandidateRepo) List(ctx context.Context, domainID uuid.UUID, limit, offset int) ([]model.Candidate, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM candidates WHERE domain_id = $1
	`, domainID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting candidates: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE domain_id = $1
		ORDER BY added_at DESC, id
		LIMIT $2 OFFSET $3
	`, domainID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	var candidates []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, total, rows.Err()
}

// Update replaces the editable fields of a candidate
func (r *CandidateRepo) Update(ctx context.Context, c *model.Candidate) (*model.Candidate, error) {
	updated, err := scanCandidate(r.pool.QueryRow(ctx, `
		UPDATE candidates
		SET owner_id = $3, first_name = $4, middle_name = $5, last_name = $6, formatted_name = $7,
		    emails = $8, phones = $9, addresses = $10, skills = $11, areas_of_interest = $12,
		    tags = $13, source_id = $14, objective = $15, summary = $16, years_experience = $17,
		    updated_at = now()
		WHERE id = $1 AND domain_id = $2
		RETURNING `+candidateColumns,
		c.ID, c.DomainID, c.OwnerID, c.FirstName, c.MiddleName, c.LastName, c.FormattedName,
		c.Emails, c.Phones, c.Addresses, nonNil(c.Skills), nonNil(c.AreasOfInterest), nonNil(c.Tags),
		c.SourceID, c.Objective, c.Summary, c.YearsExperience,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating candidate: %w", err)
	}
	return updated, nil
}

// UpdateResume stores extracted resume text
func (r *CandidateRepo) UpdateResume(ctx context.Context, domainID, id uuid.UUID, text string) (*model.Candidate, error) {
	updated, err := scanCandidate(r.pool.QueryRow(ctx, `
		UPDATE candidates
		SET resume_text = $3, updated_at = now()
		WHERE id = $1 AND domain_id = $2
		RETURNING `+candidateColumns,
		id, domainID, text))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating candidate resume: %w", err)
	}
	return updated, nil
}

// Delete removes a candidate; notes, history and devices cascade
func (r *CandidateRepo) Delete(ctx context.Context, domainID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1 AND domain_id = $2`, id, domainID)
	if err != nil {
		return fmt.Errorf("deleting candidate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistingEmails returns which of the given addresses already belong to another
// candidate in the domain. Comparison is case-insensitive; excludeID may be uuid.Nil.
func (r *CandidateRepo) ExistingEmails(ctx context.Context, domainID uuid.UUID, emails []string, excludeID uuid.UUID) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(emails))
	for i, e := range emails {
		lowered[i] = strings.ToLower(e)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT lower(e->>'address')
		FROM candidates c, jsonb_array_elements(c.emails) e
		WHERE c.domain_id = $1
		  AND c.id <> $3
		  AND lower(e->>'address') = ANY($2)
	`, domainID, lowered, excludeID)
	if err != nil {
		return nil, fmt.Errorf("checking candidate emails: %w", err)
	}
	defer rows.Close()

	var taken []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scanning candidate email: %w", err)
		}
		taken = append(taken, e)
	}
	return taken, rows.Err()
}

// UpdateStatus changes the pipeline status and records history in one transaction.
// It returns the updated candidate and the previous status.
func (r *CandidateRepo) UpdateStatus(ctx context.Context, domainID, id, userID uuid.UUID, newStatus, note string) (*model.Candidate, string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var currentStatus string
	err = tx.QueryRow(ctx, `
		SELECT status FROM candidates WHERE id = $1 AND domain_id = $2 FOR UPDATE
	`, id, domainID).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("fetching current status: %w", err)
	}

	updated, err := scanCandidate(tx.QueryRow(ctx, `
		UPDATE candidates
		SET status = $3, updated_at = now()
		WHERE id = $1 AND domain_id = $2
		RETURNING `+candidateColumns,
		id, domainID, newStatus))
	if err != nil {
		return nil, "", fmt.Errorf("updating candidate status: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO candidate_status_history (candidate_id, user_id, from_status, to_status, note)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, currentStatus, newStatus, note)
	if err != nil {
		return nil, "", fmt.Errorf("recording status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, "", fmt.Errorf("committing transaction: %w", err)
	}
	return updated, currentStatus, nil
}

// GetHistory returns status changes for a candidate, oldest first
func (r *CandidateRepo) GetHistory(ctx context.Context, candidateID uuid.UUID) ([]model.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, candidate_id, user_id, from_status, to_status, changed_at, note
		FROM candidate_status_history
		WHERE candidate_id = $1
		ORDER BY changed_at ASC
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("fetching status history: %w", err)
	}
	defer rows.Close()

	var history []model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		if err := rows.Scan(&h.ID, &h.CandidateID, &h.UserID, &h.FromStatus, &h.ToStatus, &h.ChangedAt, &h.Note); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// CountByStatus returns pipeline counts for a domain
func (r *CandidateRepo) CountByStatus(ctx context.Context, domainID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM candidates
		WHERE domain_id = $1
		GROUP BY status
	`, domainID)
	if err != nil {
		return nil, fmt.Errorf("counting by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// nonNil keeps text[] columns NOT NULL
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
