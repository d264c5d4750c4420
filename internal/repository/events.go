package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourusername/talentpool-api/internal/model"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

const eventColumns = `id, domain_id, user_id, network, network_event_id, title, description, url,
	venue_name, city, start_at, end_at, status, capacity, created_at, updated_at`

func scanEvent(row pgx.Row, extra ...any) (*model.Event, error) {
	var e model.Event
	dest := []any{
		&e.ID, &e.DomainID, &e.UserID, &e.Network, &e.NetworkEventID, &e.Title, &e.Description, &e.URL,
		&e.VenueName, &e.City, &e.StartAt, &e.EndAt, &e.Status, &e.Capacity, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertOutcome says what an event upsert did
type UpsertOutcome int

const (
	Unchanged UpsertOutcome = iota
	Inserted
	Updated
)

// Upsert inserts an event or refreshes it (dedup by user + network + network
// event id). A row whose fields all match is left alone and reported as
// Unchanged with a nil event.
func (r *EventRepo) Upsert(ctx context.Context, e *model.Event) (*model.Event, UpsertOutcome, error) {
	var inserted bool
	event, err := scanEvent(r.pool.QueryRow(ctx, `
		INSERT INTO events (domain_id, user_id, network, network_event_id, title, description, url,
		                    venue_name, city, start_at, end_at, status, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, network, network_event_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			url = EXCLUDED.url,
			venue_name = EXCLUDED.venue_name,
			city = EXCLUDED.city,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at,
			status = EXCLUDED.status,
			capacity = EXCLUDED.capacity,
			updated_at = now()
		WHERE (events.title, events.description, events.url, events.venue_name, events.city,
		       events.start_at, events.end_at, events.status, events.capacity)
		  IS DISTINCT FROM
		      (EXCLUDED.title, EXCLUDED.description, EXCLUDED.url, EXCLUDED.venue_name, EXCLUDED.city,
		       EXCLUDED.start_at, EXCLUDED.end_at, EXCLUDED.status, EXCLUDED.capacity)
		RETURNING `+eventColumns+`, (xmax = 0)
	`, e.DomainID, e.UserID, e.Network, e.NetworkEventID, e.Title, e.Description, e.URL,
		e.VenueName, e.City, e.StartAt, e.EndAt, e.Status, e.Capacity,
	), &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Unchanged, nil
	}
	if err != nil {
		return nil, Unchanged, fmt.Errorf("upserting event: %w", err)
	}
	if inserted {
		return event, Inserted, nil
	}
	return event, Updated, nil
}

// ListByDomain returns the domain's events, latest start first
func (r *EventRepo) ListByDomain(ctx context.Context, domainID uuid.UUID, limit, offset int) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE domain_id = $1
		ORDER BY start_at DESC NULLS LAST, created_at DESC
		LIMIT $2 OFFSET $3
	`, domainID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *EventRepo) FindByID(ctx context.Context, domainID, id uuid.UUID) (*model.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = $1 AND domain_id = $2
	`, id, domainID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding event: %w", err)
	}
	return e, nil
}

func (r *EventRepo) Delete(ctx context.Context, domainID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1 AND domain_id = $2`, id, domainID)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Social network credentials ----

type CredentialRepo struct {
	pool *pgxpool.Pool
}

func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

const credentialColumns = `id, user_id, domain_id, network, access_token, member_id, last_sync_at, created_at`

func scanCredential(row pgx.Row) (*model.SocialNetworkCredential, error) {
	var c model.SocialNetworkCredential
	err := row.Scan(&c.ID, &c.UserID, &c.DomainID, &c.Network, &c.AccessToken, &c.MemberID, &c.LastSyncAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert stores a recruiter's token for a network, replacing any previous one
func (r *CredentialRepo) Upsert(ctx context.Context, c *model.SocialNetworkCredential) (*model.SocialNetworkCredential, error) {
	saved, err := scanCredential(r.pool.QueryRow(ctx, `
		INSERT INTO social_network_credentials (user_id, domain_id, network, access_token, member_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, network) DO UPDATE
		SET access_token = $4, member_id = $5
		RETURNING `+credentialColumns,
		c.UserID, c.DomainID, c.Network, c.AccessToken, c.MemberID))
	if err != nil {
		return nil, fmt.Errorf("upserting credential: %w", err)
	}
	return saved, nil
}

// ListByUser returns every network a recruiter connected
func (r *CredentialRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.SocialNetworkCredential, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

// ListAll returns every stored credential, for the periodic sync
func (r *CredentialRepo) ListAll(ctx context.Context) ([]model.SocialNetworkCredential, error) {
	return r.list(ctx, "")
}

func (r *CredentialRepo) list(ctx context.Context, where string, args ...any) ([]model.SocialNetworkCredential, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+credentialColumns+`
		FROM social_network_credentials
		`+where+`
		ORDER BY created_at
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var creds []model.SocialNetworkCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		creds = append(creds, *c)
	}
	return creds, rows.Err()
}

// MarkSynced records a completed sync
func (r *CredentialRepo) MarkSynced(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE social_network_credentials SET last_sync_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("marking credential synced: %w", err)
	}
	return nil
}
