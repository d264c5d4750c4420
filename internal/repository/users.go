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

// ErrNotFound is returned by mutations that matched no row
var ErrNotFound = errors.New("not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, firebase_uid, domain_id, email, name, role, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirebaseUID, &u.DomainID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByFirebaseUID looks up a recruiter by their Firebase UID
func (r *UserRepo) FindByFirebaseUID(ctx context.Context, firebaseUID string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE firebase_uid = $1
	`, firebaseUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by firebase uid: %w", err)
	}
	return u, nil
}

// FindByID looks up a recruiter by internal UUID
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by id: %w", err)
	}
	return u, nil
}

// NamesByID returns display names for a set of recruiters
func (r *UserRepo) NamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("listing user names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning user name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// Create inserts a recruiter together with a new domain named domainName.
// The recruiter becomes the domain's admin.
func (r *UserRepo) Create(ctx context.Context, firebaseUID, email, name, domainName string) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var domainID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO domains (name) VALUES ($1) RETURNING id
	`, domainName).Scan(&domainID)
	if err != nil {
		return nil, fmt.Errorf("creating domain: %w", err)
	}

	u, err := scanUser(tx.QueryRow(ctx, `
		INSERT INTO users (firebase_uid, domain_id, email, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		firebaseUID, domainID, email, name, model.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return u, nil
}

// JoinByInvite claims the pending invite for email in domainID and inserts the
// recruiter in the same transaction. It returns ErrNotFound when no invite is pending.
func (r *UserRepo) JoinByInvite(ctx context.Context, firebaseUID, email, name string, domainID uuid.UUID) (*model.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var inviteID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE domain_invites
		SET accepted_at = now()
		WHERE domain_id = $1 AND lower(email) = lower($2) AND accepted_at IS NULL
		RETURNING id
	`, domainID, email).Scan(&inviteID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claiming invite: %w", err)
	}

	u, err := scanUser(tx.QueryRow(ctx, `
		INSERT INTO users (firebase_uid, domain_id, email, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		firebaseUID, domainID, email, name, model.RoleRecruiter))
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return u, nil
}

// UpdateName updates a recruiter's display name
func (r *UserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return u, nil
}

// ---- Domains ----

type DomainRepo struct {
	pool *pgxpool.Pool
}

func NewDomainRepo(pool *pgxpool.Pool) *DomainRepo {
	return &DomainRepo{pool: pool}
}

// FindByID returns a domain, or nil when it does not exist
func (r *DomainRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Domain, error) {
	var d model.Domain
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM domains WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding domain: %w", err)
	}
	return &d, nil
}

// ---- Invites ----

type InviteRepo struct {
	pool *pgxpool.Pool
}

func NewInviteRepo(pool *pgxpool.Pool) *InviteRepo {
	return &InviteRepo{pool: pool}
}

const inviteColumns = `id, domain_id, email, invited_by, created_at, accepted_at`

func scanInvite(row pgx.Row) (*model.Invite, error) {
	var i model.Invite
	if err := row.Scan(&i.ID, &i.DomainID, &i.Email, &i.InvitedBy, &i.CreatedAt, &i.AcceptedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

// Create records a pending invite. Re-inviting a pending address refreshes it.
func (r *InviteRepo) Create(ctx context.Context, domainID, invitedBy uuid.UUID, email string) (*model.Invite, error) {
	i, err := scanInvite(r.pool.QueryRow(ctx, `
		INSERT INTO domain_invites (domain_id, email, invited_by)
		VALUES ($1, lower($2), $3)
		ON CONFLICT (domain_id, email) WHERE accepted_at IS NULL
		DO UPDATE SET invited_by = EXCLUDED.invited_by, created_at = now()
		RETURNING `+inviteColumns,
		domainID, email, invitedBy))
	if err != nil {
		return nil, fmt.Errorf("creating invite: %w", err)
	}
	return i, nil
}

// ListPending returns the domain's unclaimed invites, newest first
func (r *InviteRepo) ListPending(ctx context.Context, domainID uuid.UUID) ([]model.Invite, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+inviteColumns+`
		FROM domain_invites
		WHERE domain_id = $1 AND accepted_at IS NULL
		ORDER BY created_at DESC
	`, domainID)
	if err != nil {
		return nil, fmt.Errorf("listing invites: %w", err)
	}
	defer rows.Close()

	var invites []model.Invite
	for rows.Next() {
		i, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invite: %w", err)
		}
		invites = append(invites, *i)
	}
	return invites, rows.Err()
}

// Revoke deletes a pending invite
func (r *InviteRepo) Revoke(ctx context.Context, domainID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM domain_invites
		WHERE id = $1 AND domain_id = $2 AND accepted_at IS NULL
	`, id, domainID)
	if err != nil {
		return fmt.Errorf("revoking invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
