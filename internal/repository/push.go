package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourusername/talentpool-api/internal/model"
)

type DeviceRepo struct {
	pool *pgxpool.Pool
}

func NewDeviceRepo(pool *pgxpool.Pool) *DeviceRepo {
	return &DeviceRepo{pool: pool}
}

// Register adds a device to a candidate or refreshes last_seen_at when the
// OneSignal player is already registered
func (r *DeviceRepo) Register(ctx context.Context, candidateID uuid.UUID, oneSignalID, platform string) (*model.Device, error) {
	var d model.Device
	err := r.pool.QueryRow(ctx, `
		INSERT INTO devices (candidate_id, onesignal_id, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (candidate_id, onesignal_id) DO UPDATE
		SET platform = EXCLUDED.platform, last_seen_at = now()
		RETURNING id, candidate_id, onesignal_id, platform, created_at, last_seen_at
	`, candidateID, oneSignalID, platform).Scan(
		&d.ID, &d.CandidateID, &d.OneSignalID, &d.Platform, &d.CreatedAt, &d.LastSeenAt,
	)
	if err != nil {
		return nil, fmt.Errorf("registering device: %w", err)
	}
	return &d, nil
}

func (r *DeviceRepo) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]model.Device, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, candidate_id, onesignal_id, platform, created_at, last_seen_at
		FROM devices
		WHERE candidate_id = $1
		ORDER BY created_at
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.CandidateID, &d.OneSignalID, &d.Platform, &d.CreatedAt, &d.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *DeviceRepo) Delete(ctx context.Context, candidateID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1 AND candidate_id = $2`, id, candidateID)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeStale removes devices not seen since before cutoff
func (r *DeviceRepo) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging stale devices: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// ---- Sent notifications ----

type PushNotificationRepo struct {
	pool *pgxpool.Pool
}

func NewPushNotificationRepo(pool *pgxpool.Pool) *PushNotificationRepo {
	return &PushNotificationRepo{pool: pool}
}

func (r *PushNotificationRepo) Create(ctx context.Context, p *model.PushNotification) (*model.PushNotification, error) {
	var n model.PushNotification
	err := r.pool.QueryRow(ctx, `
		INSERT INTO push_notifications (domain_id, candidate_id, user_id, title, message, url, recipients, provider_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, domain_id, candidate_id, user_id, title, message, url, recipients, provider_id, created_at
	`, p.DomainID, p.CandidateID, p.UserID, p.Title, p.Message, p.URL, p.Recipients, p.ProviderID).Scan(
		&n.ID, &n.DomainID, &n.CandidateID, &n.UserID, &n.Title, &n.Message, &n.URL,
		&n.Recipients, &n.ProviderID, &n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording push notification: %w", err)
	}
	return &n, nil
}

// ListByCandidate returns pushes sent to a candidate, newest first
func (r *PushNotificationRepo) ListByCandidate(ctx context.Context, domainID, candidateID uuid.UUID) ([]model.PushNotification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, domain_id, candidate_id, user_id, title, message, url, recipients, provider_id, created_at
		FROM push_notifications
		WHERE domain_id = $1 AND candidate_id = $2
		ORDER BY created_at DESC
	`, domainID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("listing push notifications: %w", err)
	}
	defer rows.Close()

	var out []model.PushNotification
	for rows.Next() {
		var n model.PushNotification
		if err := rows.Scan(
			&n.ID, &n.DomainID, &n.CandidateID, &n.UserID, &n.Title, &n.Message, &n.URL,
			&n.Recipients, &n.ProviderID, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning push notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
