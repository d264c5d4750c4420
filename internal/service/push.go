package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
)

var (
	ErrNoDevices   = errors.New("candidate has no registered devices")
	ErrPushInvalid = errors.New("invalid push notification")
)

var devicePlatforms = map[string]bool{"ios": true, "android": true, "web": true}

type candidateFinder interface {
	FindByID(ctx context.Context, domainID, id uuid.UUID) (*model.Candidate, error)
}

type deviceStore interface {
	Register(ctx context.Context, candidateID uuid.UUID, oneSignalID, platform string) (*model.Device, error)
	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]model.Device, error)
	Delete(ctx context.Context, candidateID, id uuid.UUID) error
	PurgeStale(ctx context.Context, cutoff time.Time) (int, error)
}

type pushStore interface {
	Create(ctx context.Context, p *model.PushNotification) (*model.PushNotification, error)
	ListByCandidate(ctx context.Context, domainID, candidateID uuid.UUID) ([]model.PushNotification, error)
}

// PushSender delivers a notification to a set of devices
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) (*PushResult, error)
}

// PushService manages candidate devices and sends notifications to them
type PushService struct {
	candidates candidateFinder
	devices    deviceStore
	pushes     pushStore
	sender     PushSender
	activities activityRecorder
}

// NewPushService wires the service; sender may be nil when OneSignal is not configured
func NewPushService(candidates candidateFinder, devices deviceStore, pushes pushStore, sender PushSender, activities activityRecorder) *PushService {
	return &PushService{
		candidates: candidates,
		devices:    devices,
		pushes:     pushes,
		sender:     sender,
		activities: activities,
	}
}

// Enabled reports whether notifications can be delivered
func (s *PushService) Enabled() bool {
	return s.sender != nil
}

func (s *PushService) candidate(ctx context.Context, actor Actor, id uuid.UUID) (*model.Candidate, error) {
	c, err := s.candidates.FindByID(ctx, actor.DomainID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCandidateNotFound
	}
	return c, nil
}

// RegisterDevice links a OneSignal player to a candidate. Registering a known
// player again refreshes its last seen time.
func (s *PushService) RegisterDevice(ctx context.Context, actor Actor, candidateID uuid.UUID, oneSignalID, platform string) (*model.Device, error) {
	oneSignalID = strings.TrimSpace(oneSignalID)
	platform = strings.ToLower(strings.TrimSpace(platform))
	if oneSignalID == "" {
		return nil, fmt.Errorf("%w: oneSignalId is required", ErrPushInvalid)
	}
	if platform == "" {
		platform = "web"
	}
	if !devicePlatforms[platform] {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrPushInvalid, platform)
	}

	c, err := s.candidate(ctx, actor, candidateID)
	if err != nil {
		return nil, err
	}

	device, err := s.devices.Register(ctx, candidateID, oneSignalID, platform)
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, actor.DomainID, actor.UserID, ActivityDeviceRegistered, "devices", device.ID.String(), map[string]any{
		"formattedName": displayName(c),
		"platform":      platform,
	})
	return device, nil
}

func (s *PushService) ListDevices(ctx context.Context, actor Actor, candidateID uuid.UUID) ([]model.Device, error) {
	if _, err := s.candidate(ctx, actor, candidateID); err != nil {
		return nil, err
	}
	return s.devices.ListByCandidate(ctx, candidateID)
}

func (s *PushService) DeleteDevice(ctx context.Context, actor Actor, candidateID, deviceID uuid.UUID) error {
	if _, err := s.candidate(ctx, actor, candidateID); err != nil {
		return err
	}
	return s.devices.Delete(ctx, candidateID, deviceID)
}

// PushRequest is the content of a notification to one candidate
type PushRequest struct {
	Title   string `json:"title"`
	Message string `json:"message" binding:"required"`
	URL     string `json:"url"`
}

// Send delivers a notification to every device of a candidate and records it
func (s *PushService) Send(ctx context.Context, actor Actor, candidateID uuid.UUID, req PushRequest) (*model.PushNotification, error) {
	if s.sender == nil {
		return nil, fmt.Errorf("push notifications are not configured")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrPushInvalid)
	}

	c, err := s.candidate(ctx, actor, candidateID)
	if err != nil {
		return nil, err
	}

	devices, err := s.devices.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	players := make([]string, len(devices))
	for i, d := range devices {
		players[i] = d.OneSignalID
	}

	result, err := s.sender.Send(ctx, PushMessage{
		PlayerIDs: players,
		Title:     req.Title,
		Message:   req.Message,
		URL:       req.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("sending push: %w", err)
	}

	push := &model.PushNotification{
		DomainID:    actor.DomainID,
		CandidateID: candidateID,
		UserID:      actor.UserID,
		Title:       req.Title,
		Message:     req.Message,
		URL:         req.URL,
		Recipients:  result.Recipients,
		ProviderID:  result.ID,
	}

	// The push is already out; a bookkeeping failure must not report it as unsent
	saved, err := s.pushes.Create(ctx, push)
	if err != nil {
		log.Warn().Err(err).
			Str("candidateId", candidateID.String()).
			Str("providerId", result.ID).
			Msg("Failed to record push notification")
		saved = push
	}

	s.activities.Record(ctx, actor.DomainID, actor.UserID, ActivityPushSent, "push_notifications", saved.ID.String(), map[string]any{
		"formattedName": displayName(c),
		"recipients":    result.Recipients,
	})
	return saved, nil
}

func (s *PushService) ListSent(ctx context.Context, actor Actor, candidateID uuid.UUID) ([]model.PushNotification, error) {
	if _, err := s.candidate(ctx, actor, candidateID); err != nil {
		return nil, err
	}
	return s.pushes.ListByCandidate(ctx, actor.DomainID, candidateID)
}

// PurgeStaleDevices removes devices not seen within ttl
func (s *PushService) PurgeStaleDevices(ctx context.Context, ttl time.Duration) (int, error) {
	n, err := s.devices.PurgeStale(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	log.Info().Int("removed", n).Dur("ttl", ttl).Msg("Purged stale devices")
	return n, nil
}
