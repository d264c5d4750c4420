package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
)

var (
	ErrUnknownNetwork = errors.New("unknown social network")
	ErrEventNotFound  = errors.New("event not found")
	ErrNotConnected   = errors.New("no social network connected")
)

type eventStore interface {
	Upsert(ctx context.Context, e *model.Event) (*model.Event, repository.UpsertOutcome, error)
	ListByDomain(ctx context.Context, domainID uuid.UUID, limit, offset int) ([]model.Event, error)
	FindByID(ctx context.Context, domainID, id uuid.UUID) (*model.Event, error)
	Delete(ctx context.Context, domainID, id uuid.UUID) error
}

type credentialStore interface {
	Upsert(ctx context.Context, c *model.SocialNetworkCredential) (*model.SocialNetworkCredential, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.SocialNetworkCredential, error)
	ListAll(ctx context.Context) ([]model.SocialNetworkCredential, error)
	MarkSynced(ctx context.Context, id uuid.UUID) error
}

// EventService imports recruiting events from connected social networks
type EventService struct {
	events      eventStore
	credentials credentialStore
	networks    map[string]SocialNetwork
	activities  activityRecorder
}

func NewEventService(events eventStore, credentials credentialStore, activities activityRecorder, networks ...SocialNetwork) *EventService {
	byName := make(map[string]SocialNetwork, len(networks))
	for _, n := range networks {
		byName[n.Name()] = n
	}
	return &EventService{
		events:      events,
		credentials: credentials,
		networks:    byName,
		activities:  activities,
	}
}

// Connect verifies a token against the network and stores it for the recruiter
func (s *EventService) Connect(ctx context.Context, actor Actor, network, token string) (*model.SocialNetworkCredential, error) {
	network = strings.ToLower(strings.TrimSpace(network))
	token = strings.TrimSpace(token)
	n, ok := s.networks[network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: access token is required", ErrNetworkAuth)
	}

	memberID, err := n.MemberID(ctx, token)
	if err != nil {
		return nil, err
	}

	return s.credentials.Upsert(ctx, &model.SocialNetworkCredential{
		UserID:      actor.UserID,
		DomainID:    actor.DomainID,
		Network:     network,
		AccessToken: token,
		MemberID:    memberID,
	})
}

// Connections lists the networks the recruiter has connected
func (s *EventService) Connections(ctx context.Context, actor Actor) ([]model.SocialNetworkCredential, error) {
	return s.credentials.ListByUser(ctx, actor.UserID)
}

func (s *EventService) List(ctx context.Context, actor Actor, page, limit int) ([]model.Event, error) {
	return s.events.ListByDomain(ctx, actor.DomainID, limit, (page-1)*limit)
}

func (s *EventService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Event, error) {
	e, err := s.events.FindByID(ctx, actor.DomainID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEventNotFound
	}
	return e, nil
}

func (s *EventService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	e, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, actor.DomainID, id); err != nil {
		return err
	}
	s.activities.Record(ctx, actor.DomainID, actor.UserID, ActivityEventDelete, "events", id.String(), map[string]any{
		"title": e.Title,
	})
	return nil
}

// SyncResult counts what one sync did
type SyncResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

func (r *SyncResult) add(o SyncResult) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
	r.Failed += o.Failed
}

// SyncUser pulls events from every network the recruiter connected
func (s *EventService) SyncUser(ctx context.Context, actor Actor) (*SyncResult, error) {
	creds, err := s.credentials.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, ErrNotConnected
	}

	total := &SyncResult{}
	for i := range creds {
		res, err := s.syncCredential(ctx, &creds[i])
		if err != nil {
			return nil, err
		}
		total.add(*res)
	}
	return total, nil
}

// SyncAll syncs every stored credential. One failing credential does not stop
// the others; it is logged and counted.
func (s *EventService) SyncAll(ctx context.Context) (*SyncResult, error) {
	creds, err := s.credentials.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	total := &SyncResult{}
	for i := range creds {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		res, err := s.syncCredential(ctx, &creds[i])
		if err != nil {
			total.Failed++
			log.Warn().Err(err).
				Str("userId", creds[i].UserID.String()).
				Str("network", creds[i].Network).
				Msg("Event sync failed")
			continue
		}
		total.add(*res)
	}

	log.Info().
		Int("credentials", len(creds)).
		Int("created", total.Created).
		Int("updated", total.Updated).
		Int("failed", total.Failed).
		Msg("Event sync complete")
	return total, nil
}

func (s *EventService) syncCredential(ctx context.Context, cred *model.SocialNetworkCredential) (*SyncResult, error) {
	n, ok := s.networks[cred.Network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, cred.Network)
	}

	remote, err := n.FetchEvents(ctx, cred.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching %s events: %w", cred.Network, err)
	}

	res := &SyncResult{}
	for _, r := range remote {
		if r.NetworkEventID == "" {
			res.Failed++
			continue
		}
		event, outcome, err := s.events.Upsert(ctx, &model.Event{
			DomainID:       cred.DomainID,
			UserID:         cred.UserID,
			Network:        cred.Network,
			NetworkEventID: r.NetworkEventID,
			Title:          r.Title,
			Description:    r.Description,
			URL:            r.URL,
			VenueName:      r.VenueName,
			City:           r.City,
			StartAt:        r.StartAt,
			EndAt:          r.EndAt,
			Status:         r.Status,
			Capacity:       r.Capacity,
		})
		if err != nil {
			res.Failed++
			log.Warn().Err(err).Str("networkEventId", r.NetworkEventID).Msg("Failed to store event")
			continue
		}

		switch outcome {
		case repository.Inserted:
			res.Created++
			s.recordEvent(ctx, cred, ActivityEventCreate, event)
		case repository.Updated:
			res.Updated++
			s.recordEvent(ctx, cred, ActivityEventUpdate, event)
		default:
			res.Unchanged++
		}
	}

	if err := s.credentials.MarkSynced(ctx, cred.ID); err != nil {
		log.Warn().Err(err).Str("credentialId", cred.ID.String()).Msg("Failed to mark credential synced")
	}
	return res, nil
}

func (s *EventService) recordEvent(ctx context.Context, cred *model.SocialNetworkCredential, typ int, e *model.Event) {
	s.activities.Record(ctx, cred.DomainID, cred.UserID, typ, "events", e.ID.String(), map[string]any{
		"title":   e.Title,
		"network": e.Network,
	})
}
