package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yourusername/talentpool-api/internal/model"
)

// ErrNetworkAuth means the network rejected the stored access token
var ErrNetworkAuth = errors.New("social network rejected the access token")

// RemoteEvent is an event as a social network reports it
type RemoteEvent struct {
	NetworkEventID string
	Title          string
	Description    string
	URL            string
	VenueName      string
	City           string
	StartAt        *time.Time
	EndAt          *time.Time
	Status         string
	Capacity       int
}

// SocialNetwork is a source of recruiting events
type SocialNetwork interface {
	Name() string
	// MemberID returns the account id the token belongs to
	MemberID(ctx context.Context, token string) (string, error)
	FetchEvents(ctx context.Context, token string) ([]RemoteEvent, error)
}

// maxEventPages bounds a single fetch
const maxEventPages = 50

// EventbriteClient reads the events a user organises on Eventbrite
type EventbriteClient struct {
	baseURL string
	client  *retryablehttp.Client
}

func NewEventbriteClient(baseURL string) *EventbriteClient {
	return &EventbriteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newRetryClient(3, 20*time.Second),
	}
}

func (c *EventbriteClient) Name() string { return model.NetworkEventbrite }

type ebText struct {
	Text string `json:"text"`
}

type ebTime struct {
	UTC string `json:"utc"`
}

type ebEvent struct {
	ID          string `json:"id"`
	Name        ebText `json:"name"`
	Description ebText `json:"description"`
	URL         string `json:"url"`
	Start       ebTime `json:"start"`
	End         ebTime `json:"end"`
	Status      string `json:"status"`
	Capacity    int    `json:"capacity"`
	Venue       *struct {
		Name    string `json:"name"`
		Address struct {
			City string `json:"city"`
		} `json:"address"`
	} `json:"venue"`
}

type ebEventsPage struct {
	Pagination struct {
		HasMoreItems bool   `json:"has_more_items"`
		Continuation string `json:"continuation"`
	} `json:"pagination"`
	Events []ebEvent `json:"events"`
}

func (c *EventbriteClient) get(ctx context.Context, path string, query url.Values, token string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling Eventbrite: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading Eventbrite response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrNetworkAuth
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Eventbrite returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding Eventbrite response: %w", err)
	}
	return nil
}

func (c *EventbriteClient) MemberID(ctx context.Context, token string) (string, error) {
	var me struct {
		ID string `json:"id"`
	}
	if err := c.get(ctx, "/v3/users/me/", nil, token, &me); err != nil {
		return "", err
	}
	return me.ID, nil
}

// FetchEvents follows continuation tokens until every page is read
func (c *EventbriteClient) FetchEvents(ctx context.Context, token string) ([]RemoteEvent, error) {
	var events []RemoteEvent
	continuation := ""

	for page := 0; page < maxEventPages; page++ {
		query := url.Values{"expand": {"venue"}}
		if continuation != "" {
			query.Set("continuation", continuation)
		}

		var resp ebEventsPage
		if err := c.get(ctx, "/v3/users/me/events/", query, token, &resp); err != nil {
			return nil, err
		}

		for _, e := range resp.Events {
			events = append(events, e.toRemote())
		}

		if !resp.Pagination.HasMoreItems || resp.Pagination.Continuation == "" {
			break
		}
		continuation = resp.Pagination.Continuation
	}

	return events, nil
}

func (e ebEvent) toRemote() RemoteEvent {
	r := RemoteEvent{
		NetworkEventID: e.ID,
		Title:          strings.TrimSpace(e.Name.Text),
		Description:    strings.TrimSpace(e.Description.Text),
		URL:            e.URL,
		StartAt:        parseEventTime(e.Start.UTC),
		EndAt:          parseEventTime(e.End.UTC),
		Status:         e.Status,
		Capacity:       e.Capacity,
	}
	if e.Venue != nil {
		r.VenueName = e.Venue.Name
		r.City = e.Venue.Address.City
	}
	return r
}

func parseEventTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
