package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// OneSignalClient sends push notifications through the OneSignal REST API
type OneSignalClient struct {
	appID   string
	restKey string
	baseURL string
	client  *retryablehttp.Client
}

func NewOneSignalClient(appID, restKey, baseURL string) *OneSignalClient {
	return &OneSignalClient{
		appID:   appID,
		restKey: restKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newRetryClient(3, 15*time.Second),
	}
}

// PushMessage is one notification to a set of OneSignal players
type PushMessage struct {
	PlayerIDs []string
	Title     string
	Message   string
	URL       string
}

// PushResult is OneSignal's answer for a created notification
type PushResult struct {
	ID         string
	Recipients int
}

type oneSignalRequest struct {
	AppID            string            `json:"app_id"`
	IncludePlayerIDs []string          `json:"include_player_ids"`
	Headings         map[string]string `json:"headings,omitempty"`
	Contents         map[string]string `json:"contents"`
	URL              string            `json:"url,omitempty"`
}

type oneSignalResponse struct {
	ID         string          `json:"id"`
	Recipients int             `json:"recipients"`
	Errors     json.RawMessage `json:"errors"`
}

// Send creates a notification
func (c *OneSignalClient) Send(ctx context.Context, msg PushMessage) (*PushResult, error) {
	if c.appID == "" || c.restKey == "" {
		return nil, fmt.Errorf("OneSignal credentials not configured")
	}

	payload := oneSignalRequest{
		AppID:            c.appID,
		IncludePlayerIDs: msg.PlayerIDs,
		Contents:         map[string]string{"en": msg.Message},
		URL:              msg.URL,
	}
	if msg.Title != "" {
		payload.Headings = map[string]string{"en": msg.Title}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Basic "+c.restKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling OneSignal: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading OneSignal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OneSignal returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out oneSignalResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding OneSignal response: %w", err)
	}

	// Unsubscribed players come back as errors alongside a 200
	if len(out.Errors) > 0 && string(out.Errors) != "null" {
		log.Warn().RawJSON("errors", out.Errors).Str("notificationId", out.ID).Msg("OneSignal reported delivery errors")
	}
	if out.ID == "" {
		return nil, fmt.Errorf("OneSignal accepted no recipients")
	}

	return &PushResult{ID: out.ID, Recipients: out.Recipients}, nil
}
