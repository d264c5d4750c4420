package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEventbrite(t *testing.T, h http.HandlerFunc) *EventbriteClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewEventbriteClient(srv.URL)
	c.client.RetryWaitMin = time.Millisecond
	c.client.RetryWaitMax = 5 * time.Millisecond
	return c
}

func TestEventbriteMemberID(t *testing.T) {
	c := newTestEventbrite(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/users/me/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"1234","name":"Recruiter"}`))
	})

	id, err := c.MemberID(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "1234", id)
}

func TestEventbriteRejectedToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c := newTestEventbrite(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"INVALID_AUTH"}`))
		})

		_, err := c.MemberID(context.Background(), "expired")
		assert.ErrorIs(t, err, ErrNetworkAuth)
	}
}

func TestEventbriteFetchEventsFollowsContinuation(t *testing.T) {
	var calls atomic.Int32
	c := newTestEventbrite(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v3/users/me/events/", r.URL.Path)
		assert.Equal(t, "venue", r.URL.Query().Get("expand"))

		switch r.URL.Query().Get("continuation") {
		case "":
			w.Write([]byte(`{
				"pagination": {"has_more_items": true, "continuation": "page2"},
				"events": [{
					"id": "e1",
					"name": {"text": " Go Meetup "},
					"description": {"text": "Talks"},
					"url": "https://eventbrite.com/e/e1",
					"start": {"utc": "2026-11-01T18:00:00Z"},
					"end": {"utc": "2026-11-01T20:00:00Z"},
					"status": "live",
					"capacity": 80,
					"venue": {"name": "Hall A", "address": {"city": "Berlin"}}
				}]
			}`))
		case "page2":
			w.Write([]byte(`{
				"pagination": {"has_more_items": false},
				"events": [{"id": "e2", "name": {"text": "Career Fair"}, "start": {"utc": "garbage"}}]
			}`))
		default:
			t.Errorf("unexpected continuation %q", r.URL.Query().Get("continuation"))
		}
	})

	events, err := c.FetchEvents(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int32(2), calls.Load())

	e1 := events[0]
	assert.Equal(t, "e1", e1.NetworkEventID)
	assert.Equal(t, "Go Meetup", e1.Title)
	assert.Equal(t, "Hall A", e1.VenueName)
	assert.Equal(t, "Berlin", e1.City)
	assert.Equal(t, 80, e1.Capacity)
	require.NotNil(t, e1.StartAt)
	assert.Equal(t, time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC), *e1.StartAt)

	e2 := events[1]
	assert.Nil(t, e2.StartAt, "unparseable times are dropped")
	assert.Empty(t, e2.VenueName)
}

func TestEventbriteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestEventbrite(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"id":"1"}`))
	})

	id, err := c.MemberID(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEventbriteGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestEventbrite(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.MemberID(context.Background(), "tok")
	assert.ErrorContains(t, err, "500")
	assert.Equal(t, int32(4), calls.Load())
}
