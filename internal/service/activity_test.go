package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
)

type fakeActivityStore struct {
	created   []model.Activity
	listed    []model.Activity
	createErr error
}

func (f *fakeActivityStore) Create(_ context.Context, a *model.Activity) (*model.Activity, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = uuid.New()
	f.created = append(f.created, *a)
	return a, nil
}

func (f *fakeActivityStore) List(_ context.Context, _ uuid.UUID, _ repository.ActivityFilter) ([]model.Activity, error) {
	out := make([]model.Activity, len(f.listed))
	copy(out, f.listed)
	return out, nil
}

type fakeNamer map[uuid.UUID]string

func (f fakeNamer) NamesByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if n, ok := f[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func TestFormatActivity(t *testing.T) {
	tests := []struct {
		name   string
		typ    int
		params map[string]any
		count  int
		want   string
	}{
		{"singular", ActivityCandidateCreate, map[string]any{"formattedName": "Ada Lovelace"}, 1, "Jo added candidate Ada Lovelace"},
		{"plural", ActivityCandidateCreate, map[string]any{"formattedName": "Ada Lovelace"}, 3, "Jo added 3 candidates"},
		{"status", ActivityCandidateStatus, map[string]any{"formattedName": "Ada", "fromStatus": "new", "toStatus": "hired"}, 1, "Jo moved Ada from new to hired"},
		{"missing param renders empty", ActivityEventCreate, nil, 1, "Jo imported event "},
		{"numeric param", ActivityCandidateImport, map[string]any{"imported": 42}, 1, "Jo imported 42 candidates"},
		{"unknown type", 999, nil, 1, "Jo performed an activity"},
		{"unknown type plural", 999, nil, 2, "Jo performed 2 activities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatActivity(tt.typ, tt.params, "Jo", tt.count))
		})
	}
}

func TestActivityTypesOrdered(t *testing.T) {
	types := ActivityTypes()
	require.Len(t, types, len(activityTypes))
	for i := 1; i < len(types); i++ {
		assert.Less(t, types[i-1].ID, types[i].ID)
	}
}

func TestAggregate(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	now := time.Now()

	in := []model.Activity{
		{UserID: alice, Type: ActivityCandidateCreate, CreatedAt: now},
		{UserID: alice, Type: ActivityCandidateCreate, CreatedAt: now.Add(-10 * time.Minute)},
		{UserID: alice, Type: ActivityCandidateCreate, CreatedAt: now.Add(-50 * time.Minute)},
		// Outside the window of the run's newest entry
		{UserID: alice, Type: ActivityCandidateCreate, CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: bob, Type: ActivityCandidateCreate, CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: bob, Type: ActivityCandidateNote, CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: bob, Type: ActivityCandidateNote, CreatedAt: now.Add(-150 * time.Minute)},
	}

	out := Aggregate(in)
	require.Len(t, out, 4)
	assert.Equal(t, 3, out[0].Count)
	assert.Equal(t, now, out[0].CreatedAt, "run keeps its newest entry")
	assert.Equal(t, 1, out[1].Count)
	assert.Equal(t, 1, out[2].Count)
	assert.Equal(t, bob, out[3].UserID)
	assert.Equal(t, 2, out[3].Count)

	assert.Empty(t, Aggregate(nil))
}

func TestActivityServiceRecord(t *testing.T) {
	store := &fakeActivityStore{}
	svc := NewActivityService(store, fakeNamer{})

	svc.Record(context.Background(), uuid.New(), uuid.New(), ActivityCandidateDelete, "candidates", "abc", nil)
	require.Len(t, store.created, 1)
	assert.NotNil(t, store.created[0].Params)
	assert.Equal(t, "abc", store.created[0].SourceID)

	// A store failure never reaches the caller
	store.createErr = errors.New("db down")
	assert.NotPanics(t, func() {
		svc.Record(context.Background(), uuid.New(), uuid.New(), ActivityCandidateDelete, "candidates", "abc", nil)
	})
}

func TestActivityServiceRender(t *testing.T) {
	alice, ghost := uuid.New(), uuid.New()
	now := time.Now()
	store := &fakeActivityStore{listed: []model.Activity{
		{UserID: alice, Type: ActivityCandidateCreate, Params: map[string]any{"formattedName": "Ada"}, CreatedAt: now},
		{UserID: alice, Type: ActivityCandidateCreate, Params: map[string]any{"formattedName": "Bo"}, CreatedAt: now.Add(-time.Minute)},
		{UserID: ghost, Type: ActivityCandidateNote, Params: map[string]any{"formattedName": "Ada"}, CreatedAt: now.Add(-2 * time.Minute)},
	}}
	svc := NewActivityService(store, fakeNamer{alice: "Alice"})
	domainID := uuid.New()

	raw, err := svc.List(context.Background(), domainID, repository.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, "Alice added candidate Ada", raw[0].Message)
	assert.Equal(t, 1, raw[0].Count)
	assert.Equal(t, "Someone added a note to Ada", raw[2].Message)

	agg, err := svc.ListAggregated(context.Background(), domainID, repository.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, agg, 2)
	assert.Equal(t, "Alice added 2 candidates", agg[0].Message)
}
