package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
	"github.com/yourusername/talentpool-api/internal/repository"
)

// Activity types. The numbers are persisted and must never be reused.
const (
	ActivityCandidateCreate  = 1
	ActivityCandidateUpdate  = 2
	ActivityCandidateDelete  = 3
	ActivityCandidateStatus  = 4
	ActivityResumeUpload     = 5
	ActivityCandidateNote    = 6
	ActivityCandidateImport  = 7
	ActivityEventCreate      = 8
	ActivityEventUpdate      = 9
	ActivityEventDelete      = 10
	ActivityPushSent         = 11
	ActivityDeviceRegistered = 12
)

// aggregateWindow is how far apart two activities of one run may be
const aggregateWindow = time.Hour

// ActivityType describes how an activity type renders
type ActivityType struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Singular string `json:"singular"`
	Plural   string `json:"plural"`
}

var activityTypes = map[int]ActivityType{
	ActivityCandidateCreate:  {ActivityCandidateCreate, "candidate_create", "{username} added candidate {formattedName}", "{username} added {count} candidates"},
	ActivityCandidateUpdate:  {ActivityCandidateUpdate, "candidate_update", "{username} updated candidate {formattedName}", "{username} updated {count} candidates"},
	ActivityCandidateDelete:  {ActivityCandidateDelete, "candidate_delete", "{username} deleted candidate {formattedName}", "{username} deleted {count} candidates"},
	ActivityCandidateStatus:  {ActivityCandidateStatus, "candidate_status", "{username} moved {formattedName} from {fromStatus} to {toStatus}", "{username} changed the status of {count} candidates"},
	ActivityResumeUpload:     {ActivityResumeUpload, "resume_upload", "{username} uploaded a resume for {formattedName}", "{username} uploaded {count} resumes"},
	ActivityCandidateNote:    {ActivityCandidateNote, "candidate_note", "{username} added a note to {formattedName}", "{username} added {count} notes"},
	ActivityCandidateImport:  {ActivityCandidateImport, "candidate_import", "{username} imported {imported} candidates", "{username} ran {count} candidate imports"},
	ActivityEventCreate:      {ActivityEventCreate, "event_create", "{username} imported event {title}", "{username} imported {count} events"},
	ActivityEventUpdate:      {ActivityEventUpdate, "event_update", "{username} updated event {title}", "{username} updated {count} events"},
	ActivityEventDelete:      {ActivityEventDelete, "event_delete", "{username} deleted event {title}", "{username} deleted {count} events"},
	ActivityPushSent:         {ActivityPushSent, "push_sent", "{username} sent a push notification to {formattedName}", "{username} sent {count} push notifications"},
	ActivityDeviceRegistered: {ActivityDeviceRegistered, "device_registered", "{username} registered a device for {formattedName}", "{username} registered {count} devices"},
}

const (
	genericSingular = "{username} performed an activity"
	genericPlural   = "{username} performed {count} activities"
)

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// ActivityTypes lists every known type ordered by id
func ActivityTypes() []ActivityType {
	out := make([]ActivityType, 0, len(activityTypes))
	for _, t := range activityTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FormatActivity renders an activity message. Unknown placeholders render empty
// and unknown types fall back to a generic message.
func FormatActivity(typ int, params map[string]any, username string, count int) string {
	singular, plural := genericSingular, genericPlural
	if t, ok := activityTypes[typ]; ok {
		singular, plural = t.Singular, t.Plural
	}

	tmpl := singular
	if count > 1 {
		tmpl = plural
	}

	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		switch key {
		case "username":
			return username
		case "count":
			return fmt.Sprint(count)
		}
		if v, ok := params[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	})
}

// Aggregate collapses runs of consecutive activities by the same user with the
// same type, each within aggregateWindow of the run's newest entry. Input must
// be newest first; output keeps that order and carries the run length in Count.
func Aggregate(activities []model.Activity) []model.Activity {
	var out []model.Activity
	for _, a := range activities {
		if n := len(out); n > 0 {
			head := &out[n-1]
			if head.UserID == a.UserID && head.Type == a.Type && head.CreatedAt.Sub(a.CreatedAt) <= aggregateWindow {
				head.Count++
				continue
			}
		}
		a.Count = 1
		out = append(out, a)
	}
	return out
}

type activityStore interface {
	Create(ctx context.Context, a *model.Activity) (*model.Activity, error)
	List(ctx context.Context, domainID uuid.UUID, filter repository.ActivityFilter) ([]model.Activity, error)
}

type userNamer interface {
	NamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// ActivityService records and renders the domain activity feed
type ActivityService struct {
	store activityStore
	users userNamer
}

func NewActivityService(store activityStore, users userNamer) *ActivityService {
	return &ActivityService{store: store, users: users}
}

// Record stores an activity. Failures are logged and swallowed so the
// triggering operation still succeeds.
func (s *ActivityService) Record(ctx context.Context, domainID, userID uuid.UUID, typ int, sourceTable, sourceID string, params map[string]any) {
	if params == nil {
		params = map[string]any{}
	}
	_, err := s.store.Create(ctx, &model.Activity{
		DomainID:    domainID,
		UserID:      userID,
		Type:        typ,
		SourceTable: sourceTable,
		SourceID:    sourceID,
		Params:      params,
	})
	if err != nil {
		log.Warn().Err(err).
			Int("type", typ).
			Str("sourceId", sourceID).
			Msg("Failed to record activity")
	}
}

// List returns one page of raw activities with rendered messages
func (s *ActivityService) List(ctx context.Context, domainID uuid.UUID, filter repository.ActivityFilter) ([]model.Activity, error) {
	activities, err := s.store.List(ctx, domainID, filter)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, activities)
}

// ListAggregated aggregates one page of raw activities
func (s *ActivityService) ListAggregated(ctx context.Context, domainID uuid.UUID, filter repository.ActivityFilter) ([]model.Activity, error) {
	activities, err := s.store.List(ctx, domainID, filter)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, Aggregate(activities))
}

func (s *ActivityService) render(ctx context.Context, activities []model.Activity) ([]model.Activity, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, a := range activities {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}

	names, err := s.users.NamesByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving activity users: %w", err)
	}

	for i := range activities {
		a := &activities[i]
		if a.Count == 0 {
			a.Count = 1
		}
		a.UserName = names[a.UserID]
		if a.UserName == "" {
			a.UserName = "Someone"
		}
		a.Message = FormatActivity(a.Type, a.Params, a.UserName, a.Count)
	}
	return activities, nil
}
