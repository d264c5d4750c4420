package search

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// CandidateHit is one candidate in a search result page
type CandidateHit struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         *uuid.UUID `json:"ownerId,omitempty"`
	FormattedName   string     `json:"formattedName"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Emails          []string   `json:"emails"`
	Status          string     `json:"status"`
	SourceID        *int       `json:"sourceId,omitempty"`
	Skills          []string   `json:"skills"`
	City            string     `json:"city"`
	State           string     `json:"state"`
	ZipCode         string     `json:"zipCode"`
	AddedAt         *time.Time `json:"addedAt,omitempty"`
	YearsExperience int        `json:"yearsExperience"`
	PercentageMatch int        `json:"percentageMatch"`
	DistanceMiles   *float64   `json:"distanceMiles,omitempty"`
}

// Result is a page of candidates plus facet counts
type Result struct {
	Candidates []CandidateHit      `json:"candidates"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	MaxPages   int                 `json:"maxPages"`
	Facets     map[string][]Bucket `json:"facets"`
}

// Searcher runs compiled plans against an Engine
type Searcher struct {
	engine Engine
}

func NewSearcher(engine Engine) *Searcher {
	return &Searcher{engine: engine}
}

// SearchCandidates compiles params for a domain, runs every request of the plan
// concurrently and assembles a single result page
func (s *Searcher) SearchCandidates(ctx context.Context, domainID uuid.UUID, p Params) (*Result, error) {
	plan, err := Compile(domainID, p)
	if err != nil {
		return nil, err
	}
	// Compile validated a copy; apply the same defaults to ours
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	var (
		mu        sync.Mutex
		primary   *Response
		topScore  float64
		facetResp = make(map[string][]Bucket)
	)

	// The first failure cancels the remaining requests
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := s.fetchPage(gctx, plan)
		if err != nil {
			return fmt.Errorf("primary search: %w", err)
		}
		mu.Lock()
		primary = resp
		mu.Unlock()
		return nil
	})

	for field, req := range plan.FacetRequests {
		g.Go(func() error {
			resp, err := s.engine.Search(gctx, req)
			if err != nil {
				return fmt.Errorf("facet search for %s: %w", field, err)
			}
			mu.Lock()
			facetResp[field] = resp.Facets[field]
			mu.Unlock()
			return nil
		})
	}

	if plan.ScoreProbe != nil {
		g.Go(func() error {
			resp, err := s.engine.Search(gctx, plan.ScoreProbe)
			if err != nil {
				return fmt.Errorf("score probe: %w", err)
			}
			if len(resp.Hits) > 0 {
				mu.Lock()
				topScore = hitScore(resp.Hits[0])
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if plan.ScoreFromPrimary && len(primary.Hits) > 0 {
		topScore = hitScore(primary.Hits[0])
	}

	result := &Result{
		Candidates: make([]CandidateHit, 0, len(primary.Hits)),
		Total:      primary.Found,
		Page:       p.Page,
		Limit:      p.Limit,
		MaxPages:   int(math.Ceil(float64(primary.Found) / float64(p.Limit))),
		Facets:     MergeFacets(primary.Facets, facetResp, p.Facets),
	}

	for _, hit := range primary.Hits {
		ch, err := toCandidateHit(hit)
		if err != nil {
			log.Warn().Err(err).Str("hitId", hit.ID).Msg("Skipping malformed search hit")
			continue
		}
		if plan.HasKeywords {
			ch.PercentageMatch = PercentageMatch(hitScore(hit), topScore)
		} else {
			ch.PercentageMatch = 100
		}
		if plan.HasGeo {
			if km, ok := hit.Exprs[distanceExprName]; ok {
				if f, err := strconv.ParseFloat(km, 64); err == nil {
					miles := math.Round(f/kmPerMile*10) / 10
					ch.DistanceMiles = &miles
				}
			}
		}
		result.Candidates = append(result.Candidates, ch)
	}

	log.Debug().
		Str("domainId", domainID.String()).
		Int("found", result.Total).
		Int("page", p.Page).
		Int("facetQueries", len(plan.FacetRequests)).
		Int("cursorSkip", plan.Skip).
		Dur("latency", time.Since(start)).
		Msg("Candidate search complete")

	return result, nil
}

// fetchPage returns the primary page, walking cursors first when it lies past the result window
func (s *Searcher) fetchPage(ctx context.Context, plan *Plan) (*Response, error) {
	if plan.Skip == 0 {
		return s.engine.Search(ctx, plan.Primary)
	}

	cursor := "initial"
	remaining := plan.Skip
	found := -1

	for remaining > 0 {
		req := plan.Primary.clone()
		req.Cursor = cursor
		req.Size = min(remaining, MaxResultWindow)
		req.Return = noFields
		req.Facets = nil

		resp, err := s.engine.Search(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("walking cursor: %w", err)
		}
		found = resp.Found

		// The requested page starts past the last hit
		if plan.Skip >= found || len(resp.Hits) == 0 || resp.Cursor == "" {
			return &Response{Found: found}, nil
		}

		remaining -= len(resp.Hits)
		cursor = resp.Cursor
	}

	req := plan.Primary.clone()
	req.Cursor = cursor
	resp, err := s.engine.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching page after cursor walk: %w", err)
	}
	return resp, nil
}

// PercentageMatch expresses score as a whole percentage of the best score, clamped to [0, 100]
func PercentageMatch(score, best float64) int {
	if best <= 0 {
		return 100
	}
	pct := int(math.Round(score / best * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// MergeFacets combines primary facets with the per-field multi-select facets.
// Per-field results replace the primary ones. Only requested fields are kept and
// each requested field is present even when it has no buckets.
func MergeFacets(primary, perField map[string][]Bucket, requested []string) map[string][]Bucket {
	out := make(map[string][]Bucket, len(requested))
	for _, f := range requested {
		if b, ok := perField[f]; ok {
			out[f] = b
		} else if b, ok := primary[f]; ok {
			out[f] = b
		}
		if out[f] == nil {
			out[f] = []Bucket{}
		}
	}
	return out
}

func hitScore(h Hit) float64 {
	raw, ok := h.Exprs[scoreField]
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}

func toCandidateHit(h Hit) (CandidateHit, error) {
	id, err := uuid.Parse(h.ID)
	if err != nil {
		return CandidateHit{}, fmt.Errorf("parsing hit id: %w", err)
	}

	ch := CandidateHit{
		ID:            id,
		FormattedName: first(h.Fields, FieldFormattedName),
		FirstName:     first(h.Fields, FieldFirstName),
		LastName:      first(h.Fields, FieldLastName),
		Emails:        h.Fields[FieldEmail],
		Status:        first(h.Fields, FieldStatus),
		Skills:        h.Fields[FieldSkills],
		City:          first(h.Fields, FieldCity),
		State:         first(h.Fields, FieldState),
		ZipCode:       first(h.Fields, FieldZipCode),
	}
	if ch.Emails == nil {
		ch.Emails = []string{}
	}
	if ch.Skills == nil {
		ch.Skills = []string{}
	}

	if raw := first(h.Fields, FieldOwnerID); raw != "" {
		if owner, err := uuid.Parse(raw); err == nil {
			ch.OwnerID = &owner
		}
	}
	if raw := first(h.Fields, FieldSourceID); raw != "" {
		if src, err := strconv.Atoi(raw); err == nil {
			ch.SourceID = &src
		}
	}
	if raw := first(h.Fields, FieldAddedTime); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			ch.AddedAt = &t
		}
	}
	if raw := first(h.Fields, FieldYearsExperience); raw != "" {
		ch.YearsExperience, _ = strconv.Atoi(raw)
	}

	return ch, nil
}

func first(fields map[string][]string, key string) string {
	if v := fields[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
