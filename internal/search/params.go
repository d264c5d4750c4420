package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit       = 15
	MaxLimit           = 100
	MaxPage            = 10000
	DefaultRadiusMiles = 50.0
	MaxRadiusMiles     = 500.0
	DefaultFacetSize   = 10
	maxKeywordLength   = 500
	maxValuesPerFilter = 50
	dateOnlyLayout     = "2006-01-02"
)

// Sort options accepted in the sortBy parameter
const (
	SortAddedDesc      = "added_time-desc"
	SortAddedAsc       = "added_time-asc"
	SortMatchDesc      = "match-desc"
	SortDistanceAsc    = "distance-asc"
	SortExperienceDesc = "experience-desc"
)

// Index field names
const (
	FieldDomainID        = "domain_id"
	FieldOwnerID         = "owner_id"
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldFormattedName   = "formatted_name"
	FieldEmail           = "email"
	FieldSkills          = "skills"
	FieldAreasOfInterest = "areas_of_interest"
	FieldTags            = "tags"
	FieldSourceID        = "source_id"
	FieldStatus          = "status"
	FieldCity            = "city"
	FieldState           = "state"
	FieldZipCode         = "zip_code"
	FieldLatLon          = "latlon"
	FieldAddedTime       = "added_time"
	FieldYearsExperience = "years_experience"
	FieldObjective       = "objective"
	FieldSummary         = "summary"
	FieldResumeText      = "resume_text"
)

// FacetFields are the fields that can be requested as facets, in response order
var FacetFields = []string{
	FieldSourceID,
	FieldStatus,
	FieldSkills,
	FieldAreasOfInterest,
	FieldTags,
	FieldOwnerID,
	FieldCity,
	FieldState,
}

// defaultFacets are returned when the caller does not ask for specific ones
var defaultFacets = []string{
	FieldSourceID,
	FieldStatus,
	FieldSkills,
	FieldAreasOfInterest,
	FieldOwnerID,
}

// GeoFilter restricts results to a radius around a point
type GeoFilter struct {
	Lat         float64
	Lon         float64
	RadiusMiles float64
}

// Params is a validated candidate search
type Params struct {
	Keywords        string
	SourceIDs       []int
	Statuses        []string
	Skills          []string
	AreasOfInterest []string
	Tags            []string
	OwnerIDs        []uuid.UUID
	City            string
	State           string
	ZipCode         string
	Geo             *GeoFilter
	AddedAfter      *time.Time
	AddedBefore     *time.Time
	MinExperience   *int
	MaxExperience   *int
	SortBy          string
	Page            int
	Limit           int
	Facets          []string
}

// Offset is the zero-based index of the first hit on the requested page
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParseParams reads and validates search parameters from a query string.
// Multi-valued filters accept repeated keys and comma-separated values.
func ParseParams(v url.Values) (Params, error) {
	p := Params{
		Keywords:        strings.TrimSpace(v.Get("q")),
		Statuses:        multi(v, "statuses"),
		Skills:          multi(v, "skills"),
		AreasOfInterest: multi(v, "areasOfInterest"),
		Tags:            multi(v, "tags"),
		City:            strings.TrimSpace(v.Get("city")),
		State:           strings.TrimSpace(v.Get("state")),
		ZipCode:         strings.TrimSpace(v.Get("zip")),
		SortBy:          strings.TrimSpace(v.Get("sortBy")),
		Page:            1,
		Limit:           DefaultLimit,
		Facets:          multi(v, "facets"),
	}

	for _, raw := range multi(v, "sourceIds") {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return Params{}, fmt.Errorf("%w: sourceIds must be positive integers, got %q", ErrInvalidParams, raw)
		}
		p.SourceIDs = append(p.SourceIDs, id)
	}

	for _, raw := range multi(v, "ownerIds") {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: ownerIds must be UUIDs, got %q", ErrInvalidParams, raw)
		}
		p.OwnerIDs = append(p.OwnerIDs, id)
	}

	var err error
	if p.Page, err = intParam(v, "page", 1); err != nil {
		return Params{}, err
	}
	if p.Limit, err = intParam(v, "limit", DefaultLimit); err != nil {
		return Params{}, err
	}
	// Validate treats zero as "unset"; an explicit zero from a client is an error
	if p.Page < 1 {
		return Params{}, fmt.Errorf("%w: page must be >= 1", ErrInvalidParams)
	}
	if p.Limit < 1 {
		return Params{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidParams, MaxLimit)
	}
	if p.AddedAfter, err = timeParam(v, "addedAfter"); err != nil {
		return Params{}, err
	}
	if p.AddedBefore, err = timeParam(v, "addedBefore"); err != nil {
		return Params{}, err
	}
	if p.MinExperience, err = optionalIntParam(v, "minExperience"); err != nil {
		return Params{}, err
	}
	if p.MaxExperience, err = optionalIntParam(v, "maxExperience"); err != nil {
		return Params{}, err
	}

	lat, lon, radius := v.Get("lat"), v.Get("lon"), v.Get("radius")
	if lat != "" || lon != "" || radius != "" {
		if lat == "" || lon == "" {
			return Params{}, fmt.Errorf("%w: lat and lon must be given together", ErrInvalidParams)
		}
		g := &GeoFilter{RadiusMiles: DefaultRadiusMiles}
		if g.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return Params{}, fmt.Errorf("%w: lat is not a number", ErrInvalidParams)
		}
		if g.Lon, err = strconv.ParseFloat(lon, 64); err != nil {
			return Params{}, fmt.Errorf("%w: lon is not a number", ErrInvalidParams)
		}
		if radius != "" {
			if g.RadiusMiles, err = strconv.ParseFloat(radius, 64); err != nil {
				return Params{}, fmt.Errorf("%w: radius is not a number", ErrInvalidParams)
			}
		}
		p.Geo = g
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks ranges and cross-field constraints and fills defaults
func (p *Params) Validate() error {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.SortBy == "" {
		p.SortBy = SortAddedDesc
	}

	if p.Page < 1 || p.Page > MaxPage {
		return fmt.Errorf("%w: page must be between 1 and %d", ErrInvalidParams, MaxPage)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidParams, MaxLimit)
	}
	if len(p.Keywords) > maxKeywordLength {
		return fmt.Errorf("%w: q is longer than %d characters", ErrInvalidParams, maxKeywordLength)
	}

	for name, n := range map[string]int{
		"sourceIds":       len(p.SourceIDs),
		"statuses":        len(p.Statuses),
		"skills":          len(p.Skills),
		"areasOfInterest": len(p.AreasOfInterest),
		"tags":            len(p.Tags),
		"ownerIds":        len(p.OwnerIDs),
	} {
		if n > maxValuesPerFilter {
			return fmt.Errorf("%w: at most %d values allowed for %s", ErrInvalidParams, maxValuesPerFilter, name)
		}
	}

	if g := p.Geo; g != nil {
		if g.Lat < -90 || g.Lat > 90 {
			return fmt.Errorf("%w: lat must be between -90 and 90", ErrInvalidParams)
		}
		if g.Lon < -180 || g.Lon > 180 {
			return fmt.Errorf("%w: lon must be between -180 and 180", ErrInvalidParams)
		}
		if g.RadiusMiles <= 0 || g.RadiusMiles > MaxRadiusMiles {
			return fmt.Errorf("%w: radius must be in (0, %g] miles", ErrInvalidParams, MaxRadiusMiles)
		}
	}

	if p.AddedAfter != nil && p.AddedBefore != nil && p.AddedAfter.After(*p.AddedBefore) {
		return fmt.Errorf("%w: addedAfter is later than addedBefore", ErrInvalidParams)
	}
	if p.MinExperience != nil && *p.MinExperience < 0 {
		return fmt.Errorf("%w: minExperience must not be negative", ErrInvalidParams)
	}
	if p.MinExperience != nil && p.MaxExperience != nil && *p.MinExperience > *p.MaxExperience {
		return fmt.Errorf("%w: minExperience is greater than maxExperience", ErrInvalidParams)
	}

	switch p.SortBy {
	case SortAddedDesc, SortAddedAsc, SortMatchDesc, SortExperienceDesc:
	case SortDistanceAsc:
		if p.Geo == nil {
			return fmt.Errorf("%w: sorting by distance requires lat and lon", ErrInvalidParams)
		}
	default:
		return fmt.Errorf("%w: unknown sortBy %q", ErrInvalidParams, p.SortBy)
	}

	if len(p.Facets) == 0 {
		p.Facets = append([]string(nil), defaultFacets...)
	}
	for _, f := range p.Facets {
		if !isFacetField(f) {
			return fmt.Errorf("%w: %q cannot be faceted", ErrInvalidParams, f)
		}
	}

	return nil
}

func isFacetField(name string) bool {
	for _, f := range FacetFields {
		if f == name {
			return true
		}
	}
	return false
}

// multi collects repeated and comma-separated values, dropping blanks and duplicates
func multi(v url.Values, key string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range v[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

func intParam(v url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, key)
	}
	return i, nil
}

func optionalIntParam(v url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, key)
	}
	return &i, nil
}

// timeParam accepts RFC3339 timestamps and plain dates (interpreted as UTC midnight)
func timeParam(v url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(dateOnlyLayout, raw); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", ErrInvalidParams, key)
}
