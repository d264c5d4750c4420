package search

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDomain = uuid.MustParse("6f1c2c3e-4d55-4b8a-9f0e-1a2b3c4d5e6f")

func mustParams(t *testing.T, raw string) Params {
	t.Helper()
	v, err := url.ParseQuery(raw)
	require.NoError(t, err)
	p, err := ParseParams(v)
	require.NoError(t, err)
	return p
}

func TestCompileKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty matches all", "", "matchall"},
		{"single term", "golang", "'golang'"},
		{"two terms", "golang kubernetes", "(and 'golang' 'kubernetes')"},
		{"phrase", `"machine learning" python`, "(and (phrase 'machine learning') 'python')"},
		{"quoted single word is a term", `"go"`, "'go'"},
		{"negation", "java -spring", "(and 'java' (not 'spring'))"},
		{"only negation", "-recruiter", "(and matchall (not 'recruiter'))"},
		{"quote escaping", `o'neil`, `'o\'neil'`},
		{"backslash escaping", `c\c++`, `'c\\c++'`},
		{"collapses whitespace in phrase", `"senior    engineer"`, "(phrase 'senior engineer')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compileKeywords(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileKeywordsUnbalancedQuote(t *testing.T) {
	_, err := compileKeywords(`"data engineer`)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCompileDomainClauseAlwaysPresent(t *testing.T) {
	plan, err := Compile(testDomain, mustParams(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "domain_id:'"+testDomain.String()+"'", plan.Primary.FilterQuery)
	assert.Equal(t, "matchall", plan.Primary.Query)
	assert.Equal(t, "structured", plan.Primary.QueryParser)
	assert.Equal(t, "added_time desc", plan.Primary.Sort)
	assert.Equal(t, 0, plan.Primary.Start)
	assert.Equal(t, DefaultLimit, plan.Primary.Size)
	assert.False(t, plan.HasKeywords)
	assert.Nil(t, plan.ScoreProbe)
	assert.Empty(t, plan.FacetRequests)
}

func TestCompileRejectsNilDomain(t *testing.T) {
	_, err := Compile(uuid.Nil, Params{})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCompileFilters(t *testing.T) {
	p := mustParams(t, "skills=go,python&statuses=new&sourceIds=3&minExperience=2&maxExperience=5&addedAfter=2024-01-01&state=CA")
	plan, err := Compile(testDomain, p)
	require.NoError(t, err)

	fq := plan.Primary.FilterQuery
	assert.True(t, strings.HasPrefix(fq, "(and domain_id:'"))
	assert.Contains(t, fq, "(or skills:'go' skills:'python')")
	assert.Contains(t, fq, "status:'new'")
	assert.Contains(t, fq, "source_id:3")
	assert.Contains(t, fq, "(range field=years_experience [2,5])")
	assert.Contains(t, fq, "(range field=added_time ['2024-01-01T00:00:00Z',})")
	assert.Contains(t, fq, "state:'CA'")
}

func TestCompileOpenEndedRanges(t *testing.T) {
	before := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	maxExp := 10
	plan, err := Compile(testDomain, Params{AddedBefore: &before, MaxExperience: &maxExp})
	require.NoError(t, err)

	assert.Contains(t, plan.Primary.FilterQuery, "(range field=added_time {,'2024-06-30T12:00:00Z'])")
	assert.Contains(t, plan.Primary.FilterQuery, "(range field=years_experience {,10])")
}

func TestCompileMultiSelectFacets(t *testing.T) {
	p := mustParams(t, "skills=go,python&statuses=new&facets=skills,status,source_id")
	plan, err := Compile(testDomain, p)
	require.NoError(t, err)

	// Unfiltered facet stays on the primary request
	assert.Contains(t, plan.Primary.Facets, FieldSourceID)
	assert.NotContains(t, plan.Primary.Facets, FieldSkills)
	assert.NotContains(t, plan.Primary.Facets, FieldStatus)

	require.Len(t, plan.FacetRequests, 2)

	skillsReq := plan.FacetRequests[FieldSkills]
	require.NotNil(t, skillsReq)
	assert.Equal(t, 0, skillsReq.Size)
	assert.Equal(t, "_no_fields", skillsReq.Return)
	assert.NotContains(t, skillsReq.FilterQuery, "skills:")
	assert.Contains(t, skillsReq.FilterQuery, "status:'new'")
	assert.Contains(t, skillsReq.Facets, FieldSkills)

	statusReq := plan.FacetRequests[FieldStatus]
	require.NotNil(t, statusReq)
	assert.NotContains(t, statusReq.FilterQuery, "status:")
	assert.Contains(t, statusReq.FilterQuery, "(or skills:'go' skills:'python')")
}

func TestCompileGeo(t *testing.T) {
	p := mustParams(t, "lat=37.7749&lon=-122.4194&radius=10&sortBy=distance-asc")
	plan, err := Compile(testDomain, p)
	require.NoError(t, err)

	assert.True(t, plan.HasGeo)
	assert.Contains(t, plan.Primary.FilterQuery, "(range field=latlon ['")
	assert.Equal(t, "haversin(37.774900,-122.419400,latlon.latitude,latlon.longitude)", plan.Primary.Exprs["distance"])
	assert.Equal(t, "distance asc", plan.Primary.Sort)
	assert.Contains(t, plan.Primary.Return, "distance")
}

func TestCompileScoreProbe(t *testing.T) {
	t.Run("first page sorted by match reads score from primary", func(t *testing.T) {
		plan, err := Compile(testDomain, mustParams(t, "q=golang&sortBy=match-desc"))
		require.NoError(t, err)
		assert.True(t, plan.ScoreFromPrimary)
		assert.Nil(t, plan.ScoreProbe)
		assert.Equal(t, "_score desc", plan.Primary.Sort)
		assert.Contains(t, plan.Primary.Return, "_score")
	})

	t.Run("later page needs a probe", func(t *testing.T) {
		plan, err := Compile(testDomain, mustParams(t, "q=golang&sortBy=match-desc&page=2"))
		require.NoError(t, err)
		assert.False(t, plan.ScoreFromPrimary)
		require.NotNil(t, plan.ScoreProbe)
		assert.Equal(t, 1, plan.ScoreProbe.Size)
		assert.Equal(t, "_score desc", plan.ScoreProbe.Sort)
		assert.Equal(t, plan.Primary.FilterQuery, plan.ScoreProbe.FilterQuery)
	})

	t.Run("date sort needs a probe", func(t *testing.T) {
		plan, err := Compile(testDomain, mustParams(t, "q=golang"))
		require.NoError(t, err)
		assert.NotNil(t, plan.ScoreProbe)
	})

	t.Run("match sort without keywords falls back to date", func(t *testing.T) {
		plan, err := Compile(testDomain, mustParams(t, "sortBy=match-desc"))
		require.NoError(t, err)
		assert.Equal(t, "added_time desc", plan.Primary.Sort)
		assert.Nil(t, plan.ScoreProbe)
	})
}

func TestCompileDeepPagination(t *testing.T) {
	t.Run("inside the window uses start", func(t *testing.T) {
		plan, err := Compile(testDomain, mustParams(t, "page=100&limit=100"))
		require.NoError(t, err)
		assert.Equal(t, 9900, plan.Primary.Start)
		assert.Zero(t, plan.Skip)
		assert.Empty(t, plan.Primary.Cursor)
	})

	t.Run("beyond the window walks cursors", func(t *testing.T) {
		plan, err := Compile(testDomain, mustParams(t, "page=101&limit=100"))
		require.NoError(t, err)
		assert.Equal(t, 10000, plan.Skip)
		assert.Equal(t, "initial", plan.Primary.Cursor)
		assert.Zero(t, plan.Primary.Start)
	})

	t.Run("last allowed page walks cursors", func(t *testing.T) {
		plan, err := Compile(testDomain, mustParams(t, "page=10000&limit=100"))
		require.NoError(t, err)
		assert.Equal(t, 999900, plan.Skip)
		assert.Equal(t, "initial", plan.Primary.Cursor)
		assert.Zero(t, plan.Primary.Start)
	})

	t.Run("page past the cap is rejected", func(t *testing.T) {
		p := Params{Page: 92233720368547759, Limit: 100}
		_, err := Compile(testDomain, p)
		assert.ErrorIs(t, err, ErrInvalidParams)
	})
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, quote("plain"))
	assert.Equal(t, `'it\'s'`, quote("it's"))
	assert.Equal(t, `'a\\b'`, quote(`a\b`))
}
