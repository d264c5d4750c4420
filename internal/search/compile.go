package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	queryParserStructured = "structured"
	matchAll              = "matchall"
	noFields              = "_no_fields"
	scoreField            = "_score"
	distanceExprName      = "distance"
)

// returnFields are the stored fields fetched for each hit
var returnFields = []string{
	FieldDomainID, FieldOwnerID, FieldFormattedName, FieldFirstName, FieldLastName,
	FieldEmail, FieldStatus, FieldSourceID, FieldSkills, FieldCity, FieldState,
	FieldZipCode, FieldAddedTime, FieldYearsExperience,
}

// Plan is the set of engine requests needed to answer one search
type Plan struct {
	// Primary returns the page of hits and the facets whose field is not filtered
	Primary *Request

	// Skip > 0 means the page lies beyond MaxResultWindow and Primary must be
	// reached by walking cursors over Skip hits first
	Skip int

	// FacetRequests hold one size-0 request per filtered facet field; each one
	// omits that field's own filter so every option of a multi-select stays visible
	FacetRequests map[string]*Request

	// ScoreProbe fetches the global best score when the primary page cannot provide it
	ScoreProbe *Request

	// ScoreFromPrimary is set when the first primary hit carries the best score
	ScoreFromPrimary bool

	HasKeywords bool
	HasGeo      bool
}

// filterClause is one AND-ed term of the filter query, tagged with the field it restricts
type filterClause struct {
	field string
	expr  string
}

// Compile translates validated params into an execution plan for one domain
func Compile(domainID uuid.UUID, p Params) (*Plan, error) {
	if domainID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing domain", ErrInvalidParams)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query, err := compileKeywords(p.Keywords)
	if err != nil {
		return nil, err
	}
	hasKeywords := query != matchAll

	clauses := filterClauses(domainID, p)

	exprs := map[string]string{}
	ret := append([]string(nil), returnFields...)
	if p.Geo != nil {
		exprs[distanceExprName] = distanceExpr(p.Geo.Lat, p.Geo.Lon)
		ret = append(ret, distanceExprName)
	}
	if hasKeywords {
		ret = append(ret, scoreField)
	}

	sort := sortExpr(p.SortBy, hasKeywords)

	filtered := make(map[string]bool)
	for _, c := range clauses {
		filtered[c.field] = true
	}

	primaryFacets := map[string]FacetOptions{}
	facetRequests := map[string]*Request{}
	for _, f := range p.Facets {
		opts := FacetOptions{Sort: "count", Size: DefaultFacetSize}
		if !filtered[f] {
			primaryFacets[f] = opts
			continue
		}
		facetRequests[f] = &Request{
			Query:       query,
			QueryParser: queryParserStructured,
			FilterQuery: joinAnd(clausesExcept(clauses, f)),
			Facets:      map[string]FacetOptions{f: opts},
			Return:      noFields,
			Size:        0,
		}
	}

	primary := &Request{
		Query:       query,
		QueryParser: queryParserStructured,
		FilterQuery: joinAnd(clausesExcept(clauses, "")),
		Facets:      primaryFacets,
		Sort:        sort,
		Return:      strings.Join(ret, ","),
		Size:        p.Limit,
	}
	if len(exprs) > 0 {
		primary.Exprs = exprs
	}

	plan := &Plan{
		Primary:       primary,
		FacetRequests: facetRequests,
		HasKeywords:   hasKeywords,
		HasGeo:        p.Geo != nil,
	}

	offset := p.Offset()
	if offset <= MaxResultWindow-p.Limit {
		primary.Start = offset
	} else {
		plan.Skip = offset
		primary.Cursor = "initial"
	}

	if hasKeywords {
		if sort == scoreField+" desc" && offset == 0 {
			plan.ScoreFromPrimary = true
		} else {
			plan.ScoreProbe = &Request{
				Query:       query,
				QueryParser: queryParserStructured,
				FilterQuery: primary.FilterQuery,
				Sort:        scoreField + " desc",
				Return:      scoreField,
				Size:        1,
			}
		}
	}

	return plan, nil
}

// filterClauses builds the AND-ed filter terms; the domain clause is always first
func filterClauses(domainID uuid.UUID, p Params) []filterClause {
	clauses := []filterClause{
		{field: FieldDomainID, expr: literalTerm(FieldDomainID, domainID.String())},
	}

	add := func(field, expr string) {
		if expr != "" {
			clauses = append(clauses, filterClause{field: field, expr: expr})
		}
	}

	sourceIDs := make([]string, len(p.SourceIDs))
	for i, id := range p.SourceIDs {
		sourceIDs[i] = strconv.Itoa(id)
	}
	add(FieldSourceID, anyOf(FieldSourceID, sourceIDs, false))
	add(FieldStatus, anyOf(FieldStatus, p.Statuses, true))
	add(FieldSkills, anyOf(FieldSkills, p.Skills, true))
	add(FieldAreasOfInterest, anyOf(FieldAreasOfInterest, p.AreasOfInterest, true))
	add(FieldTags, anyOf(FieldTags, p.Tags, true))

	owners := make([]string, len(p.OwnerIDs))
	for i, id := range p.OwnerIDs {
		owners[i] = id.String()
	}
	add(FieldOwnerID, anyOf(FieldOwnerID, owners, true))

	if p.City != "" {
		add(FieldCity, literalTerm(FieldCity, p.City))
	}
	if p.State != "" {
		add(FieldState, literalTerm(FieldState, p.State))
	}
	if p.ZipCode != "" {
		add(FieldZipCode, literalTerm(FieldZipCode, p.ZipCode))
	}

	if p.Geo != nil {
		add(FieldLatLon, BoundingBoxFor(p.Geo.Lat, p.Geo.Lon, p.Geo.RadiusMiles).clause())
	}

	if p.AddedAfter != nil || p.AddedBefore != nil {
		var lo, hi string
		if p.AddedAfter != nil {
			lo = quote(p.AddedAfter.UTC().Format(time.RFC3339))
		}
		if p.AddedBefore != nil {
			hi = quote(p.AddedBefore.UTC().Format(time.RFC3339))
		}
		add(FieldAddedTime, rangeTerm(FieldAddedTime, lo, hi))
	}

	if p.MinExperience != nil || p.MaxExperience != nil {
		var lo, hi string
		if p.MinExperience != nil {
			lo = strconv.Itoa(*p.MinExperience)
		}
		if p.MaxExperience != nil {
			hi = strconv.Itoa(*p.MaxExperience)
		}
		add(FieldYearsExperience, rangeTerm(FieldYearsExperience, lo, hi))
	}

	return clauses
}

// clausesExcept returns the expressions of every clause not restricting field
func clausesExcept(clauses []filterClause, field string) []string {
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if field != "" && c.field == field {
			continue
		}
		out = append(out, c.expr)
	}
	return out
}

func joinAnd(exprs []string) string {
	switch len(exprs) {
	case 0:
		return ""
	case 1:
		return exprs[0]
	}
	return "(and " + strings.Join(exprs, " ") + ")"
}

// anyOf ORs field:value terms; a single value needs no wrapper
func anyOf(field string, values []string, quoted bool) string {
	if len(values) == 0 {
		return ""
	}
	terms := make([]string, len(values))
	for i, v := range values {
		if quoted {
			terms[i] = literalTerm(field, v)
		} else {
			terms[i] = field + ":" + v
		}
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return "(or " + strings.Join(terms, " ") + ")"
}

func literalTerm(field, value string) string {
	return field + ":" + quote(value)
}

// rangeTerm renders an inclusive range; an empty bound is open
func rangeTerm(field, lo, hi string) string {
	left, right := "{", "}"
	if lo != "" {
		left = "[" + lo
	}
	if hi != "" {
		right = hi + "]"
	}
	return fmt.Sprintf("(range field=%s %s,%s)", field, left, right)
}

// quote wraps a value in single quotes, escaping backslashes and quotes
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func sortExpr(sortBy string, hasKeywords bool) string {
	switch sortBy {
	case SortAddedAsc:
		return FieldAddedTime + " asc"
	case SortMatchDesc:
		if hasKeywords {
			return scoreField + " desc"
		}
		return FieldAddedTime + " desc"
	case SortDistanceAsc:
		return distanceExprName + " asc"
	case SortExperienceDesc:
		return FieldYearsExperience + " desc"
	default:
		return FieldAddedTime + " desc"
	}
}

// compileKeywords turns free text into a structured query. Double-quoted runs
// become phrases and a leading '-' negates a term. Empty input matches all.
func compileKeywords(text string) (string, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return "", err
	}

	var positive, terms []string
	for _, tok := range tokens {
		var expr string
		if tok.phrase {
			expr = "(phrase " + quote(tok.text) + ")"
		} else {
			expr = quote(tok.text)
		}
		if tok.negated {
			terms = append(terms, "(not "+expr+")")
		} else {
			positive = append(positive, expr)
			terms = append(terms, expr)
		}
	}

	if len(terms) == 0 {
		return matchAll, nil
	}
	// A purely negative query needs something to subtract from
	if len(positive) == 0 {
		terms = append([]string{matchAll}, terms...)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return "(and " + strings.Join(terms, " ") + ")", nil
}

type token struct {
	text    string
	phrase  bool
	negated bool
}

func tokenize(text string) ([]token, error) {
	var tokens []token
	runes := []rune(strings.TrimSpace(text))

	for i := 0; i < len(runes); {
		if isSpace(runes[i]) {
			i++
			continue
		}

		negated := false
		if runes[i] == '-' && i+1 < len(runes) && !isSpace(runes[i+1]) {
			negated = true
			i++
		}

		if runes[i] == '"' {
			end := i + 1
			for end < len(runes) && runes[end] != '"' {
				end++
			}
			if end >= len(runes) {
				return nil, fmt.Errorf("%w: unbalanced quote in q", ErrInvalidParams)
			}
			phrase := strings.Join(strings.Fields(string(runes[i+1:end])), " ")
			if phrase != "" {
				tokens = append(tokens, token{text: phrase, phrase: strings.Contains(phrase, " "), negated: negated})
			}
			i = end + 1
			continue
		}

		end := i
		for end < len(runes) && !isSpace(runes[end]) && runes[end] != '"' {
			end++
		}
		tokens = append(tokens, token{text: string(runes[i:end]), negated: negated})
		i = end
	}

	return tokens, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
