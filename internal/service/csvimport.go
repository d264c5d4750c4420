package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yourusername/talentpool-api/internal/model"
)

// ImportRow is one parsed data line of an import file
type ImportRow struct {
	Line      int
	Candidate *model.Candidate
	Err       error
}

// ErrImportFormat means the file cannot be imported at all
var ErrImportFormat = errors.New("invalid import file")

// csvColumns maps normalised header names to candidate fields
var csvColumns = map[string]string{
	"firstname":       "firstName",
	"first":           "firstName",
	"givenname":       "firstName",
	"middlename":      "middleName",
	"lastname":        "lastName",
	"last":            "lastName",
	"surname":         "lastName",
	"familyname":      "lastName",
	"email":           "email",
	"emailaddress":    "email",
	"phone":           "phone",
	"phonenumber":     "phone",
	"mobile":          "phone",
	"city":            "city",
	"state":           "state",
	"zip":             "zipCode",
	"zipcode":         "zipCode",
	"postalcode":      "zipCode",
	"country":         "country",
	"skills":          "skills",
	"tags":            "tags",
	"areasofinterest": "areasOfInterest",
	"source":          "sourceId",
	"sourceid":        "sourceId",
	"status":          "status",
	"objective":       "objective",
	"summary":         "summary",
	"yearsexperience": "yearsExperience",
	"experience":      "yearsExperience",
}

// normalizeHeader lowercases and drops spaces, underscores and dashes
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// ParseCandidateCSV reads a header row and one candidate per line. Headers are
// matched loosely ("First Name", "first_name" and "FirstName" are the same
// column) and unknown columns are ignored. A file without a first name, last
// name or email column is rejected; individual bad lines are reported in
// ImportRow.Err and do not stop parsing.
func ParseCandidateCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrImportFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrImportFormat, err)
	}

	// Spreadsheet exports on Windows prepend a UTF-8 BOM
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\xef\xbb\xbf")
	}

	colMap := make(map[string]int)
	for i, h := range headers {
		if field, ok := csvColumns[normalizeHeader(h)]; ok {
			if _, dup := colMap[field]; !dup {
				colMap[field] = i
			}
		}
	}

	_, hasFirst := colMap["firstName"]
	_, hasLast := colMap["lastName"]
	_, hasEmail := colMap["email"]
	if !hasFirst && !hasLast && !hasEmail {
		return nil, fmt.Errorf("%w: no first name, last name or email column", ErrImportFormat)
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			rows = append(rows, ImportRow{Line: line, Err: err})
			// A malformed quote leaves the reader mid-record; nothing after it is reliable
			if errors.Is(err, csv.ErrQuote) || errors.Is(err, csv.ErrBareQuote) {
				break
			}
			continue
		}
		if isBlankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		c, err := candidateFromRecord(record, colMap)
		rows = append(rows, ImportRow{Line: line, Candidate: c, Err: err})
	}

	return rows, nil
}

func candidateFromRecord(record []string, colMap map[string]int) (*model.Candidate, error) {
	get := func(field string) string {
		idx, ok := colMap[field]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	c := &model.Candidate{
		FirstName:       get("firstName"),
		MiddleName:      get("middleName"),
		LastName:        get("lastName"),
		Status:          strings.ToLower(get("status")),
		Objective:       get("objective"),
		Summary:         get("summary"),
		Skills:          splitList(get("skills")),
		Tags:            splitList(get("tags")),
		AreasOfInterest: splitList(get("areasOfInterest")),
	}

	if email := get("email"); email != "" {
		c.Emails = []model.CandidateEmail{{Label: "primary", Address: email, IsDefault: true}}
	}
	if phone := get("phone"); phone != "" {
		c.Phones = []model.CandidatePhone{{Label: "primary", Value: phone, IsDefault: true}}
	}

	city, state, zip, country := get("city"), get("state"), get("zipCode"), get("country")
	if city != "" || state != "" || zip != "" || country != "" {
		c.Addresses = []model.CandidateAddress{{City: city, State: state, ZipCode: zip, Country: country, IsDefault: true}}
	}

	if raw := get("sourceId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("source %q is not a number", raw)
		}
		c.SourceID = &id
	}
	if raw := get("yearsExperience"); raw != "" {
		years, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("years of experience %q is not a number", raw)
		}
		c.YearsExperience = int(years)
	}

	return c, nil
}

// splitList accepts semicolon or comma separated values
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
