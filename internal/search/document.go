package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/talentpool-api/internal/model"
)

const (
	// MaxBatchBytes is the engine's upload limit per batch
	MaxBatchBytes = 5 * 1024 * 1024
	// maxTextFieldBytes keeps a single document well under the 1 MB document limit
	maxTextFieldBytes = 200 * 1024
)

// Operation is one add or delete entry of a document batch
type Operation struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// BuildDocument maps a candidate to an add operation. Empty fields are omitted
// because the engine rejects empty strings for literal fields.
func BuildDocument(c *model.Candidate) Operation {
	fields := map[string]any{
		FieldDomainID:        c.DomainID.String(),
		FieldYearsExperience: c.YearsExperience,
		FieldAddedTime:       c.AddedAt.UTC().Format(time.RFC3339),
	}

	setText := func(name, value string) {
		if value = sanitizeText(value); value != "" {
			fields[name] = value
		}
	}
	setList := func(name string, values []string) {
		var clean []string
		for _, v := range values {
			if v = sanitizeText(v); v != "" {
				clean = append(clean, v)
			}
		}
		if len(clean) > 0 {
			fields[name] = clean
		}
	}

	if c.OwnerID != uuid.Nil {
		fields[FieldOwnerID] = c.OwnerID.String()
	}
	setText(FieldFirstName, c.FirstName)
	setText(FieldLastName, c.LastName)
	setText(FieldFormattedName, c.FormattedName)
	setText(FieldStatus, c.Status)
	setText(FieldObjective, c.Objective)
	setText(FieldSummary, c.Summary)
	setText(FieldResumeText, truncateUTF8(c.ResumeText, maxTextFieldBytes))

	emails := make([]string, 0, len(c.Emails))
	for _, e := range c.Emails {
		emails = append(emails, strings.ToLower(e.Address))
	}
	setList(FieldEmail, emails)
	setList(FieldSkills, c.Skills)
	setList(FieldAreasOfInterest, c.AreasOfInterest)
	setList(FieldTags, c.Tags)

	if c.SourceID != nil {
		fields[FieldSourceID] = *c.SourceID
	}

	if addr := c.DefaultAddress(); addr != nil {
		setText(FieldCity, addr.City)
		setText(FieldState, addr.State)
		setText(FieldZipCode, addr.ZipCode)
		if addr.Latitude != nil && addr.Longitude != nil {
			fields[FieldLatLon] = strconv.FormatFloat(*addr.Latitude, 'f', 6, 64) + "," +
				strconv.FormatFloat(*addr.Longitude, 'f', 6, 64)
		}
	}

	return Operation{Type: "add", ID: c.ID.String(), Fields: fields}
}

// DeleteOperation removes a candidate document
func DeleteOperation(id uuid.UUID) Operation {
	return Operation{Type: "delete", ID: id.String()}
}

// Batches serialises operations into JSON arrays no larger than maxBytes each
func Batches(ops []Operation, maxBytes int) ([][]byte, error) {
	var batches [][]byte
	current := []byte{'['}

	for _, op := range ops {
		raw, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("marshaling operation %s: %w", op.ID, err)
		}
		// 2 bytes for the surrounding brackets
		if len(raw)+2 > maxBytes {
			return nil, fmt.Errorf("document %s is %d bytes, over the %d byte batch limit", op.ID, len(raw), maxBytes)
		}

		// +1 for the separating comma and +1 for the closing bracket
		if len(current) > 1 && len(current)+1+len(raw)+1 > maxBytes {
			batches = append(batches, append(current, ']'))
			current = []byte{'['}
		}
		if len(current) > 1 {
			current = append(current, ',')
		}
		current = append(current, raw...)
	}

	if len(current) > 1 {
		batches = append(batches, append(current, ']'))
	}
	return batches, nil
}

// Indexer keeps candidate documents in the engine in sync with the database
type Indexer struct {
	engine Engine
}

func NewIndexer(engine Engine) *Indexer {
	return &Indexer{engine: engine}
}

// Index uploads add operations for the given candidates
func (i *Indexer) Index(ctx context.Context, candidates ...*model.Candidate) error {
	ops := make([]Operation, 0, len(candidates))
	for _, c := range candidates {
		ops = append(ops, BuildDocument(c))
	}
	return i.upload(ctx, ops)
}

// Remove uploads delete operations for the given candidate IDs
func (i *Indexer) Remove(ctx context.Context, ids ...uuid.UUID) error {
	ops := make([]Operation, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, DeleteOperation(id))
	}
	return i.upload(ctx, ops)
}

func (i *Indexer) upload(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		return nil
	}

	batches, err := Batches(ops, MaxBatchBytes)
	if err != nil {
		return err
	}

	for n, batch := range batches {
		if err := i.engine.Upload(ctx, batch); err != nil {
			return fmt.Errorf("uploading batch %d of %d: %w", n+1, len(batches), err)
		}
	}

	log.Debug().Int("operations", len(ops)).Int("batches", len(batches)).Msg("Search documents uploaded")
	return nil
}

// sanitizeText drops characters the engine refuses (control characters other
// than tab/newline/carriage return and invalid UTF-8) and trims whitespace
func sanitizeText(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			continue
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(r)
		case r < 0x20 || (r >= 0x7f && r <= 0x9f):
			continue
		case r == 0xFFFE || r == 0xFFFF:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune
func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
