package search

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/talentpool-api/internal/model"
)

func testCandidate() *model.Candidate {
	lat, lon := 37.7749, -122.4194
	src := 3
	return &model.Candidate{
		ID:            uuid.New(),
		DomainID:      testDomain,
		OwnerID:       uuid.New(),
		FirstName:     "Grace",
		LastName:      "Hopper",
		FormattedName: "Grace Hopper",
		Emails: []model.CandidateEmail{
			{Address: "Grace@Example.com", IsDefault: true},
		},
		Addresses: []model.CandidateAddress{
			{City: "Oakland", State: "CA"},
			{City: "San Francisco", State: "CA", ZipCode: "94103", Latitude: &lat, Longitude: &lon, IsDefault: true},
		},
		Skills:          []string{"cobol", " ", "compilers"},
		SourceID:        &src,
		Status:          model.CandidateStatusNew,
		YearsExperience: 40,
		AddedAt:         time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestBuildDocument(t *testing.T) {
	c := testCandidate()
	op := BuildDocument(c)

	assert.Equal(t, "add", op.Type)
	assert.Equal(t, c.ID.String(), op.ID)

	f := op.Fields
	assert.Equal(t, testDomain.String(), f[FieldDomainID])
	assert.Equal(t, "Grace Hopper", f[FieldFormattedName])
	assert.Equal(t, []string{"grace@example.com"}, f[FieldEmail])
	assert.Equal(t, []string{"cobol", "compilers"}, f[FieldSkills])
	assert.Equal(t, "San Francisco", f[FieldCity])
	assert.Equal(t, "37.774900,-122.419400", f[FieldLatLon])
	assert.Equal(t, 3, f[FieldSourceID])
	assert.Equal(t, "2024-01-02T03:04:05Z", f[FieldAddedTime])

	// Empty values are omitted
	assert.NotContains(t, f, FieldObjective)
	assert.NotContains(t, f, FieldTags)
	assert.NotContains(t, f, FieldResumeText)
}

func TestBuildDocumentWithoutAddress(t *testing.T) {
	c := testCandidate()
	c.Addresses = nil
	c.SourceID = nil

	f := BuildDocument(c).Fields
	assert.NotContains(t, f, FieldLatLon)
	assert.NotContains(t, f, FieldCity)
	assert.NotContains(t, f, FieldSourceID)
}

func TestBatchesSplitsOnSize(t *testing.T) {
	ops := make([]Operation, 10)
	for i := range ops {
		ops[i] = DeleteOperation(uuid.New())
	}
	one, err := json.Marshal(ops[0])
	require.NoError(t, err)

	// Room for three operations per batch
	limit := 3*len(one) + 2 + 2
	batches, err := Batches(ops, limit)
	require.NoError(t, err)

	require.Len(t, batches, 4)
	total := 0
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), limit)
		var decoded []Operation
		require.NoError(t, json.Unmarshal(b, &decoded))
		total += len(decoded)
	}
	assert.Equal(t, 10, total)
}

func TestBatchesRejectsOversizedDocument(t *testing.T) {
	op := Operation{Type: "add", ID: "big", Fields: map[string]any{"summary": strings.Repeat("x", 200)}}
	_, err := Batches([]Operation{op}, 100)
	assert.Error(t, err)
}

func TestBatchesEmpty(t *testing.T) {
	batches, err := Batches(nil, MaxBatchBytes)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello world", sanitizeText("  hello\x00 world\x1b "))
	assert.Equal(t, "line1\nline2", sanitizeText("line1\nline2"))
	assert.Equal(t, "café", sanitizeText("café\u0085"))
	assert.Equal(t, "", sanitizeText(""))
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "abc", truncateUTF8("abc", 10))
	// "é" is two bytes; cutting at 2 must not split it
	assert.Equal(t, "a", truncateUTF8("aé", 2))
	assert.Equal(t, "aé", truncateUTF8("aé", 3))
}

func TestIndexerUploads(t *testing.T) {
	engine := &fakeEngine{}
	idx := NewIndexer(engine)

	require.NoError(t, idx.Index(context.Background(), testCandidate(), testCandidate()))
	require.NoError(t, idx.Remove(context.Background(), uuid.New()))
	require.NoError(t, idx.Index(context.Background()))

	require.Len(t, engine.uploads, 2)

	var ops []Operation
	require.NoError(t, json.Unmarshal(engine.uploads[0], &ops))
	assert.Len(t, ops, 2)

	require.NoError(t, json.Unmarshal(engine.uploads[1], &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, "delete", ops[0].Type)
}
