package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandidateCSV(t *testing.T) {
	input := "\xef\xbb\xbfFirst Name,last_name,E-mail Address,Phone,City,Skills,Source,Years Experience,Ignored\n" +
		"Ada,Lovelace,ada@example.com,555-0100,London,math; engines,3,12.5,x\n" +
		",,,,,,,,\n" +
		"Grace,Hopper,grace@navy.mil,,,\"cobol,compilers\",,,\n" +
		"Bad,Source,bad@x.io,,,,abc,,\n"

	rows, err := ParseCandidateCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3, "blank lines are skipped")

	ada := rows[0]
	require.NoError(t, ada.Err)
	assert.Equal(t, 2, ada.Line)
	assert.Equal(t, "Ada", ada.Candidate.FirstName)
	assert.Equal(t, "Lovelace", ada.Candidate.LastName)
	require.Len(t, ada.Candidate.Emails, 1)
	assert.Equal(t, "ada@example.com", ada.Candidate.Emails[0].Address)
	require.Len(t, ada.Candidate.Phones, 1)
	require.Len(t, ada.Candidate.Addresses, 1)
	assert.Equal(t, "London", ada.Candidate.Addresses[0].City)
	assert.Equal(t, []string{"math", "engines"}, ada.Candidate.Skills)
	require.NotNil(t, ada.Candidate.SourceID)
	assert.Equal(t, 3, *ada.Candidate.SourceID)
	assert.Equal(t, 12, ada.Candidate.YearsExperience)

	grace := rows[1]
	require.NoError(t, grace.Err)
	assert.Equal(t, 4, grace.Line)
	assert.Equal(t, []string{"cobol", "compilers"}, grace.Candidate.Skills)
	assert.Empty(t, grace.Candidate.Phones)
	assert.Empty(t, grace.Candidate.Addresses)

	bad := rows[2]
	assert.Equal(t, 5, bad.Line)
	assert.ErrorContains(t, bad.Err, "not a number")
}

func TestParseCandidateCSVRejectsFile(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no identifying column", "phone,city\n555,Paris\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCandidateCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrImportFormat)
		})
	}
}

func TestParseCandidateCSVStopsAtBrokenQuote(t *testing.T) {
	input := "email\n" +
		"a@x.io\n" +
		"b\"@x.io\n" +
		"c@x.io\n"

	rows, err := ParseCandidateCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NoError(t, rows[0].Err)
	assert.Error(t, rows[1].Err)
	assert.Equal(t, 3, rows[1].Line)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b,"))
	assert.Equal(t, []string{"a,b", "c"}, splitList("a,b; c"))
}
