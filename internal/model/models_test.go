package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateDefaults(t *testing.T) {
	c := &Candidate{
		Emails:    []CandidateEmail{{Address: "a@x.io"}, {Address: "b@x.io", IsDefault: true}},
		Addresses: []CandidateAddress{{City: "Austin"}, {City: "Denver"}},
	}

	assert.Equal(t, "b@x.io", c.DefaultEmail())
	assert.Equal(t, "Austin", c.DefaultAddress().City)

	empty := &Candidate{}
	assert.Empty(t, empty.DefaultEmail())
	assert.Nil(t, empty.DefaultAddress())
}

func TestValidCandidateStatus(t *testing.T) {
	assert.True(t, ValidCandidateStatus(CandidateStatusInterviewing))
	assert.False(t, ValidCandidateStatus("ghosted"))
	assert.False(t, ValidCandidateStatus(""))
}

func TestEffectivePlan(t *testing.T) {
	assert.Equal(t, PlanFree, EffectivePlan(nil))
	assert.Equal(t, PlanPro, EffectivePlan(&Subscription{Plan: PlanPro, Status: SubStatusActive}))
	assert.Equal(t, PlanProPlus, EffectivePlan(&Subscription{Plan: PlanProPlus, Status: SubStatusTrialing}))
	assert.Equal(t, PlanFree, EffectivePlan(&Subscription{Plan: PlanPro, Status: SubStatusPastDue}))
	assert.Greater(t, PlanLevel(PlanProPlus), PlanLevel(PlanPro))
}
