package approval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type defaultOnlyEngine struct {
	Engine
	tpl *Template
}

func (e defaultOnlyEngine) DefaultTemplate(context.Context, uuid.UUID, string) (*Template, error) {
	return e.tpl, nil
}

func TestResolveTemplate(t *testing.T) {
	tenantID := uuid.New()
	explicit := uuid.New()
	tpl := &Template{ID: uuid.New(), Name: "Two step"}

	res, err := ResolveTemplate(context.Background(), defaultOnlyEngine{tpl: tpl}, tenantID, &explicit)
	require.NoError(t, err)
	assert.Equal(t, ExplicitTemplate{TemplateID: explicit}, res)

	res, err = ResolveTemplate(context.Background(), defaultOnlyEngine{tpl: tpl}, tenantID, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate{Template: *tpl}, res)

	res, err = ResolveTemplate(context.Background(), defaultOnlyEngine{}, tenantID, nil)
	require.NoError(t, err)
	assert.IsType(t, NoTemplateConfigured{}, res)
}

func TestSummarize(t *testing.T) {
	policyID := uuid.New()
	reviewer := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	never := Summarize(policyID, nil)
	assert.Nil(t, never.Instance)
	assert.False(t, never.IsActive)
	assert.Empty(t, never.Reviewers)
	assert.NotNil(t, never.Reviewers)

	inst := &Instance{
		ID:           uuid.New(),
		Status:       InstanceActive,
		CurrentStage: "legal",
		Template: &Template{Stages: []Stage{
			{ID: "manager", Name: "Manager review"},
			{ID: "legal", Name: "Legal review", Description: "Counsel signs off"},
		}},
		StepStates: map[string]StepState{
			"legal":   {Status: "PENDING"},
			"manager": {Status: "APPROVED", CompletedBy: &reviewer, CompletedAt: &at},
		},
	}
	s := Summarize(policyID, inst)
	assert.True(t, s.IsActive)
	require.NotNil(t, s.CurrentStage)
	assert.Equal(t, "Legal review", s.CurrentStage.Name)
	assert.Equal(t, "Counsel signs off", s.CurrentStage.Description)
	require.Len(t, s.Reviewers, 1)
	assert.Equal(t, "Manager review", s.Reviewers[0].StageName)
	assert.Equal(t, reviewer, s.Reviewers[0].UserID)
}
