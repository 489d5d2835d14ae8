package workflow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gmao/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func TestComputeProgress(t *testing.T) {
	diag := &models.Diagnostic{DateCreation: baseTime}
	incompletePlan := &models.Planification{DisponibilitePDR: false}
	completePlan := &models.Planification{DisponibilitePDR: true, CapaciteExecution: intPtr(4)}
	emptyQC := &models.ControleQualite{}

	tests := []struct {
		name     string
		phases   Phases
		expected Progress
	}{
		{
			name:     "intervention only",
			phases:   Phases{Intervention: &models.Intervention{Status: models.StatusPlanned}},
			expected: Progress{Completed: 1, Total: 1, Percentage: 100},
		},
		{
			name:     "with diagnostic",
			phases:   Phases{Intervention: &models.Intervention{Status: models.StatusPlanned}, Diagnostic: diag},
			expected: Progress{Completed: 2, Total: 2, Percentage: 100},
		},
		{
			name: "incomplete planification",
			phases: Phases{
				Intervention:  &models.Intervention{Status: models.StatusAwaitingParts},
				Diagnostic:    diag,
				Planification: incompletePlan,
			},
			expected: Progress{Completed: 2, Total: 3, Percentage: 67},
		},
		{
			name: "complete planification, empty quality control",
			phases: Phases{
				Intervention:    &models.Intervention{Status: models.StatusInProgress},
				Diagnostic:      diag,
				Planification:   completePlan,
				ControleQualite: emptyQC,
			},
			expected: Progress{Completed: 3, Total: 4, Percentage: 75},
		},
		{
			name: "two incomplete phases",
			phases: Phases{
				Intervention:    &models.Intervention{Status: models.StatusInProgress},
				Diagnostic:      diag,
				Planification:   incompletePlan,
				ControleQualite: emptyQC,
			},
			expected: Progress{Completed: 2, Total: 4, Percentage: 50},
		},
		{
			name: "completed forces full progress",
			phases: Phases{
				Intervention:    &models.Intervention{Status: models.StatusCompleted},
				Diagnostic:      diag,
				Planification:   incompletePlan,
				ControleQualite: emptyQC,
			},
			expected: Progress{Completed: 4, Total: 4, Percentage: 100},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, ComputeProgress(test.phases))
		})
	}
}

func TestNextActions(t *testing.T) {
	for _, status := range models.AllStatuses {
		actions := NextActions(&models.Intervention{Status: status})
		assert.NotEmpty(t, actions, string(status))
		assert.NotEqual(t, UrgentAction, actions[0], string(status))
	}
}

func TestNextActionsUrgent(t *testing.T) {
	actions := NextActions(&models.Intervention{Status: models.StatusInProgress, Urgent: true})
	require.NotEmpty(t, actions)
	assert.Equal(t, UrgentAction, actions[0])
	assert.Equal(t, NextActions(&models.Intervention{Status: models.StatusInProgress}), actions[1:])

	completed := NextActions(&models.Intervention{Status: models.StatusCompleted, Urgent: true})
	assert.NotContains(t, completed, UrgentAction)
}

func TestNextActionsDoesNotAliasTable(t *testing.T) {
	actions := NextActions(&models.Intervention{Status: models.StatusPaused})
	actions[0] = "changed"

	assert.NotEqual(t, "changed", NextActions(&models.Intervention{Status: models.StatusPaused})[0])
}

func TestCanAdvance(t *testing.T) {
	diag := &models.Diagnostic{DateCreation: baseTime}
	plan := &models.Planification{DisponibilitePDR: true, CapaciteExecution: intPtr(2)}
	qc := &models.ControleQualite{ResultatsEssais: strPtr("OK")}
	all := func(status models.InterventionStatus) Phases {
		return Phases{Intervention: &models.Intervention{Status: status}, Diagnostic: diag, Planification: plan, ControleQualite: qc}
	}

	assert.True(t, CanAdvance(all(models.StatusPlanned)))
	assert.True(t, CanAdvance(all(models.StatusAwaitingParts)))
	assert.True(t, CanAdvance(all(models.StatusInProgress)))
	assert.False(t, CanAdvance(all(models.StatusPaused)))
	assert.False(t, CanAdvance(all(models.StatusCompleted)))
	assert.False(t, CanAdvance(all(models.StatusCancelled)))
	assert.False(t, CanAdvance(all(models.StatusFailed)))

	assert.False(t, CanAdvance(Phases{Intervention: &models.Intervention{Status: models.StatusPlanned}}))
	assert.False(t, CanAdvance(Phases{
		Intervention:  &models.Intervention{Status: models.StatusAwaitingParts},
		Diagnostic:    diag,
		Planification: &models.Planification{DisponibilitePDR: false, CapaciteExecution: intPtr(2)},
	}))
	assert.False(t, CanAdvance(Phases{
		Intervention:    &models.Intervention{Status: models.StatusInProgress},
		ControleQualite: &models.ControleQualite{},
	}))
}

func TestBuildTimelineOrdersByDate(t *testing.T) {
	phases := Phases{
		Intervention:    &models.Intervention{Status: models.StatusInProgress, CreatedAt: baseTime},
		Diagnostic:      &models.Diagnostic{DateCreation: baseTime.Add(3 * time.Hour)},
		Planification:   &models.Planification{DateCreation: baseTime.Add(time.Hour)},
		ControleQualite: &models.ControleQualite{DateControle: baseTime.Add(2 * time.Hour), ResultatsEssais: strPtr("OK")},
	}

	timeline := BuildTimeline(phases)
	require.Len(t, timeline, 4)

	var order []TimelinePhase
	for _, e := range timeline {
		order = append(order, e.Phase)
	}
	assert.Equal(t, []TimelinePhase{PhaseIntervention, PhasePlanification, PhaseQualityControl, PhaseDiagnostic}, order)

	assert.Equal(t, TimelineCompleted, timeline[0].Status)
	assert.Equal(t, TimelineInProgress, timeline[1].Status)
	assert.Equal(t, TimelineCompleted, timeline[2].Status)
	assert.Equal(t, TimelineCompleted, timeline[3].Status)
}

func TestBuildTimelineUndatedLast(t *testing.T) {
	phases := Phases{
		Intervention:  &models.Intervention{Status: models.StatusAwaitingParts, CreatedAt: baseTime},
		Diagnostic:    &models.Diagnostic{},
		Planification: &models.Planification{DateCreation: baseTime.Add(time.Minute)},
	}

	timeline := BuildTimeline(phases)
	require.Len(t, timeline, 3)
	assert.Equal(t, PhaseIntervention, timeline[0].Phase)
	assert.Equal(t, PhasePlanification, timeline[1].Phase)
	assert.Equal(t, PhaseDiagnostic, timeline[2].Phase)
	assert.Nil(t, timeline[2].Date)
	assert.Equal(t, TimelineInProgress, timeline[2].Status)
}

func TestBuildTimelineSkipsMissingPhases(t *testing.T) {
	timeline := BuildTimeline(Phases{Intervention: &models.Intervention{CreatedAt: baseTime}})
	require.Len(t, timeline, 1)
	assert.Equal(t, PhaseIntervention, timeline[0].Phase)
}

func TestBuildViewJSON(t *testing.T) {
	view := BuildView(Phases{
		Intervention: &models.Intervention{ID: 7, Status: models.StatusPlanned, Urgent: true, CreatedAt: baseTime},
		Diagnostic:   &models.Diagnostic{ID: 3, InterventionID: 7, DateCreation: baseTime, TravailRequis: []string{"Inspect bearing"}},
	})

	data, err := json.Marshal(view)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "PLANIFIEE", raw["statut"])
	assert.Equal(t, true, raw["canAdvance"])
	assert.Equal(t, []any{"EN_ATTENTE_PDR", "EN_COURS", "ANNULEE"}, raw["allowedTransitions"])

	phases, ok := raw["phases"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, phases, "planification")
	assert.Nil(t, phases["planification"])
	assert.Nil(t, phases["controleQualite"])

	actions, ok := raw["nextActions"].([]any)
	require.True(t, ok)
	assert.Equal(t, UrgentAction, actions[0])
}
