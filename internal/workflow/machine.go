// Package workflow holds the intervention state machine and the pure
// computations derived from an intervention and its phase records.
package workflow

import (
	"fmt"
	"strings"

	"github.com/gmao/backend/internal/models"
)

// Gate names the phase record whose completion lets a status move forward.
type Gate int

const (
	GateNone Gate = iota
	GateDiagnostic
	GatePlanification
	GateQualityControl
)

// stage is everything the engine knows about one status. Each status is
// declared exactly once in stages.
type stage struct {
	next    []models.InterventionStatus
	gate    Gate
	actions []string
}

var stages = map[models.InterventionStatus]stage{
	models.StatusPlanned: {
		next: []models.InterventionStatus{models.StatusAwaitingParts, models.StatusInProgress, models.StatusCancelled},
		gate: GateDiagnostic,
		actions: []string{
			"Complete the diagnostic: list the required work and the spare parts needed",
			"Record the charges already performed on the equipment",
		},
	},
	models.StatusAwaitingParts: {
		next: []models.InterventionStatus{models.StatusInProgress, models.StatusPlanned, models.StatusCancelled},
		gate: GatePlanification,
		actions: []string{
			"Check spare parts availability",
			"Fill in the planification: execution capacity and urgency acknowledgement",
		},
	},
	models.StatusInProgress: {
		next: []models.InterventionStatus{models.StatusPaused, models.StatusCompleted, models.StatusFailed, models.StatusAwaitingParts},
		gate: GateQualityControl,
		actions: []string{
			"Carry out the planned work",
			"Run the quality control: test results and vibration analysis",
			"Close the intervention once quality control is recorded",
		},
	},
	models.StatusPaused: {
		next: []models.InterventionStatus{models.StatusInProgress, models.StatusCancelled},
		actions: []string{
			"Resolve the cause of the pause",
			"Resume the intervention",
		},
	},
	models.StatusCompleted: {
		actions: []string{
			"Write and validate the intervention report",
		},
	},
	models.StatusCancelled: {
		next: []models.InterventionStatus{models.StatusPlanned},
		actions: []string{
			"Reactivate the intervention if the job is still needed",
		},
	},
	models.StatusFailed: {
		next: []models.InterventionStatus{models.StatusPlanned, models.StatusInProgress},
		actions: []string{
			"Analyse the cause of the failure",
			"Replan or restart the intervention",
		},
	},
}

// UrgentAction is prepended to the next actions of an urgent, unfinished intervention.
const UrgentAction = "URGENT: handle this intervention first"

// InvalidTransitionError reports a status change the table does not allow.
type InvalidTransitionError struct {
	Current models.InterventionStatus
	Target  models.InterventionStatus
	Allowed []models.InterventionStatus
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.Wire()
	}
	return fmt.Sprintf("transition from %s to %s is not allowed (allowed: [%s])",
		e.Current.Wire(), e.Target.Wire(), strings.Join(allowed, ", "))
}

// AllowedTransitions returns a copy of the statuses reachable from status.
// Unknown statuses have no outgoing transitions.
func AllowedTransitions(status models.InterventionStatus) []models.InterventionStatus {
	next := stages[status].next
	out := make([]models.InterventionStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.InterventionStatus) bool {
	for _, s := range stages[from].next {
		if s == to {
			return true
		}
	}
	return false
}

// RequestTransition moves the intervention to target if the table allows it.
// It only writes the Status field; persistence is the caller's job.
func RequestTransition(intervention *models.Intervention, target models.InterventionStatus) (*models.Intervention, error) {
	if !CanTransition(intervention.Status, target) {
		return nil, &InvalidTransitionError{
			Current: intervention.Status,
			Target:  target,
			Allowed: AllowedTransitions(intervention.Status),
		}
	}
	intervention.Status = target
	return intervention, nil
}

// GuardedTransition applies from -> to only when the intervention is currently
// in from. It returns whether the status changed.
func GuardedTransition(intervention *models.Intervention, from, to models.InterventionStatus) (bool, error) {
	if intervention.Status != from {
		return false, nil
	}
	if _, err := RequestTransition(intervention, to); err != nil {
		return false, err
	}
	return true, nil
}

// GateFor returns the phase gating status, GateNone when nothing does.
func GateFor(status models.InterventionStatus) Gate {
	return stages[status].gate
}
