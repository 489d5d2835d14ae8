package workflow

import (
	"math"
	"sort"
	"time"

	"github.com/gmao/backend/internal/models"
)

// Phases is an intervention with whichever phase records exist so far.
type Phases struct {
	Intervention    *models.Intervention
	Diagnostic      *models.Diagnostic
	Planification   *models.Planification
	ControleQualite *models.ControleQualite
}

type Progress struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

type TimelinePhase string

const (
	PhaseIntervention   TimelinePhase = "intervention"
	PhaseDiagnostic     TimelinePhase = "diagnostic"
	PhasePlanification  TimelinePhase = "planification"
	PhaseQualityControl TimelinePhase = "controle_qualite"
)

type TimelineStatus string

const (
	TimelineCompleted  TimelineStatus = "completed"
	TimelineInProgress TimelineStatus = "in_progress"
)

type TimelineEntry struct {
	Phase       TimelinePhase  `json:"phase"`
	Description string         `json:"description"`
	Status      TimelineStatus `json:"status"`
	Date        *time.Time     `json:"date"`
}

type PhaseViews struct {
	Diagnostic      *models.Diagnostic      `json:"diagnostic"`
	Planification   *models.Planification   `json:"planification"`
	ControleQualite *models.ControleQualite `json:"controleQualite"`
}

// View is the workflow read model served to the dashboard.
type View struct {
	Intervention       *models.Intervention        `json:"intervention"`
	Status             models.InterventionStatus   `json:"statut"`
	Phases             PhaseViews                  `json:"phases"`
	Progress           Progress                    `json:"progress"`
	NextActions        []string                    `json:"nextActions"`
	Timeline           []TimelineEntry             `json:"timeline"`
	CanAdvance         bool                        `json:"canAdvance"`
	AllowedTransitions []models.InterventionStatus `json:"allowedTransitions"`
}

// BuildView computes every derived field from p. p.Intervention must be set.
func BuildView(p Phases) View {
	return View{
		Intervention: p.Intervention,
		Status:       p.Intervention.Status,
		Phases: PhaseViews{
			Diagnostic:      p.Diagnostic,
			Planification:   p.Planification,
			ControleQualite: p.ControleQualite,
		},
		Progress:           ComputeProgress(p),
		NextActions:        NextActions(p.Intervention),
		Timeline:           BuildTimeline(p),
		CanAdvance:         CanAdvance(p),
		AllowedTransitions: AllowedTransitions(p.Intervention.Status),
	}
}

// ComputeProgress counts the intervention itself plus one step per existing
// phase record; a step is completed when its record passes its predicate.
// A completed intervention is always at 100%.
func ComputeProgress(p Phases) Progress {
	total, completed := 1, 1

	if p.Diagnostic != nil {
		total++
		if DiagnosticComplete(p.Diagnostic) {
			completed++
		}
	}
	if p.Planification != nil {
		total++
		if PlanificationComplete(p.Planification) {
			completed++
		}
	}
	if p.ControleQualite != nil {
		total++
		if QualityControlComplete(p.ControleQualite) {
			completed++
		}
	}

	if p.Intervention != nil && p.Intervention.Status == models.StatusCompleted {
		completed = total
	}

	return Progress{
		Completed:  completed,
		Total:      total,
		Percentage: int(math.Round(100 * float64(completed) / float64(total))),
	}
}

// NextActions returns the recommendations for the intervention's status.
func NextActions(intervention *models.Intervention) []string {
	actions := stages[intervention.Status].actions
	out := make([]string, 0, len(actions)+1)
	if intervention.Urgent && intervention.Status != models.StatusCompleted {
		out = append(out, UrgentAction)
	}
	return append(out, actions...)
}

// CanAdvance reports whether the phase gating the current status is complete.
// It is advisory and never moves the status itself.
func CanAdvance(p Phases) bool {
	switch GateFor(p.Intervention.Status) {
	case GateDiagnostic:
		return DiagnosticComplete(p.Diagnostic)
	case GatePlanification:
		return PlanificationComplete(p.Planification)
	case GateQualityControl:
		return QualityControlComplete(p.ControleQualite)
	default:
		return false
	}
}

// BuildTimeline lists the existing records in ascending date order. Records
// with a zero date have a nil Date and sort after every dated entry; ties keep
// the intervention, diagnostic, planification, quality control order.
func BuildTimeline(p Phases) []TimelineEntry {
	entries := make([]TimelineEntry, 0, 4)

	if p.Intervention != nil {
		entries = append(entries, TimelineEntry{
			Phase:       PhaseIntervention,
			Description: "Intervention created",
			Status:      TimelineCompleted,
			Date:        datePtr(p.Intervention.CreatedAt),
		})
	}
	if p.Diagnostic != nil {
		entries = append(entries, TimelineEntry{
			Phase:       PhaseDiagnostic,
			Description: "Diagnostic",
			Status:      timelineStatus(DiagnosticComplete(p.Diagnostic)),
			Date:        datePtr(p.Diagnostic.DateCreation),
		})
	}
	if p.Planification != nil {
		entries = append(entries, TimelineEntry{
			Phase:       PhasePlanification,
			Description: "Planification",
			Status:      timelineStatus(PlanificationComplete(p.Planification)),
			Date:        datePtr(p.Planification.DateCreation),
		})
	}
	if p.ControleQualite != nil {
		entries = append(entries, TimelineEntry{
			Phase:       PhaseQualityControl,
			Description: "Quality control",
			Status:      timelineStatus(QualityControlComplete(p.ControleQualite)),
			Date:        datePtr(p.ControleQualite.DateControle),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Date, entries[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return entries
}

func timelineStatus(complete bool) TimelineStatus {
	if complete {
		return TimelineCompleted
	}
	return TimelineInProgress
}

func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
