package workflow

import (
	"github.com/gmao/backend/internal/models"
)

// DiagnosticComplete is true for any stored diagnostic: one is created with its
// date at intake, so existing and complete are the same thing here.
func DiagnosticComplete(d *models.Diagnostic) bool {
	return d != nil && !d.DateCreation.IsZero()
}

// PlanificationComplete needs the spare parts to be available and a capacity
// estimate. A zero capacity is an estimate.
func PlanificationComplete(p *models.Planification) bool {
	return p != nil && p.DisponibilitePDR && p.CapaciteExecution != nil
}

// QualityControlComplete needs at least one of the two reports filled in.
func QualityControlComplete(q *models.ControleQualite) bool {
	return q != nil && (nonEmpty(q.ResultatsEssais) || nonEmpty(q.AnalyseVibratoire))
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
