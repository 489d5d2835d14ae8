package services

import (
	"context"
	"errors"

	"github.com/gmao/backend/internal/logger"
	"github.com/gmao/backend/internal/metrics"
	"github.com/gmao/backend/internal/models"
	"github.com/gmao/backend/internal/workflow"
	"gorm.io/gorm"
)

// WorkflowService is the entry point used by the HTTP layer.
type WorkflowService struct {
	store *PhaseStore
}

func NewWorkflowService(db *gorm.DB) *WorkflowService {
	return &WorkflowService{store: NewPhaseStore(db)}
}

// GetWorkflow loads the intervention and its phases and computes the view.
func (ws *WorkflowService) GetWorkflow(ctx context.Context, interventionID uint) (*workflow.View, error) {
	phases, err := ws.store.LoadPhases(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	view := workflow.BuildView(phases)
	return &view, nil
}

func (ws *WorkflowService) CreateIntervention(ctx context.Context, in NewIntervention) (*models.Intervention, error) {
	intervention, err := ws.store.CreateIntervention(ctx, in)
	if err != nil {
		logFailure(err, 0, "create intervention")
		return nil, err
	}

	logger.WithIntervention(intervention.ID, "workflow_service").WithField("equipment_id", intervention.EquipmentID).
		Info("Intervention created")
	return intervention, nil
}

func (ws *WorkflowService) SubmitDiagnostic(ctx context.Context, interventionID uint, in DiagnosticInput) (*models.Diagnostic, error) {
	diagnostic, transitioned, err := ws.store.UpsertDiagnostic(ctx, interventionID, in)
	if err != nil {
		logFailure(err, interventionID, "submit diagnostic")
		return nil, err
	}

	metrics.RecordPhaseSubmission(string(workflow.PhaseDiagnostic))
	if transitioned {
		recordAutoTransition(interventionID, models.StatusPlanned, models.StatusAwaitingParts)
	}
	logger.WithIntervention(interventionID, "workflow_service").WithFields(map[string]interface{}{
		"travail_requis":    len(diagnostic.TravailRequis),
		"besoin_pdr":        len(diagnostic.BesoinPDR),
		"charges_realisees": len(diagnostic.ChargesRealisees),
	}).Info("Diagnostic saved")
	return diagnostic, nil
}

func (ws *WorkflowService) SubmitPlanification(ctx context.Context, interventionID uint, in PlanificationInput) (*models.Planification, error) {
	if in.CapaciteExecution != nil && *in.CapaciteExecution < 0 {
		return nil, NewValidationError("capaciteExecution", "must be zero or positive")
	}

	planification, transitioned, err := ws.store.UpsertPlanification(ctx, interventionID, in)
	if err != nil {
		logFailure(err, interventionID, "submit planification")
		return nil, err
	}

	metrics.RecordPhaseSubmission(string(workflow.PhasePlanification))
	if transitioned {
		recordAutoTransition(interventionID, models.StatusAwaitingParts, models.StatusInProgress)
	}
	logger.WithIntervention(interventionID, "workflow_service").WithField("parts_available", planification.DisponibilitePDR).
		Info("Planification saved")
	return planification, nil
}

func (ws *WorkflowService) SubmitQualityControl(ctx context.Context, interventionID uint, in QualityControlInput) (*models.ControleQualite, error) {
	controle, err := ws.store.UpsertQualityControl(ctx, interventionID, in)
	if err != nil {
		logFailure(err, interventionID, "submit quality control")
		return nil, err
	}

	metrics.RecordPhaseSubmission(string(workflow.PhaseQualityControl))
	logger.WithIntervention(interventionID, "workflow_service").WithField("complete", workflow.QualityControlComplete(controle)).
		Info("Quality control saved")
	return controle, nil
}

// Transition applies a user-requested status change.
func (ws *WorkflowService) Transition(ctx context.Context, interventionID uint, target models.InterventionStatus) (*models.Intervention, error) {
	if !target.Valid() {
		return nil, NewValidationError("statut", "unknown status")
	}

	intervention, from, err := ws.store.ApplyTransition(ctx, interventionID, target)
	if err != nil {
		var invalid *workflow.InvalidTransitionError
		if errors.As(err, &invalid) {
			metrics.RecordTransition(invalid.Current.Wire(), target.Wire(), metrics.OutcomeRejected)
			logger.WithIntervention(interventionID, "workflow_service").WithFields(map[string]interface{}{
				"from": invalid.Current.Wire(),
				"to":   target.Wire(),
			}).Info("Status transition rejected")
			return nil, err
		}
		logFailure(err, interventionID, "transition")
		return nil, err
	}

	metrics.RecordTransition(from.Wire(), target.Wire(), metrics.OutcomeApplied)
	logger.WithIntervention(interventionID, "workflow_service").WithFields(map[string]interface{}{
		"from": from.Wire(),
		"to":   target.Wire(),
	}).Info("Status transition applied")
	return intervention, nil
}

func (ws *WorkflowService) AddRapport(ctx context.Context, interventionID uint, contenu string) (*models.Rapport, error) {
	rapport, err := ws.store.AddRapport(ctx, interventionID, contenu)
	if err != nil {
		logFailure(err, interventionID, "add rapport")
		return nil, err
	}
	return rapport, nil
}

func (ws *WorkflowService) ListRapports(ctx context.Context, interventionID uint) ([]models.Rapport, error) {
	return ws.store.ListRapports(ctx, interventionID)
}

func (ws *WorkflowService) ValidateRapport(ctx context.Context, rapportID uint) (*models.Rapport, error) {
	rapport, err := ws.store.ValidateRapport(ctx, rapportID)
	if err != nil {
		logFailure(err, 0, "validate rapport")
		return nil, err
	}
	logger.WithIntervention(rapport.InterventionID, "workflow_service").WithField("rapport_id", rapport.ID).
		Info("Rapport validated")
	return rapport, nil
}

func recordAutoTransition(interventionID uint, from, to models.InterventionStatus) {
	metrics.RecordTransition(from.Wire(), to.Wire(), metrics.OutcomeAuto)
	logger.WithIntervention(interventionID, "workflow_service").WithFields(map[string]interface{}{
		"from": from.Wire(),
		"to":   to.Wire(),
	}).Info("Automatic status transition")
}

// logFailure only logs persistence failures; caller mistakes are reported by
// the controller.
func logFailure(err error, interventionID uint, op string) {
	var store *StoreError
	var conflict *ConflictError
	switch {
	case errors.As(err, &store):
		logger.WithError(err, "workflow_service").WithField("intervention_id", interventionID).Error("Failed to " + op)
	case errors.As(err, &conflict):
		logger.WithError(err, "workflow_service").WithField("intervention_id", interventionID).Warn("Concurrent write on " + op)
	}
}
