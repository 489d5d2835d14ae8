package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gmao/backend/internal/logger"
	"github.com/gmao/backend/internal/models"
	"github.com/gmao/backend/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PhaseStore persists interventions' phase records. Every write runs in a
// single transaction holding a lock on the intervention row, so phase data and
// status are committed together or not at all.
type PhaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPhaseStore(db *gorm.DB) *PhaseStore {
	return &PhaseStore{db: db, now: time.Now}
}

type DiagnosticInput struct {
	TravailRequis    []string
	BesoinPDR        []string
	ChargesRealisees []string
}

type PlanificationInput struct {
	CapaciteExecution *int
	UrgencePrise      bool
	DisponibilitePDR  bool
}

type QualityControlInput struct {
	ResultatsEssais   string
	AnalyseVibratoire string
}

type NewIntervention struct {
	Date        time.Time
	Description string
	Urgent      bool
	EquipmentID uint
	CreatedByID *uint
}

// diagnosticList maps one of the diagnostic value lists to its table.
type diagnosticList struct {
	name  string
	table string
	field func(*models.Diagnostic) *[]string
}

var diagnosticLists = []diagnosticList{
	{"travailRequis", models.DiagnosticTravailRequis{}.TableName(), func(d *models.Diagnostic) *[]string { return &d.TravailRequis }},
	{"besoinPDR", models.DiagnosticBesoinPDR{}.TableName(), func(d *models.Diagnostic) *[]string { return &d.BesoinPDR }},
	{"chargesRealisees", models.DiagnosticChargeRealisee{}.TableName(), func(d *models.Diagnostic) *[]string { return &d.ChargesRealisees }},
}

// inTransaction locks the intervention and runs fn inside one transaction.
func (s *PhaseStore) inTransaction(ctx context.Context, op string, interventionID uint, fn func(tx *gorm.DB, intervention *models.Intervention) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		intervention, err := lockIntervention(tx, interventionID)
		if err != nil {
			return err
		}
		return fn(tx, intervention)
	})
	return storeErr(op, "intervention", err)
}

// lockIntervention loads the intervention with FOR UPDATE where the dialect
// supports row locks. SQLite serializes writers on its own.
func lockIntervention(tx *gorm.DB, id uint) (*models.Intervention, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var intervention models.Intervention
	if err := query.First(&intervention, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "intervention", ID: id}
		}
		return nil, fmt.Errorf("failed to load intervention: %w", err)
	}
	return &intervention, nil
}

// saveStatus persists a status chosen by the state machine.
func saveStatus(tx *gorm.DB, intervention *models.Intervention) error {
	if err := tx.Model(intervention).Update("statut", intervention.Status).Error; err != nil {
		return fmt.Errorf("failed to update intervention status: %w", err)
	}
	return nil
}

// autoTransition applies a guarded transition and persists it when it fired.
func autoTransition(tx *gorm.DB, intervention *models.Intervention, from, to models.InterventionStatus) (bool, error) {
	changed, err := workflow.GuardedTransition(intervention, from, to)
	if err != nil || !changed {
		return false, err
	}
	return true, saveStatus(tx, intervention)
}

// CreateIntervention registers a new job in PLANNED together with its empty
// diagnostic.
func (s *PhaseStore) CreateIntervention(ctx context.Context, in NewIntervention) (*models.Intervention, error) {
	intervention := models.Intervention{
		Date:        models.NewDate(in.Date),
		Description: in.Description,
		Status:      models.StatusPlanned,
		Urgent:      in.Urgent,
		EquipmentID: in.EquipmentID,
		CreatedByID: in.CreatedByID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var equipment models.Equipment
		if err := tx.First(&equipment, in.EquipmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "equipment", ID: in.EquipmentID}
			}
			return fmt.Errorf("failed to load equipment: %w", err)
		}

		if err := tx.Create(&intervention).Error; err != nil {
			return fmt.Errorf("failed to create intervention: %w", err)
		}

		if intervention.Status == models.StatusPlanned {
			diagnostic := models.Diagnostic{InterventionID: intervention.ID, DateCreation: s.now()}
			if err := tx.Create(&diagnostic).Error; err != nil {
				return fmt.Errorf("failed to create diagnostic: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("create intervention", "intervention", err)
	}
	return &intervention, nil
}

// UpsertDiagnostic creates the diagnostic if needed and replaces its three
// lists. Blank entries are dropped. A non-empty diagnostic moves a PLANNED
// intervention to AWAITING_PARTS.
func (s *PhaseStore) UpsertDiagnostic(ctx context.Context, interventionID uint, in DiagnosticInput) (*models.Diagnostic, bool, error) {
	diagnostic := models.Diagnostic{
		InterventionID:   interventionID,
		TravailRequis:    cleanList(in.TravailRequis),
		BesoinPDR:        cleanList(in.BesoinPDR),
		ChargesRealisees: cleanList(in.ChargesRealisees),
	}
	var transitioned bool

	err := s.inTransaction(ctx, "upsert diagnostic", interventionID, func(tx *gorm.DB, intervention *models.Intervention) error {
		row := &models.Diagnostic{InterventionID: interventionID, DateCreation: s.now()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intervention_id"}},
			DoNothing: true,
		}).Create(row).Error; err != nil {
			return fmt.Errorf("failed to create diagnostic: %w", err)
		}
		var stored models.Diagnostic
		if err := tx.Where("intervention_id = ?", interventionID).First(&stored).Error; err != nil {
			return fmt.Errorf("failed to load diagnostic: %w", err)
		}
		diagnostic.ID = stored.ID
		diagnostic.DateCreation = stored.DateCreation

		nonEmpty := false
		for _, list := range diagnosticLists {
			values := *list.field(&diagnostic)
			if err := replaceList(tx, list.table, diagnostic.ID, values); err != nil {
				return err
			}
			nonEmpty = nonEmpty || len(values) > 0
		}

		if nonEmpty {
			var err error
			transitioned, err = autoTransition(tx, intervention, models.StatusPlanned, models.StatusAwaitingParts)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &diagnostic, transitioned, nil
}

func replaceList(tx *gorm.DB, table string, diagnosticID uint, values []string) error {
	if err := tx.Table(table).Where("diagnostic_id = ?", diagnosticID).Delete(&models.DiagnosticItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	if len(values) == 0 {
		return nil
	}

	rows := make([]models.DiagnosticItem, len(values))
	for i, v := range values {
		rows[i] = models.DiagnosticItem{DiagnosticID: diagnosticID, Position: i, Label: v}
	}
	if err := tx.Table(table).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return nil
}

// cleanList trims entries and drops the blank ones. It never returns nil.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// UpsertPlanification writes all planification fields. Available spare parts
// move an AWAITING_PARTS intervention to IN_PROGRESS.
func (s *PhaseStore) UpsertPlanification(ctx context.Context, interventionID uint, in PlanificationInput) (*models.Planification, bool, error) {
	var (
		planification models.Planification
		transitioned  bool
	)

	err := s.inTransaction(ctx, "upsert planification", interventionID, func(tx *gorm.DB, intervention *models.Intervention) error {
		id := interventionID
		row := models.Planification{
			InterventionID:    &id,
			DateCreation:      s.now(),
			CapaciteExecution: in.CapaciteExecution,
			UrgencePrise:      in.UrgencePrise,
			DisponibilitePDR:  in.DisponibilitePDR,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intervention_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"capacite_execution", "urgence_prise", "disponibilite_pdr"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save planification: %w", err)
		}
		if err := tx.Where("intervention_id = ?", interventionID).First(&planification).Error; err != nil {
			return fmt.Errorf("failed to load planification: %w", err)
		}

		if in.DisponibilitePDR {
			var err error
			transitioned, err = autoTransition(tx, intervention, models.StatusAwaitingParts, models.StatusInProgress)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &planification, transitioned, nil
}

// UpsertQualityControl overwrites both reports; empty text is stored as NULL.
func (s *PhaseStore) UpsertQualityControl(ctx context.Context, interventionID uint, in QualityControlInput) (*models.ControleQualite, error) {
	var controle models.ControleQualite

	err := s.inTransaction(ctx, "upsert quality control", interventionID, func(tx *gorm.DB, _ *models.Intervention) error {
		row := models.ControleQualite{
			InterventionID:    interventionID,
			DateControle:      s.now(),
			ResultatsEssais:   nullableText(in.ResultatsEssais),
			AnalyseVibratoire: nullableText(in.AnalyseVibratoire),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intervention_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"date_controle", "resultats_essais", "analyse_vibratoire"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save quality control: %w", err)
		}
		if err := tx.Where("intervention_id = ?", interventionID).First(&controle).Error; err != nil {
			return fmt.Errorf("failed to load quality control: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &controle, nil
}

func nullableText(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// ApplyTransition moves the intervention to target through the state machine
// and persists it.
func (s *PhaseStore) ApplyTransition(ctx context.Context, interventionID uint, target models.InterventionStatus) (*models.Intervention, models.InterventionStatus, error) {
	var (
		updated *models.Intervention
		from    models.InterventionStatus
	)

	err := s.inTransaction(ctx, "transition intervention", interventionID, func(tx *gorm.DB, intervention *models.Intervention) error {
		from = intervention.Status
		var err error
		if updated, err = workflow.RequestTransition(intervention, target); err != nil {
			return err
		}
		return saveStatus(tx, updated)
	})
	if err != nil {
		return nil, from, err
	}
	return updated, from, nil
}

// AddRapport attaches a new, unvalidated report to the intervention.
func (s *PhaseStore) AddRapport(ctx context.Context, interventionID uint, contenu string) (*models.Rapport, error) {
	if strings.TrimSpace(contenu) == "" {
		return nil, NewValidationError("contenu", "required")
	}

	rapport := models.Rapport{InterventionID: interventionID, Contenu: contenu}
	err := s.inTransaction(ctx, "add rapport", interventionID, func(tx *gorm.DB, _ *models.Intervention) error {
		rapport.DateCreation = s.now()
		if err := tx.Create(&rapport).Error; err != nil {
			return fmt.Errorf("failed to create rapport: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rapport, nil
}

// ValidateRapport marks a report as validated.
func (s *PhaseStore) ValidateRapport(ctx context.Context, rapportID uint) (*models.Rapport, error) {
	var rapport models.Rapport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rapport, rapportID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "rapport", ID: rapportID}
			}
			return fmt.Errorf("failed to load rapport: %w", err)
		}
		rapport.Valide = true
		if err := tx.Model(&rapport).Update("valide", true).Error; err != nil {
			return fmt.Errorf("failed to validate rapport: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("validate rapport", "rapport", err)
	}
	return &rapport, nil
}

// ListRapports returns the intervention's reports, oldest first.
func (s *PhaseStore) ListRapports(ctx context.Context, interventionID uint) ([]models.Rapport, error) {
	db := s.db.WithContext(ctx)
	if _, err := findIntervention(db, interventionID); err != nil {
		return nil, storeErr("list rapports", "rapport", err)
	}

	rapports := []models.Rapport{}
	if err := db.Where("intervention_id = ?", interventionID).Order("date_creation ASC, id ASC").Find(&rapports).Error; err != nil {
		return nil, storeErr("list rapports", "rapport", err)
	}
	return rapports, nil
}

func findIntervention(db *gorm.DB, id uint) (*models.Intervention, error) {
	var intervention models.Intervention
	if err := db.Preload("Equipment").First(&intervention, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "intervention", ID: id}
		}
		return nil, fmt.Errorf("failed to load intervention: %w", err)
	}
	return &intervention, nil
}

// LoadPhases reads the intervention and whichever phase records exist.
// Failures reading the diagnostic lists are logged and yield empty lists.
func (s *PhaseStore) LoadPhases(ctx context.Context, interventionID uint) (workflow.Phases, error) {
	db := s.db.WithContext(ctx)

	intervention, err := findIntervention(db, interventionID)
	if err != nil {
		return workflow.Phases{}, storeErr("load workflow", "intervention", err)
	}
	phases := workflow.Phases{Intervention: intervention}

	var diagnostic models.Diagnostic
	switch err := db.Where("intervention_id = ?", interventionID).First(&diagnostic).Error; {
	case err == nil:
		s.loadDiagnosticLists(db, &diagnostic)
		phases.Diagnostic = &diagnostic
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return workflow.Phases{}, storeErr("load diagnostic", "diagnostic", err)
	}

	var planification models.Planification
	switch err := db.Where("intervention_id = ?", interventionID).First(&planification).Error; {
	case err == nil:
		phases.Planification = &planification
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return workflow.Phases{}, storeErr("load planification", "planification", err)
	}

	var controle models.ControleQualite
	switch err := db.Where("intervention_id = ?", interventionID).First(&controle).Error; {
	case err == nil:
		phases.ControleQualite = &controle
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return workflow.Phases{}, storeErr("load quality control", "controle_qualite", err)
	}

	return phases, nil
}

func (s *PhaseStore) loadDiagnosticLists(db *gorm.DB, diagnostic *models.Diagnostic) {
	for _, list := range diagnosticLists {
		var rows []models.DiagnosticItem
		values := []string{}
		if err := db.Table(list.table).Where("diagnostic_id = ?", diagnostic.ID).Order("position ASC").Find(&rows).Error; err != nil {
			logger.WithError(err, "phase_store").WithField("list", list.name).Warn("Failed to read diagnostic list, using empty list")
		} else {
			for _, r := range rows {
				values = append(values, r.Label)
			}
		}
		*list.field(diagnostic) = values
	}
}
