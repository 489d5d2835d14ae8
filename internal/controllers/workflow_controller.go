package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/gmao/backend/internal/logger"
	"github.com/gmao/backend/internal/models"
	"github.com/gmao/backend/internal/services"
	"github.com/gmao/backend/internal/workflow"
)

type WorkflowController struct {
	service    *services.WorkflowService
	production bool
}

func NewWorkflowController(service *services.WorkflowService, production bool) *WorkflowController {
	useJSONFieldNames()
	return &WorkflowController{service: service, production: production}
}

type CreateInterventionRequest struct {
	Date        string `json:"date" binding:"required"`
	Description string `json:"description"`
	Urgent      bool   `json:"urgent"`
	EquipmentID uint   `json:"equipementId" binding:"required"`
}

type DiagnosticRequest struct {
	TravailRequis    []string `json:"travailRequis"`
	BesoinPDR        []string `json:"besoinPDR"`
	ChargesRealisees []string `json:"chargesRealisees"`
}

type PlanificationRequest struct {
	CapaciteExecution *int `json:"capaciteExecution" binding:"omitempty,min=0"`
	UrgencePrise      bool `json:"urgencePrise"`
	DisponibilitePDR  bool `json:"disponibilitePDR"`
}

type QualityControlRequest struct {
	ResultatsEssais   string `json:"resultatsEssais"`
	AnalyseVibratoire string `json:"analyseVibratoire"`
}

type StatusRequest struct {
	Statut string `json:"statut" binding:"required"`
}

type RapportRequest struct {
	Contenu string `json:"contenu" binding:"required"`
}

// CreateIntervention registers a new intervention (intake).
func (wc *WorkflowController) CreateIntervention(c *gin.Context) {
	var req CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		wc.respondError(c, bindingError(err))
		return
	}

	date, err := models.ParseDate(req.Date)
	if err != nil {
		wc.respondError(c, services.NewValidationError("date", "expected YYYY-MM-DD"))
		return
	}

	in := services.NewIntervention{
		Date:        date.Time,
		Description: req.Description,
		Urgent:      req.Urgent,
		EquipmentID: req.EquipmentID,
	}
	if userID, ok := currentUserID(c); ok {
		in.CreatedByID = &userID
	}

	intervention, err := wc.service.CreateIntervention(c.Request.Context(), in)
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": intervention})
}

// GetWorkflow returns the workflow view of an intervention.
func (wc *WorkflowController) GetWorkflow(c *gin.Context) {
	id, ok := wc.interventionID(c)
	if !ok {
		return
	}

	view, err := wc.service.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}

func (wc *WorkflowController) SubmitDiagnostic(c *gin.Context) {
	id, ok := wc.interventionID(c)
	if !ok {
		return
	}

	var req DiagnosticRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		wc.respondError(c, bindingError(err))
		return
	}

	diagnostic, err := wc.service.SubmitDiagnostic(c.Request.Context(), id, services.DiagnosticInput{
		TravailRequis:    req.TravailRequis,
		BesoinPDR:        req.BesoinPDR,
		ChargesRealisees: req.ChargesRealisees,
	})
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": diagnostic})
}

func (wc *WorkflowController) SubmitPlanification(c *gin.Context) {
	id, ok := wc.interventionID(c)
	if !ok {
		return
	}

	var req PlanificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		wc.respondError(c, bindingError(err))
		return
	}

	planification, err := wc.service.SubmitPlanification(c.Request.Context(), id, services.PlanificationInput{
		CapaciteExecution: req.CapaciteExecution,
		UrgencePrise:      req.UrgencePrise,
		DisponibilitePDR:  req.DisponibilitePDR,
	})
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": planification})
}

func (wc *WorkflowController) SubmitQualityControl(c *gin.Context) {
	id, ok := wc.interventionID(c)
	if !ok {
		return
	}

	var req QualityControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		wc.respondError(c, bindingError(err))
		return
	}

	controle, err := wc.service.SubmitQualityControl(c.Request.Context(), id, services.QualityControlInput{
		ResultatsEssais:   req.ResultatsEssais,
		AnalyseVibratoire: req.AnalyseVibratoire,
	})
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": controle})
}

// UpdateStatus applies a user-requested transition.
func (wc *WorkflowController) UpdateStatus(c *gin.Context) {
	id, ok := wc.interventionID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		wc.respondError(c, bindingError(err))
		return
	}

	target, err := models.ParseWireStatus(req.Statut)
	if err != nil {
		wc.respondError(c, services.NewValidationError("statut", "unknown status "+req.Statut))
		return
	}

	intervention, err := wc.service.Transition(c.Request.Context(), id, target)
	if err != nil {
		wc.respondError(c, err)
		return
	}

	if userID, ok := currentUserID(c); ok {
		logger.WithUser(userID).WithFields(map[string]interface{}{
			"intervention_id": id,
			"statut":          target.Wire(),
		}).Info("Intervention status updated")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": intervention})
}

func (wc *WorkflowController) ListRapports(c *gin.Context) {
	id, ok := wc.interventionID(c)
	if !ok {
		return
	}

	rapports, err := wc.service.ListRapports(c.Request.Context(), id)
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rapports})
}

func (wc *WorkflowController) AddRapport(c *gin.Context) {
	id, ok := wc.interventionID(c)
	if !ok {
		return
	}

	var req RapportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		wc.respondError(c, bindingError(err))
		return
	}

	rapport, err := wc.service.AddRapport(c.Request.Context(), id, req.Contenu)
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rapport})
}

func (wc *WorkflowController) ValidateRapport(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		wc.respondError(c, services.NewValidationError("id", "invalid rapport id"))
		return
	}

	rapport, err := wc.service.ValidateRapport(c.Request.Context(), id)
	if err != nil {
		wc.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rapport})
}

func (wc *WorkflowController) interventionID(c *gin.Context) (uint, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		wc.respondError(c, services.NewValidationError("id", "invalid intervention id"))
		return 0, false
	}
	return id, true
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// respondError maps the service error taxonomy onto HTTP responses.
func (wc *WorkflowController) respondError(c *gin.Context, err error) {
	var (
		notFound   *services.NotFoundError
		validation *services.ValidationError
		invalid    *workflow.InvalidTransitionError
		conflict   *services.ConflictError
	)

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request data", "details": validation.Fields})
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{
			"success":            false,
			"error":              err.Error(),
			"currentStatus":      invalid.Current,
			"allowedTransitions": invalid.Allowed,
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Concurrent update, please retry"})
	default:
		logger.WithError(err, "workflow_controller").WithField("path", c.Request.URL.Path).Error("Request failed")
		message := err.Error()
		if wc.production {
			message = "Internal server error"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": message})
	}
}

// bindingError turns a gin binding failure into field-level details.
func bindingError(err error) *services.ValidationError {
	fields := map[string]string{}

	var (
		validationErrs validator.ValidationErrors
		typeErr        *json.UnmarshalTypeError
		syntaxErr      *json.SyntaxError
	)
	switch {
	case errors.As(err, &validationErrs):
		for _, fe := range validationErrs {
			fields[fe.Field()] = fe.Tag()
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		fields[field] = "expected " + typeErr.Type.String()
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		fields["body"] = "malformed JSON"
	case errors.Is(err, io.EOF):
		fields["body"] = "required"
	default:
		fields["body"] = err.Error()
	}

	return &services.ValidationError{Fields: fields}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report JSON field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
