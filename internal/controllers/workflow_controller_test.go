package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gmao/backend/internal/models"
	"github.com/gmao/backend/internal/services"
)

type apiResponse struct {
	Success            bool              `json:"success"`
	Data               json.RawMessage   `json:"data"`
	Error              string            `json:"error"`
	Details            map[string]string `json:"details"`
	CurrentStatus      string            `json:"currentStatus"`
	AllowedTransitions []string          `json:"allowedTransitions"`
}

func setupControllerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func setupWorkflowRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupControllerTestDB(t)
	wc := NewWorkflowController(services.NewWorkflowService(db), false)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", uint(7))
		c.Next()
	})
	r.POST("/interventions", wc.CreateIntervention)
	r.GET("/interventions/:id/workflow", wc.GetWorkflow)
	r.POST("/interventions/:id/diagnostic", wc.SubmitDiagnostic)
	r.PUT("/interventions/:id/planification", wc.SubmitPlanification)
	r.POST("/interventions/:id/controle-qualite", wc.SubmitQualityControl)
	r.PUT("/interventions/:id/status", wc.UpdateStatus)
	r.GET("/interventions/:id/rapports", wc.ListRapports)
	r.POST("/interventions/:id/rapports", wc.AddRapport)
	r.PUT("/rapports/:id/validate", wc.ValidateRapport)
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func createIntervention(t *testing.T, r *gin.Engine, db *gorm.DB) uint {
	t.Helper()
	equipment := models.Equipment{Designation: "Compresseur C-12"}
	require.NoError(t, db.Create(&equipment).Error)

	code, resp := doJSON(t, r, http.MethodPost, "/interventions",
		fmt.Sprintf(`{"date":"2025-04-02","description":"Fuite d'huile","equipementId":%d}`, equipment.ID))
	require.Equal(t, http.StatusCreated, code, resp.Error)

	var created struct {
		ID         uint   `json:"id"`
		Date       string `json:"date"`
		Statut     string `json:"statut"`
		CreateurID *uint  `json:"createurId"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "2025-04-02", created.Date)
	assert.Equal(t, "PLANIFIEE", created.Statut)
	require.NotNil(t, created.CreateurID)
	assert.Equal(t, uint(7), *created.CreateurID)
	return created.ID
}

type workflowPayload struct {
	Statut   string `json:"statut"`
	Progress struct {
		Completed  int `json:"completed"`
		Total      int `json:"total"`
		Percentage int `json:"percentage"`
	} `json:"progress"`
	CanAdvance         bool     `json:"canAdvance"`
	AllowedTransitions []string `json:"allowedTransitions"`
	NextActions        []string `json:"nextActions"`
}

func getWorkflow(t *testing.T, r *gin.Engine, id uint) workflowPayload {
	t.Helper()
	code, resp := doJSON(t, r, http.MethodGet, fmt.Sprintf("/interventions/%d/workflow", id), "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	var payload workflowPayload
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	return payload
}

func TestWorkflowEndpointsHappyPath(t *testing.T) {
	r, db := setupWorkflowRouter(t)
	id := createIntervention(t, r, db)

	view := getWorkflow(t, r, id)
	assert.Equal(t, "PLANIFIEE", view.Statut)
	assert.ElementsMatch(t, []string{"EN_ATTENTE_PDR", "EN_COURS", "ANNULEE"}, view.AllowedTransitions)

	code, resp := doJSON(t, r, http.MethodPost, fmt.Sprintf("/interventions/%d/diagnostic", id),
		`{"travailRequis":["Changer joint"],"besoinPDR":["Joint torique 40mm"],"chargesRealisees":[]}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "EN_ATTENTE_PDR", getWorkflow(t, r, id).Statut)

	code, resp = doJSON(t, r, http.MethodPut, fmt.Sprintf("/interventions/%d/planification", id),
		`{"capaciteExecution":3,"urgencePrise":false,"disponibilitePDR":true}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "EN_COURS", getWorkflow(t, r, id).Statut)

	code, resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/interventions/%d/controle-qualite", id),
		`{"resultatsEssais":"Pression stable 6 bar","analyseVibratoire":""}`)
	require.Equal(t, http.StatusOK, code, resp.Error)

	code, resp = doJSON(t, r, http.MethodPut, fmt.Sprintf("/interventions/%d/status", id), `{"statut":"TERMINEE"}`)
	require.Equal(t, http.StatusOK, code, resp.Error)

	view = getWorkflow(t, r, id)
	assert.Equal(t, "TERMINEE", view.Statut)
	assert.Equal(t, 100, view.Progress.Percentage)
	assert.Empty(t, view.AllowedTransitions)
	assert.False(t, view.CanAdvance)
}

func TestWorkflowEndpointsNotFound(t *testing.T) {
	r, _ := setupWorkflowRouter(t)

	paths := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/interventions/999/workflow", ""},
		{http.MethodPost, "/interventions/999/diagnostic", `{"travailRequis":["x"]}`},
		{http.MethodPut, "/interventions/999/planification", `{"disponibilitePDR":true}`},
		{http.MethodPost, "/interventions/999/controle-qualite", `{"resultatsEssais":"ok"}`},
		{http.MethodPut, "/interventions/999/status", `{"statut":"EN_COURS"}`},
		{http.MethodPut, "/rapports/999/validate", ""},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			code, resp := doJSON(t, r, p.method, p.path, p.body)
			assert.Equal(t, http.StatusNotFound, code)
			assert.False(t, resp.Success)
		})
	}
}

func TestWorkflowEndpointsInvalidInput(t *testing.T) {
	r, db := setupWorkflowRouter(t)
	id := createIntervention(t, r, db)

	tests := []struct {
		name  string
		path  string
		body  string
		field string
	}{
		{"list is not an array", "/interventions/%d/diagnostic", `{"besoinPDR":"Roulement"}`, "besoinPDR"},
		{"negative capacity", "/interventions/%d/planification", `{"capaciteExecution":-1}`, "capaciteExecution"},
		{"malformed body", "/interventions/%d/diagnostic", `{"travailRequis":`, "body"},
		{"unknown status", "/interventions/%d/status", `{"statut":"EN_RETARD"}`, "statut"},
		{"missing status", "/interventions/%d/status", `{}`, "statut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodPost
			if strings.HasSuffix(tt.path, "planification") || strings.HasSuffix(tt.path, "status") {
				method = http.MethodPut
			}
			code, resp := doJSON(t, r, method, fmt.Sprintf(tt.path, id), tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Contains(t, resp.Details, tt.field)
		})
	}

	code, resp := doJSON(t, r, http.MethodGet, "/interventions/abc/workflow", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Details, "id")

	assert.Equal(t, "PLANIFIEE", getWorkflow(t, r, id).Statut, "rejected input leaves the status untouched")
}

func TestUpdateStatusRejectedTransition(t *testing.T) {
	r, db := setupWorkflowRouter(t)
	id := createIntervention(t, r, db)

	code, resp := doJSON(t, r, http.MethodPut, fmt.Sprintf("/interventions/%d/status", id), `{"statut":"TERMINEE"}`)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PLANIFIEE", resp.CurrentStatus)
	assert.ElementsMatch(t, []string{"EN_ATTENTE_PDR", "EN_COURS", "ANNULEE"}, resp.AllowedTransitions)
	assert.Contains(t, resp.Error, "TERMINEE")
}

func TestRapportEndpoints(t *testing.T) {
	r, db := setupWorkflowRouter(t)
	id := createIntervention(t, r, db)

	code, resp := doJSON(t, r, http.MethodPost, fmt.Sprintf("/interventions/%d/rapports", id), `{"contenu":"Joint remplacé, essai concluant"}`)
	require.Equal(t, http.StatusCreated, code, resp.Error)
	var rapport models.Rapport
	require.NoError(t, json.Unmarshal(resp.Data, &rapport))
	assert.False(t, rapport.Valide)

	code, resp = doJSON(t, r, http.MethodPut, fmt.Sprintf("/rapports/%d/validate", rapport.ID), "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Data, &rapport))
	assert.True(t, rapport.Valide)

	code, resp = doJSON(t, r, http.MethodGet, fmt.Sprintf("/interventions/%d/rapports", id), "")
	require.Equal(t, http.StatusOK, code)
	var rapports []models.Rapport
	require.NoError(t, json.Unmarshal(resp.Data, &rapports))
	assert.Len(t, rapports, 1)

	code, resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/interventions/%d/rapports", id), `{"contenu":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Details, "contenu")
}

func TestCreateInterventionValidation(t *testing.T) {
	r, _ := setupWorkflowRouter(t)

	code, resp := doJSON(t, r, http.MethodPost, "/interventions", `{"date":"02/04/2025","equipementId":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Details, "date")

	code, resp = doJSON(t, r, http.MethodPost, "/interventions", `{"date":"2025-04-02"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Details, "equipementId")

	code, _ = doJSON(t, r, http.MethodPost, "/interventions", `{"date":"2025-04-02","equipementId":404}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConcurrentWriteIsConflict(t *testing.T) {
	r, db := setupWorkflowRouter(t)
	id := createIntervention(t, r, db)

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:duplicate_planification", func(tx *gorm.DB) {
		if tx.Statement.Table == "planifications" {
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	code, resp := doJSON(t, r, http.MethodPut, fmt.Sprintf("/interventions/%d/planification", id), `{"disponibilitePDR":true}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
