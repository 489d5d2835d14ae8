package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gmao/backend/internal/config"
	"github.com/gmao/backend/internal/controllers"
	"github.com/gmao/backend/internal/db"
	"github.com/gmao/backend/internal/metrics"
	"github.com/gmao/backend/internal/middleware"
	"github.com/gmao/backend/internal/services"
)

const version = "1.0.0"

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, conn *gorm.DB, cfg *config.Config) {
	workflowService := services.NewWorkflowService(conn)

	authController := controllers.NewAuthController(conn, cfg.JWTSecret)
	workflowController := controllers.NewWorkflowController(workflowService, cfg.Production())

	r.GET("/health", healthHandler(conn))
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
		{
			protected.POST("/auth/refresh", authController.RefreshToken)

			interventions := protected.Group("/interventions")
			{
				interventions.POST("", workflowController.CreateIntervention)
				interventions.GET("/:id/workflow", workflowController.GetWorkflow)
				interventions.POST("/:id/diagnostic", workflowController.SubmitDiagnostic)
				interventions.PUT("/:id/planification", workflowController.SubmitPlanification)
				interventions.POST("/:id/controle-qualite", workflowController.SubmitQualityControl)
				interventions.PUT("/:id/status", workflowController.UpdateStatus)
				interventions.GET("/:id/rapports", workflowController.ListRapports)
				interventions.POST("/:id/rapports", workflowController.AddRapport)
			}

			protected.PUT("/rapports/:id/validate", workflowController.ValidateRapport)
		}
	}
}

func healthHandler(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := gin.H{"status": "ok"}
		status, code := "ok", http.StatusOK
		if err := db.Ping(conn); err != nil {
			dbStatus = gin.H{"status": "error", "error": err.Error()}
			status, code = "error", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
			"services": gin.H{
				"database": dbStatus,
			},
		})
	}
}
