package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"payables-consolidation-backend/internal/config"
	handler "payables-consolidation-backend/internal/handlers"
	"payables-consolidation-backend/internal/repository"
	service "payables-consolidation-backend/internal/services/consolidation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, opts config.Options) {
	runRepo := repository.NewRunRepository(db)
	rowRepo := repository.NewConsolidatedRowRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	consolidationService := service.NewService(
		runRepo,
		rowRepo,
		historyRepo,
		opts.Matching,
		opts.Filter,
		opts.Normalizer,
		config.GetLogger(),
	)

	consolidationHandler := handler.NewConsolidationHandler(consolidationService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	consolidation := api.Group("/consolidation")
	consolidation.POST("/run", consolidationHandler.Run)
	consolidation.GET("/:runId", consolidationHandler.GetRun)
	consolidation.GET("/:runId/entries", consolidationHandler.ListEntries)
	consolidation.GET("/:runId/artifact", consolidationHandler.Artifact)
	consolidation.GET("/:runId/diagnostics", consolidationHandler.Diagnostics)
}
