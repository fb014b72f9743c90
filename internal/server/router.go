package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybridge-backend/internal/handlers"
	"github.com/yungbote/studybridge-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	JobHandler     *handlers.JobHandler
	LibraryHandler *handlers.LibraryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.Healthcheck)

	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Jobs
	protected.POST("/jobs", cfg.JobHandler.Create)
	protected.GET("/jobs", cfg.JobHandler.List)
	protected.GET("/jobs/:id", cfg.JobHandler.Get)
	protected.POST("/jobs/:id/ingest", cfg.JobHandler.Ingest)
	protected.POST("/jobs/:id/split", cfg.JobHandler.Split)
	protected.POST("/jobs/:id/plan", cfg.JobHandler.Plan)
	protected.POST("/jobs/:id/generate", cfg.JobHandler.Generate)
	protected.POST("/jobs/:id/suggest", cfg.JobHandler.Suggest)

	// Library
	protected.GET("/subjects", cfg.LibraryHandler.ListSubjects)
	protected.GET("/subjects/:id", cfg.LibraryHandler.GetSubject)
	protected.GET("/subjects/:id/units/:unit/items", cfg.LibraryHandler.ListUnitItems)
	protected.GET("/subjects/:id/units/:unit/cards", cfg.LibraryHandler.ListUnitCards)
	protected.GET("/tags", cfg.LibraryHandler.ListTags)

	// Approval and rollback require an administrator.
	admin := protected.Group("/")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	admin.POST("/jobs/:id/approve", cfg.JobHandler.Approve)
	admin.POST("/jobs/:id/reset", cfg.JobHandler.Reset)
	admin.POST("/jobs/:id/reassign", cfg.JobHandler.Reassign)
	admin.POST("/jobs/:id/regenerate", cfg.JobHandler.Regenerate)
	admin.POST("/jobs/:id/archive", cfg.JobHandler.Archive)

	return router
}
