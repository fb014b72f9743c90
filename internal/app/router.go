package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybridge-backend/internal/server"
)

func wireRouter(handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware: middleware.Auth,
		JobHandler:     handlers.Job,
		LibraryHandler: handlers.Library,
	})
}
