package app

import (
	"github.com/yungbote/studybridge-backend/internal/handlers"
	"github.com/yungbote/studybridge-backend/internal/logger"
)

type Handlers struct {
	Job     *handlers.JobHandler
	Library *handlers.LibraryHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Job:     handlers.NewJobHandler(log, services.Pipeline),
		Library: handlers.NewLibraryHandler(log, services.Library),
	}
}
