package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/studybridge-backend/internal/clients/gcp"
	redisclient "github.com/yungbote/studybridge-backend/internal/clients/redis"
	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/services"
	"github.com/yungbote/studybridge-backend/internal/utils"
)

type Services struct {
	Auth     services.AuthService
	Bucket   services.BucketService
	AI       services.AIClient
	Pipeline services.PipelineService
	Library  services.LibraryService

	OCR gcp.VisionOCR
	Bus redisclient.JobBus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	bucket, err := services.NewBucketService(log)
	if err != nil {
		return Services{}, fmt.Errorf("init bucket service: %w", err)
	}

	ocrPrefix := utils.GetEnv("VISION_OUTPUT_PREFIX", "ocr-output", log)
	ocr, err := gcp.NewVisionOCR(log, ocrPrefix)
	if err != nil {
		return Services{}, fmt.Errorf("init vision ocr: %w", err)
	}

	ai, err := services.NewAIClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init ai client: %w", err)
	}

	auth, err := services.NewAuthService(log, cfg.JWTSecretKey)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	// Redis is optional: without it jobs still run, driven by explicit
	// stage calls instead of transition events.
	bus, err := redisclient.NewJobBus(log)
	if err != nil {
		log.Warn("Job bus unavailable, running without auto-advance", "error", err)
		bus = nil
	}

	var publisher services.TransitionPublisher
	if bus != nil {
		publisher = bus
	}
	pipeline := services.NewPipelineService(
		db, log,
		r.GenerationJob, r.Subject, r.StudyItem, r.RecallCard, r.Tag,
		bucket, ocr, ai, publisher,
	)
	library := services.NewLibraryService(log, r.Subject, r.StudyItem, r.RecallCard, r.Tag)

	return Services{
		Auth:     auth,
		Bucket:   bucket,
		AI:       ai,
		Pipeline: pipeline,
		Library:  library,
		OCR:      ocr,
		Bus:      bus,
	}, nil
}
