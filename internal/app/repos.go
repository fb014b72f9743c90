package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/repos"
)

type Repos struct {
	GenerationJob repos.GenerationJobRepo
	Subject       repos.SubjectRepo
	StudyItem     repos.StudyItemRepo
	RecallCard    repos.RecallCardRepo
	Tag           repos.TagRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		GenerationJob: repos.NewGenerationJobRepo(db, log),
		Subject:       repos.NewSubjectRepo(db, log),
		StudyItem:     repos.NewStudyItemRepo(db, log),
		RecallCard:    repos.NewRecallCardRepo(db, log),
		Tag:           repos.NewTagRepo(db, log),
	}
}
