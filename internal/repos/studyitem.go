package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/types"
)

type StudyItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, items []*types.StudyItem) ([]*types.StudyItem, error)
	GetBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.StudyItem, error)
	GetByUnitKey(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, unitKey string) ([]*types.StudyItem, error)
	FullDeleteBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error
}

type studyItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyItemRepo(db *gorm.DB, baseLog *logger.Logger) StudyItemRepo {
	return &studyItemRepo{db: db, log: baseLog.With("repo", "StudyItemRepo")}
}

func (r *studyItemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.StudyItem) ([]*types.StudyItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.StudyItem{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *studyItemRepo) GetBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.StudyItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var items []*types.StudyItem
	if err := transaction.WithContext(ctx).
		Where("source_job_id = ?", jobID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *studyItemRepo) GetByUnitKey(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, unitKey string) ([]*types.StudyItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var items []*types.StudyItem
	if err := transaction.WithContext(ctx).
		Where("subject_id = ? AND unit_key = ?", subjectID, unitKey).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *studyItemRepo) FullDeleteBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("source_job_id = ?", jobID).
		Delete(&types.StudyItem{}).Error
}
