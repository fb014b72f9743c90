package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/types"
)

type RecallCardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cards []*types.RecallCard) ([]*types.RecallCard, error)
	GetBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.RecallCard, error)
	GetByUnitKey(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, unitKey string) ([]*types.RecallCard, error)
	FullDeleteBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error
}

type recallCardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecallCardRepo(db *gorm.DB, baseLog *logger.Logger) RecallCardRepo {
	return &recallCardRepo{db: db, log: baseLog.With("repo", "RecallCardRepo")}
}

func (r *recallCardRepo) Create(ctx context.Context, tx *gorm.DB, cards []*types.RecallCard) ([]*types.RecallCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(cards) == 0 {
		return []*types.RecallCard{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *recallCardRepo) GetBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.RecallCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cards []*types.RecallCard
	if err := transaction.WithContext(ctx).
		Where("source_job_id = ?", jobID).
		Order("created_at ASC").
		Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *recallCardRepo) GetByUnitKey(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, unitKey string) ([]*types.RecallCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cards []*types.RecallCard
	if err := transaction.WithContext(ctx).
		Where("subject_id = ? AND unit_key = ?", subjectID, unitKey).
		Order("created_at ASC").
		Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *recallCardRepo) FullDeleteBySourceJobID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("source_job_id = ?", jobID).
		Delete(&types.RecallCard{}).Error
}
