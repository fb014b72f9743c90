package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/taxonomy"
	"github.com/yungbote/studybridge-backend/internal/types"
)

type TagRepo interface {
	// Upsert registers a tag by its normalized key, bumping usage_count on
	// repeats. Safe to call with the same tag any number of times.
	Upsert(ctx context.Context, tx *gorm.DB, displayName string) error
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Tag, error)
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{db: db, log: baseLog.With("repo", "TagRepo")}
}

func (r *tagRepo) Upsert(ctx context.Context, tx *gorm.DB, displayName string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	key := taxonomy.NormalizeKey(displayName)
	if key == "" {
		return nil
	}
	now := time.Now()
	tag := types.Tag{
		ID:            uuid.New(),
		NormalizedKey: key,
		DisplayName:   displayName,
		UsageCount:    1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return transaction.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "normalized_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"usage_count": gorm.Expr("tag.usage_count + 1"),
			"updated_at":  now,
		}),
	}).Create(&tag).Error
}

func (r *tagRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Tag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var tags []*types.Tag
	if err := transaction.WithContext(ctx).Order("normalized_key ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
