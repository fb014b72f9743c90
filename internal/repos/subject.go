package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/types"
)

type SubjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, subject *types.Subject) (*types.Subject, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Subject, error)
	GetByID(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) (*types.Subject, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) (*types.Subject, error)
	GetByNormalizedKey(ctx context.Context, tx *gorm.DB, key string) (*types.Subject, error)
	GetByNormalizedKeyForUpdate(ctx context.Context, tx *gorm.DB, key string) (*types.Subject, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, updates map[string]any) error
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{db: db, log: baseLog.With("repo", "SubjectRepo")}
}

func (r *subjectRepo) Create(ctx context.Context, tx *gorm.DB, subject *types.Subject) (*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(subject).Error; err != nil {
		return nil, err
	}
	return subject, nil
}

func (r *subjectRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var subjects []*types.Subject
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *subjectRepo) GetByID(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) (*types.Subject, error) {
	return r.getOne(ctx, tx, false, "id = ?", subjectID)
}

// GetByIDForUpdate loads the subject with a row lock so concurrent
// transactions serialize their read-modify-writes of the counters and the
// units column. Only meaningful inside a transaction.
func (r *subjectRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID) (*types.Subject, error) {
	return r.getOne(ctx, tx, true, "id = ?", subjectID)
}

func (r *subjectRepo) GetByNormalizedKey(ctx context.Context, tx *gorm.DB, key string) (*types.Subject, error) {
	return r.getOne(ctx, tx, false, "normalized_key = ?", key)
}

// GetByNormalizedKeyForUpdate is GetByNormalizedKey with a row lock; see
// GetByIDForUpdate.
func (r *subjectRepo) GetByNormalizedKeyForUpdate(ctx context.Context, tx *gorm.DB, key string) (*types.Subject, error) {
	return r.getOne(ctx, tx, true, "normalized_key = ?", key)
}

func (r *subjectRepo) getOne(ctx context.Context, tx *gorm.DB, lock bool, query string, args ...any) (*types.Subject, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var subject types.Subject
	if err := q.Where(query, args...).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) UpdateFields(ctx context.Context, tx *gorm.DB, subjectID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Subject{}).
		Where("id = ?", subjectID).
		Updates(updates).Error
}
