package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/repos"
	"github.com/yungbote/studybridge-backend/internal/taxonomy"
	"github.com/yungbote/studybridge-backend/internal/types"
)

// SubjectView is a subject with its unit list decoded out of the tagged
// storage representation, so API consumers never see the format split.
type SubjectView struct {
	Subject *types.Subject            `json:"subject"`
	Units   []taxonomy.StructuredUnit `json:"units"`
}

// LibraryService is the read side of the committed taxonomy: subjects,
// units, and the approved content under them.
type LibraryService interface {
	ListSubjects(ctx context.Context) ([]SubjectView, error)
	GetSubject(ctx context.Context, subjectID uuid.UUID) (*SubjectView, error)
	ListUnitItems(ctx context.Context, subjectID uuid.UUID, unitName string) ([]*types.StudyItem, error)
	ListUnitCards(ctx context.Context, subjectID uuid.UUID, unitName string) ([]*types.RecallCard, error)
	ListTags(ctx context.Context) ([]*types.Tag, error)
}

type libraryService struct {
	log         *logger.Logger
	subjectRepo repos.SubjectRepo
	itemRepo    repos.StudyItemRepo
	cardRepo    repos.RecallCardRepo
	tagRepo     repos.TagRepo
}

func NewLibraryService(
	log *logger.Logger,
	subjectRepo repos.SubjectRepo,
	itemRepo repos.StudyItemRepo,
	cardRepo repos.RecallCardRepo,
	tagRepo repos.TagRepo,
) LibraryService {
	return &libraryService{
		log:         log.With("service", "library"),
		subjectRepo: subjectRepo,
		itemRepo:    itemRepo,
		cardRepo:    cardRepo,
		tagRepo:     tagRepo,
	}
}

func (ls *libraryService) ListSubjects(ctx context.Context) ([]SubjectView, error) {
	subjects, err := ls.subjectRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	views := make([]SubjectView, 0, len(subjects))
	for _, s := range subjects {
		v, verr := viewOf(s)
		if verr != nil {
			return nil, verr
		}
		views = append(views, *v)
	}
	return views, nil
}

func (ls *libraryService) GetSubject(ctx context.Context, subjectID uuid.UUID) (*SubjectView, error) {
	subject, err := ls.subjectRepo.GetByID(ctx, nil, subjectID)
	if err != nil {
		return nil, err
	}
	return viewOf(subject)
}

func (ls *libraryService) ListUnitItems(ctx context.Context, subjectID uuid.UUID, unitName string) ([]*types.StudyItem, error) {
	return ls.itemRepo.GetByUnitKey(ctx, nil, subjectID, taxonomy.NormalizeKey(unitName))
}

func (ls *libraryService) ListUnitCards(ctx context.Context, subjectID uuid.UUID, unitName string) ([]*types.RecallCard, error) {
	return ls.cardRepo.GetByUnitKey(ctx, nil, subjectID, taxonomy.NormalizeKey(unitName))
}

func (ls *libraryService) ListTags(ctx context.Context) ([]*types.Tag, error) {
	return ls.tagRepo.GetAll(ctx, nil)
}

// viewOf decodes a subject's units into the structured shape. Plain name
// lists surface as structured records with zero counts.
func viewOf(s *types.Subject) (*SubjectView, error) {
	ul, err := taxonomy.DecodeUnits(s.UnitsFormat, s.Units)
	if err != nil {
		return nil, err
	}
	if ul.Format == types.UnitsFormatStructured {
		return &SubjectView{Subject: s, Units: ul.Structured}, nil
	}
	units := make([]taxonomy.StructuredUnit, 0, len(ul.Names))
	for _, n := range ul.Names {
		units = append(units, taxonomy.StructuredUnit{Name: n, Key: taxonomy.NormalizeKey(n)})
	}
	return &SubjectView{Subject: s, Units: units}, nil
}
