package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/chunker"
	"github.com/yungbote/studybridge-backend/internal/clients/gcp"
	redisclient "github.com/yungbote/studybridge-backend/internal/clients/redis"
	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/repos"
	"github.com/yungbote/studybridge-backend/internal/types"
)

// planClipChars bounds how much source text the planning prompt carries. A
// prefix is enough to size the material; the full text goes to generation.
const planClipChars = 12000

// OCRProvider extracts page text from an uploaded document. Satisfied by
// gcp.VisionOCR.
type OCRProvider interface {
	RecognizeDocument(ctx context.Context, gcsSourceURI string, mimeType string) ([]gcp.OCRPage, error)
}

// TransitionPublisher announces job status changes. Satisfied by
// redisclient.JobBus; a nil publisher is tolerated so tests and one-shot
// tools can run without redis.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, evt redisclient.JobTransition) error
}

// PipelineService drives a generation job through its stages. Every stage
// checks the job's status before acting and fails with a precondition error
// when the job is not in an expected state, so redundant event deliveries
// and concurrent operators cannot corrupt a job.
type PipelineService interface {
	CreateJob(ctx context.Context, in CreateJobInput) (*types.GenerationJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.GenerationJob, error)
	ListJobs(ctx context.Context, userID uuid.UUID) ([]*types.GenerationJob, error)

	Ingest(ctx context.Context, jobID uuid.UUID) error
	SplitExtracted(ctx context.Context, jobID uuid.UUID) error
	Plan(ctx context.Context, jobID uuid.UUID) error
	StartGeneration(ctx context.Context, jobID uuid.UUID) error
	SuggestAssignment(ctx context.Context, jobID uuid.UUID, subjectScope string) error

	Approve(ctx context.Context, jobID, approverID uuid.UUID, pick types.AssignmentSuggestion) error

	Reset(ctx context.Context, jobID uuid.UUID) error
	Reassign(ctx context.Context, jobID uuid.UUID) error
	PrepareForRegeneration(ctx context.Context, jobID uuid.UUID) error
	Archive(ctx context.Context, jobID uuid.UUID) error
}

// CreateJobInput describes a new job. Exactly one of FileData or SourceText
// is set depending on SourceKind.
type CreateJobInput struct {
	UserID     uuid.UUID
	Variant    types.JobVariant
	SourceName string
	SourceKind types.SourceKind
	FileData   []byte
}

type pipelineService struct {
	db  *gorm.DB
	log *logger.Logger

	jobRepo     repos.GenerationJobRepo
	subjectRepo repos.SubjectRepo
	itemRepo    repos.StudyItemRepo
	cardRepo    repos.RecallCardRepo
	tagRepo     repos.TagRepo

	bucket BucketService
	ocr    OCRProvider
	ai     AIClient
	bus    TransitionPublisher

	segmentBudget int
}

func NewPipelineService(
	db *gorm.DB,
	log *logger.Logger,
	jobRepo repos.GenerationJobRepo,
	subjectRepo repos.SubjectRepo,
	itemRepo repos.StudyItemRepo,
	cardRepo repos.RecallCardRepo,
	tagRepo repos.TagRepo,
	bucket BucketService,
	ocr OCRProvider,
	ai AIClient,
	bus TransitionPublisher,
) PipelineService {
	return &pipelineService{
		db:            db,
		log:           log.With("service", "pipeline"),
		jobRepo:       jobRepo,
		subjectRepo:   subjectRepo,
		itemRepo:      itemRepo,
		cardRepo:      cardRepo,
		tagRepo:       tagRepo,
		bucket:        bucket,
		ocr:           ocr,
		ai:            ai,
		bus:           bus,
		segmentBudget: chunker.DefaultSegmentBudget,
	}
}

func (ps *pipelineService) CreateJob(ctx context.Context, in CreateJobInput) (*types.GenerationJob, error) {
	if in.SourceName == "" {
		return nil, fmt.Errorf("source name is required: %w", apperr.ErrInvalidInput)
	}
	switch in.SourceKind {
	case types.SourceKindPDF, types.SourceKindText:
	default:
		return nil, fmt.Errorf("unsupported source kind %q: %w", in.SourceKind, apperr.ErrInvalidInput)
	}
	switch in.Variant {
	case types.VariantExtractionFirst, types.VariantDirectGeneration:
	default:
		return nil, fmt.Errorf("unknown job variant %q: %w", in.Variant, apperr.ErrInvalidInput)
	}
	if len(in.FileData) == 0 {
		return nil, fmt.Errorf("empty upload: %w", apperr.ErrInvalidInput)
	}

	key := fmt.Sprintf("users/%s/%s", in.UserID, in.SourceName)
	if err := ps.bucket.UploadFile(ctx, key, bytes.NewReader(in.FileData)); err != nil {
		return nil, fmt.Errorf("failed to upload source: %w", err)
	}

	job := &types.GenerationJob{
		UserID:     in.UserID,
		Variant:    in.Variant,
		Status:     types.JobStatusIngesting,
		SourceName: in.SourceName,
		SourceKind: in.SourceKind,
		StorageKey: key,
	}
	if _, err := ps.jobRepo.Create(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	ps.publish(ctx, job, "", types.JobStatusIngesting)
	return job, nil
}

func (ps *pipelineService) GetJob(ctx context.Context, jobID uuid.UUID) (*types.GenerationJob, error) {
	return ps.jobRepo.GetByID(ctx, nil, jobID)
}

func (ps *pipelineService) ListJobs(ctx context.Context, userID uuid.UUID) ([]*types.GenerationJob, error) {
	return ps.jobRepo.GetByUserID(ctx, nil, userID)
}

// loadJob fetches a job and verifies it is in one of the expected states.
func (ps *pipelineService) loadJob(ctx context.Context, jobID uuid.UUID, expected ...types.JobStatus) (*types.GenerationJob, error) {
	job, err := ps.jobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	if len(expected) == 0 {
		return job, nil
	}
	for _, s := range expected {
		if job.Status == s {
			return job, nil
		}
	}
	names := make([]string, 0, len(expected))
	for _, s := range expected {
		names = append(names, string(s))
	}
	return nil, &apperr.PreconditionError{JobID: jobID, Expected: names, Actual: string(job.Status)}
}

// transition moves a job to a new status, writing updates in the same
// statement. The write is conditional on the status the job was loaded
// with; losing that race surfaces as a precondition error rather than a
// silent overwrite.
func (ps *pipelineService) transition(ctx context.Context, job *types.GenerationJob, to types.JobStatus, updates map[string]any) error {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	ok, err := ps.jobRepo.UpdateFieldsWhereStatus(ctx, nil, job.ID, job.Status, updates)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	if !ok {
		return &apperr.PreconditionError{JobID: job.ID, Expected: []string{string(job.Status)}, Actual: "changed concurrently"}
	}
	ps.publish(ctx, job, job.Status, to)
	job.Status = to
	return nil
}

func (ps *pipelineService) publish(ctx context.Context, job *types.GenerationJob, from, to types.JobStatus) {
	if ps.bus == nil {
		return
	}
	evt := redisclient.JobTransition{
		JobID:   job.ID,
		UserID:  job.UserID,
		Variant: job.Variant,
		From:    from,
		To:      to,
	}
	if err := ps.bus.PublishTransition(ctx, evt); err != nil {
		ps.log.Warn("failed to publish job transition", "job_id", job.ID, "to", to, "error", err)
	}
}

// failJob records a stage failure on the job and moves it to the given
// failure status. Prior progress (source text, staged content, checkpoints)
// is left in place so rollback operations can resurrect the job.
func (ps *pipelineService) failJob(ctx context.Context, job *types.GenerationJob, to types.JobStatus, stage string, cause error) {
	entry := fmt.Sprintf("%s: %s (%s)", stage, cause.Error(), time.Now().UTC().Format(time.RFC3339))
	log, err := job.ErrorLogList()
	if err != nil {
		ps.log.Warn("failed to decode job error log", "job_id", job.ID, "error", err)
		log = nil
	}
	log = append(log, entry)
	updates := map[string]any{
		"status":    to,
		"error_log": types.MustJSON(log),
	}
	if _, uerr := ps.jobRepo.UpdateFieldsWhereStatus(ctx, nil, job.ID, job.Status, updates); uerr != nil {
		ps.log.Error("failed to record job failure", "job_id", job.ID, "stage", stage, "error", uerr)
		return
	}
	ps.publish(ctx, job, job.Status, to)
	job.Status = to
}

// recordError appends a failure to the job's error log without changing its
// status, for stages that remain retryable from their precondition state.
func (ps *pipelineService) recordError(ctx context.Context, job *types.GenerationJob, stage string, cause error) {
	entry := fmt.Sprintf("%s: %s (%s)", stage, cause.Error(), time.Now().UTC().Format(time.RFC3339))
	log, err := job.ErrorLogList()
	if err != nil {
		log = nil
	}
	log = append(log, entry)
	if err := ps.jobRepo.UpdateFields(ctx, nil, job.ID, map[string]any{"error_log": types.MustJSON(log)}); err != nil {
		ps.log.Error("failed to append job error log", "job_id", job.ID, "stage", stage, "error", err)
	}
}
