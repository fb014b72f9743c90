package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/studybridge-backend/internal/clients/gcp"
	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/repos"
	"github.com/yungbote/studybridge-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.GenerationJob{},
		&types.Subject{},
		&types.StudyItem{},
		&types.RecallCard{},
		&types.Tag{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// fakeAI replays scripted responses in order; an entry pushed with pushErr
// fails that call instead.
type fakeAI struct {
	mu        sync.Mutex
	responses []any // string or error
	calls     []string
}

func (f *fakeAI) push(resp string)   { f.responses = append(f.responses, resp) }
func (f *fakeAI) pushErr(err error)  { f.responses = append(f.responses, err) }
func (f *fakeAI) callCount() int     { f.mu.Lock(); defer f.mu.Unlock(); return len(f.calls) }
func (f *fakeAI) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeAI) Generate(_ context.Context, _ string, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, user)
	if len(f.responses) == 0 {
		return "", fmt.Errorf("fakeAI: script exhausted after %d calls", len(f.calls))
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	if err, ok := next.(error); ok {
		return "", err
	}
	return next.(string), nil
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (f *fakeBucket) UploadFile(_ context.Context, key string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeBucket) DownloadFile(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBucket) DeleteFile(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeBucket) GCSURI(key string) string {
	return "gs://test-bucket/" + key
}

type fakeOCR struct {
	pages []gcp.OCRPage
	err   error
}

func (f *fakeOCR) RecognizeDocument(_ context.Context, _ string, _ string) ([]gcp.OCRPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

// failingItemRepo wraps a real StudyItemRepo and fails Create, for proving
// the approval transaction rolls back whole.
type failingItemRepo struct {
	repos.StudyItemRepo
}

func (f *failingItemRepo) Create(_ context.Context, _ *gorm.DB, _ []*types.StudyItem) ([]*types.StudyItem, error) {
	return nil, fmt.Errorf("induced create failure")
}

type testEnv struct {
	db       *gorm.DB
	ai       *fakeAI
	bucket   *fakeBucket
	ocr      *fakeOCR
	jobs     repos.GenerationJobRepo
	subjects repos.SubjectRepo
	items    repos.StudyItemRepo
	cards    repos.RecallCardRepo
	tags     repos.TagRepo
	pipeline PipelineService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	env := &testEnv{
		db:       db,
		ai:       &fakeAI{},
		bucket:   newFakeBucket(),
		ocr:      &fakeOCR{},
		jobs:     repos.NewGenerationJobRepo(db, log),
		subjects: repos.NewSubjectRepo(db, log),
		items:    repos.NewStudyItemRepo(db, log),
		cards:    repos.NewRecallCardRepo(db, log),
		tags:     repos.NewTagRepo(db, log),
	}
	env.pipeline = NewPipelineService(
		db, log,
		env.jobs, env.subjects, env.items, env.cards, env.tags,
		env.bucket, env.ocr, env.ai, nil,
	)
	return env
}

// withFailingItems rebuilds the pipeline with item creation wired to fail.
func (env *testEnv) withFailingItems() {
	env.pipeline = NewPipelineService(
		env.db, logger.NewNop(),
		env.jobs, env.subjects, &failingItemRepo{env.items}, env.cards, env.tags,
		env.bucket, env.ocr, env.ai, nil,
	)
}

func (env *testEnv) createTextJob(t *testing.T, variant types.JobVariant, sourceText string) *types.GenerationJob {
	t.Helper()
	job, err := env.pipeline.CreateJob(context.Background(), CreateJobInput{
		UserID:     uuid.New(),
		Variant:    variant,
		SourceName: "notes.txt",
		SourceKind: types.SourceKindText,
		FileData:   []byte(sourceText),
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func (env *testEnv) reloadJob(t *testing.T, jobID uuid.UUID) *types.GenerationJob {
	t.Helper()
	job, err := env.jobs.GetByID(context.Background(), nil, jobID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	return job
}

func (env *testEnv) mustStatus(t *testing.T, jobID uuid.UUID, want types.JobStatus) *types.GenerationJob {
	t.Helper()
	job := env.reloadJob(t, jobID)
	if job.Status != want {
		t.Fatalf("job status = %q, want %q", job.Status, want)
	}
	return job
}
