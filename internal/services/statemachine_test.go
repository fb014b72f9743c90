package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/types"
)

var allStatuses = []types.JobStatus{
	types.JobStatusIngesting,
	types.JobStatusNeedsSplit,
	types.JobStatusExtracted,
	types.JobStatusPlanningDone,
	types.JobStatusReadyForGeneration,
	types.JobStatusGenerating,
	types.JobStatusAwaitingAssignment,
	types.JobStatusAssignmentSuggested,
	types.JobStatusCompleted,
	types.JobStatusArchived,
	types.JobStatusError,
	types.JobStatusPartiallyFailed,
}

// Every forward stage must refuse to run from any status outside its entry
// set, before touching the model client or mutating the row.
func TestStagesRejectWrongEntryStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stages := []struct {
		name    string
		allowed map[types.JobStatus]bool
		run     func(ctx context.Context, jobID uuid.UUID) error
	}{
		{
			name:    "ingest",
			allowed: map[types.JobStatus]bool{types.JobStatusIngesting: true},
			run:     env.pipeline.Ingest,
		},
		{
			name:    "split",
			allowed: map[types.JobStatus]bool{types.JobStatusNeedsSplit: true},
			run:     env.pipeline.SplitExtracted,
		},
		{
			name:    "plan",
			allowed: map[types.JobStatus]bool{types.JobStatusExtracted: true},
			run:     env.pipeline.Plan,
		},
		{
			name: "generate",
			allowed: map[types.JobStatus]bool{
				types.JobStatusPlanningDone:       true,
				types.JobStatusReadyForGeneration: true,
				types.JobStatusPartiallyFailed:    true,
			},
			run: env.pipeline.StartGeneration,
		},
		{
			name:    "suggest",
			allowed: map[types.JobStatus]bool{types.JobStatusAwaitingAssignment: true},
			run: func(ctx context.Context, jobID uuid.UUID) error {
				return env.pipeline.SuggestAssignment(ctx, jobID, "")
			},
		},
		{
			name:    "approve",
			allowed: map[types.JobStatus]bool{types.JobStatusAssignmentSuggested: true},
			run: func(ctx context.Context, jobID uuid.UUID) error {
				return env.pipeline.Approve(ctx, jobID, uuid.New(), soleSuggestion()[0])
			},
		},
		{
			name: "reassign",
			allowed: map[types.JobStatus]bool{
				types.JobStatusCompleted:       true,
				types.JobStatusArchived:        true,
				types.JobStatusError:           true,
				types.JobStatusPartiallyFailed: true,
			},
			run: env.pipeline.Reassign,
		},
		{
			name: "archive",
			allowed: map[types.JobStatus]bool{
				types.JobStatusCompleted:       true,
				types.JobStatusError:           true,
				types.JobStatusPartiallyFailed: true,
			},
			run: env.pipeline.Archive,
		},
	}

	for _, st := range stages {
		for _, from := range allStatuses {
			if st.allowed[from] {
				continue
			}
			job := seedJob(t, env, &types.GenerationJob{
				Variant: types.VariantExtractionFirst,
				Status:  from,
			})
			err := st.run(ctx, job.ID)
			if !apperr.IsPrecondition(err) {
				t.Fatalf("%s from %q: err = %v, want precondition", st.name, from, err)
			}
			env.mustStatus(t, job.ID, from)
		}
	}
	if n := env.ai.callCount(); n != 0 {
		t.Fatalf("model client called %d times during rejected stages", n)
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := map[types.JobStatus]bool{
		types.JobStatusCompleted:       true,
		types.JobStatusArchived:        true,
		types.JobStatusError:           true,
		types.JobStatusPartiallyFailed: true,
	}
	for _, s := range allStatuses {
		if got := s.IsTerminal(); got != terminal[s] {
			t.Fatalf("IsTerminal(%q) = %v", s, got)
		}
	}
}
