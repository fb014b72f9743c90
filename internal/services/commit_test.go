package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/taxonomy"
	"github.com/yungbote/studybridge-backend/internal/types"
)

func seedSuggestedJob(t *testing.T, env *testEnv, suggestions []types.AssignmentSuggestion) *types.GenerationJob {
	t.Helper()
	items, cards := stagedJobFields()
	return seedJob(t, env, &types.GenerationJob{
		Variant:       types.VariantDirectGeneration,
		Status:        types.JobStatusAssignmentSuggested,
		SourceText:    "material",
		StagedItems:   types.MustJSON(items),
		StagedCards:   types.MustJSON(cards),
		Suggestions:   types.MustJSON(suggestions),
		SuggestedTags: types.MustJSON([]string{"algebra"}),
	})
}

func soleSuggestion() []types.AssignmentSuggestion {
	return []types.AssignmentSuggestion{{
		SubjectName: "Linear Algebra",
		UnitName:    "Vectors",
		IsNewUnit:   true,
		ItemIndexes: []int{0, 1},
		CardIndexes: []int{0},
	}}
}

func TestApproveCommitsAndCompletes(t *testing.T) {
	env := newTestEnv(t)
	job := seedSuggestedJob(t, env, soleSuggestion())
	approver := uuid.New()

	if err := env.pipeline.Approve(context.Background(), job.ID, approver, soleSuggestion()[0]); err != nil {
		t.Fatalf("approve: %v", err)
	}

	got := env.mustStatus(t, job.ID, types.JobStatusCompleted)
	remaining, _ := got.SuggestionList()
	if len(remaining) != 0 {
		t.Fatalf("consumed suggestion should be removed, got %v", remaining)
	}
	staged, _ := got.StagedItemList()
	if len(staged) != 0 {
		t.Fatalf("completed job should have empty staging, got %d items", len(staged))
	}

	subject, err := env.subjects.GetByNormalizedKey(context.Background(), nil, "linear_algebra")
	if err != nil {
		t.Fatalf("subject not created: %v", err)
	}
	if subject.ItemCount != 2 || subject.CardCount != 1 {
		t.Fatalf("subject aggregates = %d/%d, want 2/1", subject.ItemCount, subject.CardCount)
	}
	units, err := taxonomy.DecodeUnits(subject.UnitsFormat, subject.Units)
	if err != nil {
		t.Fatalf("decode units: %v", err)
	}
	if len(units.Structured) != 1 || units.Structured[0].ItemCount != 2 || units.Structured[0].CardCount != 1 {
		t.Fatalf("unit counts wrong: %+v", units.Structured)
	}

	items, err := env.items.GetBySourceJobID(context.Background(), nil, job.ID)
	if err != nil || len(items) != 2 {
		t.Fatalf("expected 2 committed items, got %d (%v)", len(items), err)
	}
	for _, it := range items {
		if it.UnitKey != "vectors" || it.SubjectID != subject.ID {
			t.Fatalf("committed item wired wrong: %+v", it)
		}
		if it.ApprovedBy != approver || it.ApprovedAt == nil {
			t.Fatalf("approval audit fields missing: %+v", it)
		}
	}
	cards, err := env.cards.GetBySourceJobID(context.Background(), nil, job.ID)
	if err != nil || len(cards) != 1 {
		t.Fatalf("expected 1 committed card, got %d (%v)", len(cards), err)
	}

	tags, err := env.tags.GetAll(context.Background(), nil)
	if err != nil || len(tags) != 1 {
		t.Fatalf("expected 1 tag, got %d (%v)", len(tags), err)
	}
	if tags[0].DisplayName != "algebra" || tags[0].UsageCount != 1 {
		t.Fatalf("unexpected tag row: %+v", tags[0])
	}
}

func TestApprovePartialKeepsRemainingSuggestions(t *testing.T) {
	env := newTestEnv(t)
	suggestions := []types.AssignmentSuggestion{
		{SubjectName: "Linear Algebra", UnitName: "Vectors", ItemIndexes: []int{0}, CardIndexes: []int{0}},
		{SubjectName: "Linear Algebra", UnitName: "Matrices", ItemIndexes: []int{1}},
	}
	job := seedSuggestedJob(t, env, suggestions)

	if err := env.pipeline.Approve(context.Background(), job.ID, uuid.New(), suggestions[0]); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got := env.mustStatus(t, job.ID, types.JobStatusAssignmentSuggested)
	remaining, _ := got.SuggestionList()
	if len(remaining) != 1 || remaining[0].UnitName != "Matrices" {
		t.Fatalf("unexpected remaining suggestions: %+v", remaining)
	}
	staged, _ := got.StagedItemList()
	if len(staged) != 2 {
		t.Fatalf("staging must survive until the last approval, got %d items", len(staged))
	}
}

func TestApproveExistingSubjectWithNameUnits(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.subjects.Create(context.Background(), nil, &types.Subject{
		Name:          "Linear Algebra",
		NormalizedKey: "linear_algebra",
		UnitsFormat:   types.UnitsFormatNames,
		Units:         types.MustJSON([]string{"Matrices"}),
		ItemCount:     5,
	}); err != nil {
		t.Fatalf("create subject: %v", err)
	}
	job := seedSuggestedJob(t, env, soleSuggestion())

	if err := env.pipeline.Approve(context.Background(), job.ID, uuid.New(), soleSuggestion()[0]); err != nil {
		t.Fatalf("approve: %v", err)
	}

	subject, err := env.subjects.GetByNormalizedKey(context.Background(), nil, "linear_algebra")
	if err != nil {
		t.Fatalf("load subject: %v", err)
	}
	if subject.ItemCount != 7 || subject.CardCount != 1 {
		t.Fatalf("subject aggregates = %d/%d, want 7/1", subject.ItemCount, subject.CardCount)
	}
	units, _ := taxonomy.DecodeUnits(subject.UnitsFormat, subject.Units)
	if units.Format != types.UnitsFormatNames {
		t.Fatalf("approval must not change the subject's unit format")
	}
	if len(units.Names) != 2 || !units.Contains("vectors") {
		t.Fatalf("new unit missing from name list: %v", units.Names)
	}
}

func TestApproveEmptyResolutionRejected(t *testing.T) {
	env := newTestEnv(t)
	job := seedSuggestedJob(t, env, soleSuggestion())

	err := env.pipeline.Approve(context.Background(), job.ID, uuid.New(), types.AssignmentSuggestion{
		SubjectName: "Linear Algebra",
		UnitName:    "Vectors",
		ItemIndexes: []int{99},
		CardIndexes: []int{42},
	})
	if !errorsIsInvalid(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	items, _ := env.items.GetBySourceJobID(context.Background(), nil, job.ID)
	if len(items) != 0 {
		t.Fatalf("rejected approval must not commit rows")
	}
	env.mustStatus(t, job.ID, types.JobStatusAssignmentSuggested)
}

func TestApproveRollsBackWhole(t *testing.T) {
	env := newTestEnv(t)
	job := seedSuggestedJob(t, env, soleSuggestion())
	env.withFailingItems()

	err := env.pipeline.Approve(context.Background(), job.ID, uuid.New(), soleSuggestion()[0])
	if err == nil {
		t.Fatalf("expected induced failure")
	}

	// The subject write preceded the failing item insert; the transaction
	// must take it down too.
	if _, serr := env.subjects.GetByNormalizedKey(context.Background(), nil, "linear_algebra"); serr == nil {
		t.Fatalf("subject survived a rolled-back approval")
	}
	cards, _ := env.cards.GetBySourceJobID(context.Background(), nil, job.ID)
	if len(cards) != 0 {
		t.Fatalf("cards survived a rolled-back approval")
	}
	got := env.mustStatus(t, job.ID, types.JobStatusAssignmentSuggested)
	remaining, _ := got.SuggestionList()
	if len(remaining) != 1 {
		t.Fatalf("suggestion list must be untouched after rollback, got %v", remaining)
	}
}

// Two jobs approved into the same subject must both land in the counters;
// the commit transaction takes a row lock on the subject so neither
// increment applies against a stale baseline.
func TestApproveSecondJobAccumulatesSubjectCounts(t *testing.T) {
	env := newTestEnv(t)
	first := seedSuggestedJob(t, env, soleSuggestion())
	second := seedSuggestedJob(t, env, soleSuggestion())

	if err := env.pipeline.Approve(context.Background(), first.ID, uuid.New(), soleSuggestion()[0]); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if err := env.pipeline.Approve(context.Background(), second.ID, uuid.New(), soleSuggestion()[0]); err != nil {
		t.Fatalf("second approve: %v", err)
	}

	subject, err := env.subjects.GetByNormalizedKey(context.Background(), nil, "linear_algebra")
	if err != nil {
		t.Fatalf("load subject: %v", err)
	}
	if subject.ItemCount != 4 || subject.CardCount != 2 {
		t.Fatalf("subject counts = %d/%d, want 4/2", subject.ItemCount, subject.CardCount)
	}
	units, err := taxonomy.DecodeUnits(subject.UnitsFormat, subject.Units)
	if err != nil {
		t.Fatalf("decode units: %v", err)
	}
	gotItems, gotCards := units.Totals()
	if gotItems != subject.ItemCount || gotCards != subject.CardCount {
		t.Fatalf("unit totals %d/%d disagree with subject counts %d/%d",
			gotItems, gotCards, subject.ItemCount, subject.CardCount)
	}
}
