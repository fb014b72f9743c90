package services

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/types"
)

func stagedJobFields() (items []types.StagedItem, cards []types.StagedCard) {
	items = []types.StagedItem{
		{Question: "What is a vector?", Answer: "A quantity with direction.", Origin: types.ContentOriginGenerated},
		{Question: "What is a matrix?", Answer: "A grid of numbers.", Origin: types.ContentOriginGenerated},
	}
	cards = []types.StagedCard{
		{Front: "vector", Back: "direction and magnitude", Origin: types.ContentOriginGenerated},
	}
	return items, cards
}

func seedAwaitingJob(t *testing.T, env *testEnv) *types.GenerationJob {
	t.Helper()
	items, cards := stagedJobFields()
	return seedJob(t, env, &types.GenerationJob{
		Variant:     types.VariantDirectGeneration,
		Status:      types.JobStatusAwaitingAssignment,
		SourceText:  "material",
		StagedItems: types.MustJSON(items),
		StagedCards: types.MustJSON(cards),
	})
}

func TestSuggestAssignmentStoresSuggestions(t *testing.T) {
	env := newTestEnv(t)
	job := seedAwaitingJob(t, env)
	env.ai.push(`{"assignments":[{"subject_name":"Linear Algebra","unit_name":"Vectors","is_new_unit":true,"item_indexes":[0,1],"card_indexes":[0]}],"key_tags":["algebra"]}`)

	if err := env.pipeline.SuggestAssignment(context.Background(), job.ID, ""); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	got := env.mustStatus(t, job.ID, types.JobStatusAssignmentSuggested)
	suggestions, err := got.SuggestionList()
	if err != nil {
		t.Fatalf("decode suggestions: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	s := suggestions[0]
	if s.SubjectName != "Linear Algebra" || len(s.ItemIndexes) != 2 || len(s.CardIndexes) != 1 {
		t.Fatalf("unexpected suggestion: %+v", s)
	}
	tags, _ := got.SuggestedTagList()
	if len(tags) != 1 || tags[0] != "algebra" {
		t.Fatalf("unexpected key tags: %v", tags)
	}
}

func TestSuggestAssignmentFiltersBadIndexes(t *testing.T) {
	env := newTestEnv(t)
	job := seedAwaitingJob(t, env)
	// Index 7 is out of range, 0 repeats, -1 is negative.
	env.ai.push(`{"assignments":[{"subject_name":"Linear Algebra","unit_name":"Vectors","item_indexes":[0,0,7,-1,1],"card_indexes":[5]}],"key_tags":[]}`)

	if err := env.pipeline.SuggestAssignment(context.Background(), job.ID, ""); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	got := env.mustStatus(t, job.ID, types.JobStatusAssignmentSuggested)
	suggestions, _ := got.SuggestionList()
	s := suggestions[0]
	if len(s.ItemIndexes) != 2 || s.ItemIndexes[0] != 0 || s.ItemIndexes[1] != 1 {
		t.Fatalf("index filtering failed: %v", s.ItemIndexes)
	}
	if len(s.CardIndexes) != 0 {
		t.Fatalf("out-of-range card index survived: %v", s.CardIndexes)
	}
}

func TestSuggestAssignmentScopedSubjectInPrompt(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.subjects.Create(context.Background(), nil, &types.Subject{
		Name:          "Linear Algebra",
		NormalizedKey: "linear_algebra",
		UnitsFormat:   types.UnitsFormatStructured,
		Units:         types.MustJSON([]map[string]any{{"name": "Vectors", "key": "vectors"}}),
	}); err != nil {
		t.Fatalf("create subject: %v", err)
	}
	job := seedAwaitingJob(t, env)
	env.ai.push(`{"assignments":[{"subject_name":"Linear Algebra","unit_name":"Vectors","item_indexes":[0],"card_indexes":[]}],"key_tags":[]}`)

	if err := env.pipeline.SuggestAssignment(context.Background(), job.ID, "Linear Algebra"); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	prompt := env.ai.lastPrompt()
	if !strings.Contains(prompt, "Linear Algebra: Vectors") {
		t.Fatalf("scoped prompt should carry the subject's units:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Only the subject above may be used") {
		t.Fatalf("scoped prompt should constrain the classifier:\n%s", prompt)
	}
}

func TestSuggestAssignmentEmptyStagingRejected(t *testing.T) {
	env := newTestEnv(t)
	job := seedJob(t, env, &types.GenerationJob{
		Variant:    types.VariantDirectGeneration,
		Status:     types.JobStatusAwaitingAssignment,
		SourceText: "material",
	})
	err := env.pipeline.SuggestAssignment(context.Background(), job.ID, "")
	if !errorsIsInvalid(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if env.ai.callCount() != 0 {
		t.Fatalf("no model call should happen for empty staging")
	}
}

func TestSuggestAssignmentMalformedOutputStaysRetryable(t *testing.T) {
	env := newTestEnv(t)
	job := seedAwaitingJob(t, env)
	env.ai.push("These items look like linear algebra to me.")

	err := env.pipeline.SuggestAssignment(context.Background(), job.ID, "")
	if !apperr.IsMalformedOutput(err) {
		t.Fatalf("expected malformed output error, got %v", err)
	}
	env.mustStatus(t, job.ID, types.JobStatusAwaitingAssignment)
}
