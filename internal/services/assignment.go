package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/pkg/aijson"
	"github.com/yungbote/studybridge-backend/internal/taxonomy"
	"github.com/yungbote/studybridge-backend/internal/types"
)

type assignmentResponse struct {
	Assignments []struct {
		SubjectName string `json:"subject_name"`
		UnitName    string `json:"unit_name"`
		IsNewUnit   bool   `json:"is_new_unit"`
		ItemIndexes []int  `json:"item_indexes"`
		CardIndexes []int  `json:"card_indexes"`
	} `json:"assignments"`
	KeyTags []string `json:"key_tags"`
}

// SuggestAssignment classifies staged content into the subject/unit
// taxonomy. The prompt carries an indexed digest of the staged content and
// the current taxonomy; the model answers with index references, never
// content copies, so a suggestion can always be validated against the
// staged arrays at commit time. When subjectScope names an existing
// subject, classification is constrained to it. A failed call leaves the
// job awaiting assignment so the stage can be retried.
func (ps *pipelineService) SuggestAssignment(ctx context.Context, jobID uuid.UUID, subjectScope string) error {
	job, err := ps.loadJob(ctx, jobID, types.JobStatusAwaitingAssignment)
	if err != nil {
		return err
	}

	items, err := job.StagedItemList()
	if err != nil {
		return fmt.Errorf("failed to decode staged items: %w", err)
	}
	cards, err := job.StagedCardList()
	if err != nil {
		return fmt.Errorf("failed to decode staged cards: %w", err)
	}
	if len(items) == 0 && len(cards) == 0 {
		return fmt.Errorf("job %s has no staged content to classify: %w", job.ID, apperr.ErrInvalidInput)
	}

	var digests []subjectDigest
	scoped := false
	if subjectScope != "" {
		subject, serr := ps.subjectRepo.GetByNormalizedKey(ctx, nil, taxonomy.NormalizeKey(subjectScope))
		if serr != nil {
			return fmt.Errorf("scope subject %q: %w", subjectScope, serr)
		}
		d, derr := subjectToDigest(subject)
		if derr != nil {
			return derr
		}
		digests = []subjectDigest{d}
		scoped = true
	} else {
		subjects, serr := ps.subjectRepo.GetAll(ctx, nil)
		if serr != nil {
			return fmt.Errorf("failed to load taxonomy: %w", serr)
		}
		for _, s := range subjects {
			d, derr := subjectToDigest(s)
			if derr != nil {
				return derr
			}
			digests = append(digests, d)
		}
	}

	raw, err := ps.ai.Generate(ctx, assignmentSystem, assignmentUser(buildContentDigest(items, cards), digests, scoped))
	if err != nil {
		ps.recordError(ctx, job, "assignment", err)
		return fmt.Errorf("assignment call failed: %w", err)
	}
	var resp assignmentResponse
	if err := aijson.Unmarshal(raw, &resp); err != nil {
		ps.recordError(ctx, job, "assignment", err)
		return err
	}

	suggestions := make([]types.AssignmentSuggestion, 0, len(resp.Assignments))
	for _, a := range resp.Assignments {
		if strings.TrimSpace(a.SubjectName) == "" || strings.TrimSpace(a.UnitName) == "" {
			continue
		}
		s := types.AssignmentSuggestion{
			SubjectName: a.SubjectName,
			UnitName:    a.UnitName,
			IsNewUnit:   a.IsNewUnit,
			ItemIndexes: filterIndexes(a.ItemIndexes, len(items)),
			CardIndexes: filterIndexes(a.CardIndexes, len(cards)),
		}
		if len(s.ItemIndexes) == 0 && len(s.CardIndexes) == 0 {
			continue
		}
		suggestions = append(suggestions, s)
	}
	if len(suggestions) == 0 {
		err := fmt.Errorf("classifier produced no usable assignments")
		ps.recordError(ctx, job, "assignment", err)
		return err
	}

	ps.log.Info("assignment suggested", "job_id", job.ID, "suggestions", len(suggestions), "key_tags", len(resp.KeyTags))
	return ps.transition(ctx, job, types.JobStatusAssignmentSuggested, map[string]any{
		"suggestions":    types.MustJSON(suggestions),
		"suggested_tags": types.MustJSON(resp.KeyTags),
	})
}

func subjectToDigest(s *types.Subject) (subjectDigest, error) {
	units, err := taxonomy.DecodeUnits(s.UnitsFormat, s.Units)
	if err != nil {
		return subjectDigest{}, fmt.Errorf("subject %s has a corrupt unit list: %w", s.ID, err)
	}
	return subjectDigest{Name: s.Name, UnitNames: units.UnitNames()}, nil
}

// filterIndexes drops out-of-range and duplicate index references.
func filterIndexes(idx []int, length int) []int {
	seen := make(map[int]struct{}, len(idx))
	var out []int
	for _, i := range idx {
		if i < 0 || i >= length {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
