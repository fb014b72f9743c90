package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/taxonomy"
	"github.com/yungbote/studybridge-backend/internal/types"
)

// Reset and PrepareForRegeneration accept a job in any state: their purpose
// is rescuing jobs that stalled mid-stage, so they cannot be picky about
// where the job stopped. The conditional status write keeps them safe
// against a forward stage still in flight; whoever writes first wins and the
// loser fails with a precondition error. Reassign only reworks a finished
// taxonomy decision, so it requires a settled job.

// Reset returns a job to the state immediately after text extraction,
// deleting anything it committed and clearing all staged progress. Only the
// source text, the upload, and the error log survive.
func (ps *pipelineService) Reset(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.SourceText == "" {
		return fmt.Errorf("job %s has no extracted text to reset to: %w", job.ID, apperr.ErrInvalidInput)
	}

	next := types.JobStatusExtracted
	if job.Variant == types.VariantExtractionFirst {
		next = types.JobStatusNeedsSplit
	}

	err = ps.db.Transaction(func(tx *gorm.DB) error {
		if _, _, derr := ps.deleteCommitted(ctx, tx, job.ID); derr != nil {
			return derr
		}
		return ps.writeRollback(ctx, tx, job, next, map[string]any{
			"quota_item_count":  0,
			"quota_card_count":  0,
			"chunks":            types.MustJSON([]string{}),
			"total_batches":     0,
			"completed_batches": 0,
			"staged_items":      types.MustJSON([]types.StagedItem{}),
			"staged_cards":      types.MustJSON([]types.StagedCard{}),
			"suggestions":       types.MustJSON([]types.AssignmentSuggestion{}),
			"suggested_tags":    types.MustJSON([]string{}),
			"seen_item_texts":   types.MustJSON([]string{}),
		})
	})
	if err != nil {
		return err
	}
	ps.publish(ctx, job, job.Status, next)
	job.Status = next
	ps.log.Info("job reset", "job_id", job.ID, "to", next)
	return nil
}

// Reassign pulls a job's committed content back into the staging area and
// reopens classification, so a bad taxonomy decision can be redone without
// regenerating anything. Committed rows are deleted with their aggregate
// contributions reversed, restaged alongside whatever was still staged, and
// the job returns to awaiting assignment.
func (ps *pipelineService) Reassign(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID,
		types.JobStatusCompleted,
		types.JobStatusArchived,
		types.JobStatusError,
		types.JobStatusPartiallyFailed,
	)
	if err != nil {
		return err
	}

	stagedItems, err := job.StagedItemList()
	if err != nil {
		return fmt.Errorf("failed to decode staged items: %w", err)
	}
	stagedCards, err := job.StagedCardList()
	if err != nil {
		return fmt.Errorf("failed to decode staged cards: %w", err)
	}

	err = ps.db.Transaction(func(tx *gorm.DB) error {
		items, cards, derr := ps.deleteCommitted(ctx, tx, job.ID)
		if derr != nil {
			return derr
		}
		if len(items) == 0 && len(cards) == 0 && len(stagedItems) == 0 && len(stagedCards) == 0 {
			return fmt.Errorf("job %s has no content to reassign: %w", job.ID, apperr.ErrInvalidInput)
		}
		for _, it := range items {
			tags, terr := decodeTags(it.Tags)
			if terr != nil {
				return terr
			}
			stagedItems = append(stagedItems, types.StagedItem{
				Question:    it.Question,
				Answer:      it.Answer,
				Explanation: it.Explanation,
				Origin:      it.Origin,
				Tags:        tags,
			})
		}
		for _, c := range cards {
			stagedCards = append(stagedCards, types.StagedCard{
				Front:  c.Front,
				Back:   c.Back,
				Origin: c.Origin,
			})
		}
		return ps.writeRollback(ctx, tx, job, types.JobStatusAwaitingAssignment, map[string]any{
			"staged_items": types.MustJSON(stagedItems),
			"staged_cards": types.MustJSON(stagedCards),
			"suggestions":  types.MustJSON([]types.AssignmentSuggestion{}),
		})
	})
	if err != nil {
		return err
	}
	ps.publish(ctx, job, job.Status, types.JobStatusAwaitingAssignment)
	job.Status = types.JobStatusAwaitingAssignment
	ps.log.Info("job reopened for assignment", "job_id", job.ID)
	return nil
}

// PrepareForRegeneration rewinds a job to the start of generation while
// remembering what it already produced: question texts of committed and
// staged items become negative seeds, so the next run steers away from
// duplicating them. Committed content is deleted with aggregates reversed.
func (ps *pipelineService) PrepareForRegeneration(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.SourceText == "" {
		return fmt.Errorf("job %s has no source text to regenerate from: %w", job.ID, apperr.ErrInvalidInput)
	}

	stagedItems, err := job.StagedItemList()
	if err != nil {
		return fmt.Errorf("failed to decode staged items: %w", err)
	}
	seen, err := job.SeenItemTextList()
	if err != nil {
		return fmt.Errorf("failed to decode seen texts: %w", err)
	}
	for _, it := range stagedItems {
		if it.Origin == types.ContentOriginGenerated {
			seen = appendUnique(seen, it.Question)
		}
	}

	err = ps.db.Transaction(func(tx *gorm.DB) error {
		items, _, derr := ps.deleteCommitted(ctx, tx, job.ID)
		if derr != nil {
			return derr
		}
		for _, it := range items {
			if it.Origin == types.ContentOriginGenerated {
				seen = appendUnique(seen, it.Question)
			}
		}
		return ps.writeRollback(ctx, tx, job, types.JobStatusReadyForGeneration, map[string]any{
			"chunks":            types.MustJSON([]string{}),
			"total_batches":     0,
			"completed_batches": 0,
			"staged_items":      types.MustJSON([]types.StagedItem{}),
			"staged_cards":      types.MustJSON([]types.StagedCard{}),
			"suggestions":       types.MustJSON([]types.AssignmentSuggestion{}),
			"suggested_tags":    types.MustJSON([]string{}),
			"seen_item_texts":   types.MustJSON(seen),
		})
	})
	if err != nil {
		return err
	}
	ps.publish(ctx, job, job.Status, types.JobStatusReadyForGeneration)
	job.Status = types.JobStatusReadyForGeneration
	ps.log.Info("job prepared for regeneration", "job_id", job.ID, "negative_seeds", len(seen))
	return nil
}

// Archive retires a finished or failed job. Committed content stays where
// it is; the job record just leaves the working set.
func (ps *pipelineService) Archive(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID,
		types.JobStatusCompleted,
		types.JobStatusError,
		types.JobStatusPartiallyFailed,
	)
	if err != nil {
		return err
	}
	return ps.transition(ctx, job, types.JobStatusArchived, nil)
}

// deleteCommitted removes every item and card the job committed, reversing
// their contribution to subject and unit aggregates first. Counts floor at
// zero so rollback never drives an already-skewed aggregate negative. The
// deleted rows are returned for restaging or seed extraction.
func (ps *pipelineService) deleteCommitted(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*types.StudyItem, []*types.RecallCard, error) {
	items, err := ps.itemRepo.GetBySourceJobID(ctx, tx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load committed items: %w", err)
	}
	cards, err := ps.cardRepo.GetBySourceJobID(ctx, tx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load committed cards: %w", err)
	}
	if len(items) == 0 && len(cards) == 0 {
		return nil, nil, nil
	}

	type unitDelta struct{ items, cards int }
	perSubject := map[uuid.UUID]map[string]*unitDelta{}
	bump := func(subjectID uuid.UUID, unitKey string, di, dc int) {
		units, ok := perSubject[subjectID]
		if !ok {
			units = map[string]*unitDelta{}
			perSubject[subjectID] = units
		}
		d, ok := units[unitKey]
		if !ok {
			d = &unitDelta{}
			units[unitKey] = d
		}
		d.items += di
		d.cards += dc
	}
	for _, it := range items {
		bump(it.SubjectID, it.UnitKey, 1, 0)
	}
	for _, c := range cards {
		bump(c.SubjectID, c.UnitKey, 0, 1)
	}

	for subjectID, units := range perSubject {
		subject, serr := ps.subjectRepo.GetByIDForUpdate(ctx, tx, subjectID)
		if serr != nil {
			return nil, nil, fmt.Errorf("failed to load subject %s: %w", subjectID, serr)
		}
		ul, uerr := taxonomy.DecodeUnits(subject.UnitsFormat, subject.Units)
		if uerr != nil {
			return nil, nil, uerr
		}
		totalItems, totalCards := 0, 0
		for key, d := range units {
			ul.Decrement(key, d.items, d.cards)
			totalItems += d.items
			totalCards += d.cards
		}
		if serr = ps.subjectRepo.UpdateFields(ctx, tx, subjectID, map[string]any{
			"units":      ul.Encode(),
			"item_count": floorZero(subject.ItemCount - totalItems),
			"card_count": floorZero(subject.CardCount - totalCards),
		}); serr != nil {
			return nil, nil, fmt.Errorf("failed to update subject %s: %w", subjectID, serr)
		}
	}

	if err := ps.itemRepo.FullDeleteBySourceJobID(ctx, tx, jobID); err != nil {
		return nil, nil, fmt.Errorf("failed to delete committed items: %w", err)
	}
	if err := ps.cardRepo.FullDeleteBySourceJobID(ctx, tx, jobID); err != nil {
		return nil, nil, fmt.Errorf("failed to delete committed cards: %w", err)
	}
	return items, cards, nil
}

// writeRollback applies a rollback's job update conditioned on the status
// the job was loaded with, so two concurrent rollbacks cannot both win.
func (ps *pipelineService) writeRollback(ctx context.Context, tx *gorm.DB, job *types.GenerationJob, to types.JobStatus, updates map[string]any) error {
	updates["status"] = to
	ok, err := ps.jobRepo.UpdateFieldsWhereStatus(ctx, tx, job.ID, job.Status, updates)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	if !ok {
		return &apperr.PreconditionError{JobID: job.ID, Expected: []string{string(job.Status)}, Actual: "changed concurrently"}
	}
	return nil
}

func decodeTags(raw []byte) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
