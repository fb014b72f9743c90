package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/taxonomy"
	"github.com/yungbote/studybridge-backend/internal/types"
)

// Approve commits one approved assignment: staged content referenced by the
// suggestion's indexes becomes first-class item and card rows, the target
// subject's taxonomy and aggregates grow, the job's suggested key-tags are
// upserted, and the consumed suggestion leaves the job's list. Everything
// happens in a single database transaction; an approval either fully lands
// or leaves no trace.
//
// The caller passes the suggestion as reviewed, which may be a hand-edited
// version of what the classifier proposed. Indexes are re-validated against
// the staged arrays here regardless of where the suggestion came from.
func (ps *pipelineService) Approve(ctx context.Context, jobID, approverID uuid.UUID, pick types.AssignmentSuggestion) error {
	job, err := ps.loadJob(ctx, jobID, types.JobStatusAssignmentSuggested)
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

	itemIdx := filterIndexes(pick.ItemIndexes, len(stagedItems))
	cardIdx := filterIndexes(pick.CardIndexes, len(stagedCards))
	if len(itemIdx) == 0 && len(cardIdx) == 0 {
		return fmt.Errorf("assignment resolves to no staged content: %w", apperr.ErrInvalidInput)
	}

	unitKey := taxonomy.NormalizeKey(pick.UnitName)
	subjectKey := taxonomy.NormalizeKey(pick.SubjectName)
	if unitKey == "" || subjectKey == "" {
		return fmt.Errorf("assignment needs a subject and unit name: %w", apperr.ErrInvalidInput)
	}

	keyTags, err := job.SuggestedTagList()
	if err != nil {
		return fmt.Errorf("failed to decode suggested tags: %w", err)
	}

	now := time.Now().UTC()
	completed := false

	txErr := ps.db.Transaction(func(tx *gorm.DB) error {
		// Locked read: two approvals landing in the same subject must not
		// both apply their increments against the same baseline.
		subject, serr := ps.subjectRepo.GetByNormalizedKeyForUpdate(ctx, tx, subjectKey)
		switch {
		case errors.Is(serr, apperr.ErrNotFound):
			units := taxonomy.UnitList{Format: types.UnitsFormatStructured}
			units.Add(pick.UnitName)
			units.Increment(unitKey, len(itemIdx), len(cardIdx))
			subject = &types.Subject{
				Name:          pick.SubjectName,
				NormalizedKey: subjectKey,
				UnitsFormat:   types.UnitsFormatStructured,
				Units:         units.Encode(),
				ItemCount:     len(itemIdx),
				CardCount:     len(cardIdx),
			}
			if subject, serr = ps.subjectRepo.Create(ctx, tx, subject); serr != nil {
				return fmt.Errorf("failed to create subject %q: %w", pick.SubjectName, serr)
			}
		case serr != nil:
			return serr
		default:
			units, uerr := taxonomy.DecodeUnits(subject.UnitsFormat, subject.Units)
			if uerr != nil {
				return uerr
			}
			units.Add(pick.UnitName)
			units.Increment(unitKey, len(itemIdx), len(cardIdx))
			if serr = ps.subjectRepo.UpdateFields(ctx, tx, subject.ID, map[string]any{
				"units":      units.Encode(),
				"item_count": subject.ItemCount + len(itemIdx),
				"card_count": subject.CardCount + len(cardIdx),
			}); serr != nil {
				return fmt.Errorf("failed to update subject %q: %w", subject.Name, serr)
			}
		}

		tagsJSON := types.MustJSON(keyTags)
		if len(itemIdx) > 0 {
			rows := make([]*types.StudyItem, 0, len(itemIdx))
			for _, i := range itemIdx {
				st := stagedItems[i]
				rows = append(rows, &types.StudyItem{
					SubjectID:   subject.ID,
					SubjectName: subject.Name,
					UnitName:    pick.UnitName,
					UnitKey:     unitKey,
					Question:    st.Question,
					Answer:      st.Answer,
					Explanation: st.Explanation,
					Origin:      st.Origin,
					SourceJobID: job.ID,
					Tags:        tagsJSON,
					Status:      "approved",
					ApprovedBy:  approverID,
					ApprovedAt:  &now,
				})
			}
			if _, cerr := ps.itemRepo.Create(ctx, tx, rows); cerr != nil {
				return fmt.Errorf("failed to commit study items: %w", cerr)
			}
		}
		if len(cardIdx) > 0 {
			rows := make([]*types.RecallCard, 0, len(cardIdx))
			for _, i := range cardIdx {
				sc := stagedCards[i]
				rows = append(rows, &types.RecallCard{
					SubjectID:   subject.ID,
					SubjectName: subject.Name,
					UnitName:    pick.UnitName,
					UnitKey:     unitKey,
					Front:       sc.Front,
					Back:        sc.Back,
					Origin:      sc.Origin,
					SourceJobID: job.ID,
					Tags:        tagsJSON,
					Status:      "approved",
					ApprovedBy:  approverID,
					ApprovedAt:  &now,
				})
			}
			if _, cerr := ps.cardRepo.Create(ctx, tx, rows); cerr != nil {
				return fmt.Errorf("failed to commit recall cards: %w", cerr)
			}
		}

		for _, t := range keyTags {
			if terr := ps.tagRepo.Upsert(ctx, tx, t); terr != nil {
				return fmt.Errorf("failed to upsert tag %q: %w", t, terr)
			}
		}

		suggestions, derr := job.SuggestionList()
		if derr != nil {
			return fmt.Errorf("failed to decode suggestions: %w", derr)
		}
		remaining := suggestions[:0]
		for _, s := range suggestions {
			if taxonomy.NormalizeKey(s.SubjectName) == subjectKey && taxonomy.NormalizeKey(s.UnitName) == unitKey {
				continue
			}
			remaining = append(remaining, s)
		}

		updates := map[string]any{"suggestions": types.MustJSON(remaining)}
		next := job.Status
		if len(remaining) == 0 {
			// Last suggestion consumed: the job is done and its staging
			// area has served its purpose.
			next = types.JobStatusCompleted
			updates["status"] = next
			updates["staged_items"] = types.MustJSON([]types.StagedItem{})
			updates["staged_cards"] = types.MustJSON([]types.StagedCard{})
		}
		ok, uerr := ps.jobRepo.UpdateFieldsWhereStatus(ctx, tx, job.ID, types.JobStatusAssignmentSuggested, updates)
		if uerr != nil {
			return fmt.Errorf("failed to update job %s: %w", job.ID, uerr)
		}
		if !ok {
			return &apperr.PreconditionError{JobID: job.ID, Expected: []string{string(types.JobStatusAssignmentSuggested)}, Actual: "changed concurrently"}
		}
		completed = next == types.JobStatusCompleted
		ps.log.Info("assignment approved",
			"job_id", job.ID, "subject", subject.Name, "unit", pick.UnitName,
			"items", len(itemIdx), "cards", len(cardIdx), "remaining_suggestions", len(remaining))
		return nil
	})
	if txErr != nil {
		return txErr
	}
	if completed {
		ps.publish(ctx, job, job.Status, types.JobStatusCompleted)
		job.Status = types.JobStatusCompleted
	}
	return nil
}
