package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/chunker"
	"github.com/yungbote/studybridge-backend/internal/pkg/aijson"
	"github.com/yungbote/studybridge-backend/internal/types"
)

type generationResponse struct {
	Items []struct {
		Question    string   `json:"question"`
		Answer      string   `json:"answer"`
		Explanation string   `json:"explanation"`
		Tags        []string `json:"tags"`
	} `json:"items"`
	Cards []struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	} `json:"cards"`
}

// StartGeneration runs the chunked generation loop. The first run splits
// the source into deterministic segments and records the batch count; later
// runs (after a partial failure or a regeneration reset) pick up from the
// completed-batch checkpoint without re-splitting. Each batch's staged
// output and checkpoint advance land in a single row update, so a crash
// between batches never loses or double-counts work.
func (ps *pipelineService) StartGeneration(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID,
		types.JobStatusPlanningDone,
		types.JobStatusReadyForGeneration,
		types.JobStatusPartiallyFailed,
	)
	if err != nil {
		return err
	}

	chunks, err := job.ChunkList()
	if err != nil {
		return fmt.Errorf("failed to decode job chunks: %w", err)
	}
	startUpdates := map[string]any{}
	if job.TotalBatches == 0 {
		chunks = chunker.Split(job.SourceText, ps.segmentBudget)
		if len(chunks) == 0 {
			err := fmt.Errorf("source text yields no segments")
			ps.failJob(ctx, job, types.JobStatusError, "generation", err)
			return err
		}
		job.TotalBatches = len(chunks)
		job.CompletedBatches = 0
		startUpdates["chunks"] = types.MustJSON(chunks)
		startUpdates["total_batches"] = len(chunks)
		startUpdates["completed_batches"] = 0
	}
	if err := ps.transition(ctx, job, types.JobStatusGenerating, startUpdates); err != nil {
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
	seen, err := job.SeenItemTextList()
	if err != nil {
		return fmt.Errorf("failed to decode seen texts: %w", err)
	}

	// Quota tracks generated content only; items staged by the split stage
	// of an extraction-first job do not consume it.
	generatedItems := 0
	for _, it := range items {
		if it.Origin == types.ContentOriginGenerated {
			generatedItems++
		}
	}
	generatedCards := len(cards)

	for i := job.CompletedBatches; i < job.TotalBatches; i++ {
		itemTarget := chunker.PerBatchTarget(job.QuotaItemCount-generatedItems, job.TotalBatches-i)
		cardTarget := chunker.PerBatchTarget(job.QuotaCardCount-generatedCards, job.TotalBatches-i)
		if itemTarget == 0 && cardTarget == 0 {
			// Quota met; the remaining chunks only need their checkpoint.
			ok, uerr := ps.jobRepo.UpdateFieldsWhereStatus(ctx, nil, job.ID, types.JobStatusGenerating,
				map[string]any{"completed_batches": i + 1})
			if uerr != nil {
				return fmt.Errorf("failed to checkpoint batch %d: %w", i, uerr)
			}
			if !ok {
				return &apperr.PreconditionError{JobID: job.ID, Expected: []string{string(types.JobStatusGenerating)}, Actual: "changed concurrently"}
			}
			job.CompletedBatches = i + 1
			continue
		}

		raw, gerr := ps.ai.Generate(ctx, generationSystem, generationUser(chunks[i], itemTarget, cardTarget, seen))
		if gerr != nil {
			ps.failJob(ctx, job, types.JobStatusPartiallyFailed, fmt.Sprintf("generation batch %d", i), gerr)
			return fmt.Errorf("generation batch %d failed: %w", i, gerr)
		}
		var resp generationResponse
		if perr := aijson.Unmarshal(raw, &resp); perr != nil {
			ps.failJob(ctx, job, types.JobStatusPartiallyFailed, fmt.Sprintf("generation batch %d", i), perr)
			return perr
		}

		for _, it := range resp.Items {
			if strings.TrimSpace(it.Question) == "" || strings.TrimSpace(it.Answer) == "" {
				continue
			}
			items = append(items, types.StagedItem{
				Question:    it.Question,
				Answer:      it.Answer,
				Explanation: it.Explanation,
				Origin:      types.ContentOriginGenerated,
				Tags:        it.Tags,
			})
			seen = append(seen, it.Question)
			generatedItems++
		}
		for _, c := range resp.Cards {
			if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
				continue
			}
			cards = append(cards, types.StagedCard{
				Front:  c.Front,
				Back:   c.Back,
				Origin: types.ContentOriginGenerated,
			})
			generatedCards++
		}

		ok, uerr := ps.jobRepo.UpdateFieldsWhereStatus(ctx, nil, job.ID, types.JobStatusGenerating, map[string]any{
			"staged_items":      types.MustJSON(items),
			"staged_cards":      types.MustJSON(cards),
			"seen_item_texts":   types.MustJSON(seen),
			"completed_batches": i + 1,
		})
		if uerr != nil {
			return fmt.Errorf("failed to checkpoint batch %d: %w", i, uerr)
		}
		if !ok {
			return &apperr.PreconditionError{JobID: job.ID, Expected: []string{string(types.JobStatusGenerating)}, Actual: "changed concurrently"}
		}
		job.CompletedBatches = i + 1
		ps.log.Debug("generation batch complete", "job_id", job.ID, "batch", i+1, "of", job.TotalBatches)
	}

	ps.log.Info("generation complete", "job_id", job.ID, "items", len(items), "cards", len(cards))
	return ps.transition(ctx, job, types.JobStatusAwaitingAssignment, nil)
}
