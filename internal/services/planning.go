package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/pkg/aijson"
	"github.com/yungbote/studybridge-backend/internal/types"
)

type planResponse struct {
	ItemCount int `json:"item_count"`
	CardCount int `json:"card_count"`
}

// Plan asks the model to size the generation quota from a prefix of the
// source. A missing count decodes as zero, which downstream treats as "do
// not generate that kind". A failed call leaves the job in its current
// state so planning can simply be retried.
func (ps *pipelineService) Plan(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID, types.JobStatusExtracted)
	if err != nil {
		return err
	}

	// Clip on a rune boundary so a multi-byte character is never cut in
	// half at the edge of the prompt.
	clipped := job.SourceText
	if runes := []rune(clipped); len(runes) > planClipChars {
		clipped = string(runes[:planClipChars])
	}

	raw, err := ps.ai.Generate(ctx, planningSystem, planningUser(clipped))
	if err != nil {
		ps.recordError(ctx, job, "planning", err)
		return fmt.Errorf("planning call failed: %w", err)
	}

	var resp planResponse
	if err := aijson.Unmarshal(raw, &resp); err != nil {
		ps.recordError(ctx, job, "planning", err)
		return err
	}
	if resp.ItemCount < 0 {
		resp.ItemCount = 0
	}
	if resp.CardCount < 0 {
		resp.CardCount = 0
	}

	ps.log.Info("generation plan sized", "job_id", job.ID, "item_count", resp.ItemCount, "card_count", resp.CardCount)
	return ps.transition(ctx, job, types.JobStatusPlanningDone, map[string]any{
		"quota_item_count": resp.ItemCount,
		"quota_card_count": resp.CardCount,
	})
}
