package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/pkg/aijson"
	"github.com/yungbote/studybridge-backend/internal/types"
)

// Ingest pulls the uploaded source into text. PDF sources go through OCR;
// plain text is read straight off the bucket. Extraction failures are
// terminal for the job: the operator re-uploads rather than retrying a
// document that could not be read.
func (ps *pipelineService) Ingest(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID, types.JobStatusIngesting)
	if err != nil {
		return err
	}

	var text string
	switch job.SourceKind {
	case types.SourceKindPDF:
		pages, oerr := ps.ocr.RecognizeDocument(ctx, ps.bucket.GCSURI(job.StorageKey), "application/pdf")
		if oerr != nil {
			ps.failJob(ctx, job, types.JobStatusError, "extraction", oerr)
			return fmt.Errorf("document OCR failed: %w", oerr)
		}
		var b strings.Builder
		for _, p := range pages {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(p.Text)
		}
		text = b.String()
	case types.SourceKindText:
		rc, derr := ps.bucket.DownloadFile(ctx, job.StorageKey)
		if derr != nil {
			ps.failJob(ctx, job, types.JobStatusError, "extraction", derr)
			return fmt.Errorf("source download failed: %w", derr)
		}
		raw, rerr := io.ReadAll(rc)
		rc.Close()
		if rerr != nil {
			ps.failJob(ctx, job, types.JobStatusError, "extraction", rerr)
			return fmt.Errorf("source read failed: %w", rerr)
		}
		text = string(raw)
	default:
		err := fmt.Errorf("unsupported source kind %q", job.SourceKind)
		ps.failJob(ctx, job, types.JobStatusError, "extraction", err)
		return err
	}

	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("no text extracted from source %q", job.SourceName)
		ps.failJob(ctx, job, types.JobStatusError, "extraction", err)
		return err
	}

	next := types.JobStatusExtracted
	if job.Variant == types.VariantExtractionFirst {
		next = types.JobStatusNeedsSplit
	}
	ps.log.Info("source ingested", "job_id", job.ID, "kind", job.SourceKind, "chars", len(text))
	return ps.transition(ctx, job, next, map[string]any{"source_text": text})
}

type splitResponse struct {
	Items []struct {
		Question    string `json:"question"`
		Answer      string `json:"answer"`
		Explanation string `json:"explanation"`
	} `json:"items"`
}

// SplitExtracted reorganizes already-written material into discrete staged
// items. Only extraction-first jobs pass through this stage; the content is
// the author's, so items are staged with an extracted origin and no
// generation quota applies.
func (ps *pipelineService) SplitExtracted(ctx context.Context, jobID uuid.UUID) error {
	job, err := ps.loadJob(ctx, jobID, types.JobStatusNeedsSplit)
	if err != nil {
		return err
	}
	if job.Variant != types.VariantExtractionFirst {
		return fmt.Errorf("job %s is not an extraction-first job: %w", job.ID, apperr.ErrInvalidInput)
	}

	raw, err := ps.ai.Generate(ctx, splitSystem, splitUser(job.SourceText))
	if err != nil {
		ps.failJob(ctx, job, types.JobStatusError, "split", err)
		return fmt.Errorf("split call failed: %w", err)
	}

	var resp splitResponse
	if err := aijson.Unmarshal(raw, &resp); err != nil {
		ps.failJob(ctx, job, types.JobStatusError, "split", err)
		return err
	}

	items := make([]types.StagedItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		if strings.TrimSpace(it.Question) == "" || strings.TrimSpace(it.Answer) == "" {
			continue
		}
		items = append(items, types.StagedItem{
			Question:    it.Question,
			Answer:      it.Answer,
			Explanation: it.Explanation,
			Origin:      types.ContentOriginExtracted,
		})
	}

	ps.log.Info("extracted material split", "job_id", job.ID, "items", len(items))
	return ps.transition(ctx, job, types.JobStatusExtracted, map[string]any{
		"staged_items": types.MustJSON(items),
	})
}
