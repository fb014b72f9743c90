package types

// JobStatus is the single enumerated progress value on a GenerationJob.
// Stages only move a job forward; the rollback operations (reset, reassign,
// prepare-for-regeneration) provide the explicit back-edges.
type JobStatus string

const (
	JobStatusIngesting           JobStatus = "ingesting"
	JobStatusNeedsSplit          JobStatus = "needs_split"
	JobStatusExtracted           JobStatus = "extracted"
	JobStatusPlanningDone        JobStatus = "planning_done"
	JobStatusReadyForGeneration  JobStatus = "ready_for_generation"
	JobStatusGenerating          JobStatus = "generating"
	JobStatusAwaitingAssignment  JobStatus = "awaiting_assignment"
	JobStatusAssignmentSuggested JobStatus = "assignment_suggested"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusArchived            JobStatus = "archived"
	JobStatusError               JobStatus = "error"
	JobStatusPartiallyFailed     JobStatus = "partially_failed"
)

// IsTerminal reports whether the job has settled (successfully or not).
// Rollback operations may resurrect a job from any of these.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusArchived, JobStatusError, JobStatusPartiallyFailed:
		return true
	}
	return false
}

// JobVariant selects which pipeline a job runs.
type JobVariant string

const (
	// VariantExtractionFirst first splits extracted text into items before
	// any generation happens.
	VariantExtractionFirst JobVariant = "extraction-first"
	// VariantDirectGeneration goes straight from extracted text to planning.
	VariantDirectGeneration JobVariant = "direct-generation"
)

// SourceKind is the declared content kind of the uploaded artifact.
type SourceKind string

const (
	SourceKindPDF  SourceKind = "pdf"
	SourceKindText SourceKind = "text"
)

// ContentOrigin records where a staged item came from.
type ContentOrigin string

const (
	ContentOriginExtracted ContentOrigin = "extracted"
	ContentOriginGenerated ContentOrigin = "generated"
)
