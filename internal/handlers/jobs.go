package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/apperr"
	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/requestdata"
	"github.com/yungbote/studybridge-backend/internal/services"
	"github.com/yungbote/studybridge-backend/internal/types"
)

// maxUploadBytes bounds source uploads at 32 MiB.
const maxUploadBytes = 32 << 20

type JobHandler struct {
	log      *logger.Logger
	pipeline services.PipelineService
}

func NewJobHandler(log *logger.Logger, pipeline services.PipelineService) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), pipeline: pipeline}
}

// Create accepts a multipart upload with the source file plus variant and
// kind fields, stores the source, and opens the job in its ingesting state.
func (h *JobHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("missing file upload"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("upload exceeds %d bytes", maxUploadBytes))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}

	job, err := h.pipeline.CreateJob(c.Request.Context(), services.CreateJobInput{
		UserID:     rd.UserID,
		Variant:    types.JobVariant(c.PostForm("variant")),
		SourceName: fileHeader.Filename,
		SourceKind: types.SourceKind(c.PostForm("kind")),
		FileData:   data,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, job)
}

func (h *JobHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	jobs, err := h.pipeline.ListJobs(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, jobs)
}

func (h *JobHandler) Get(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	RespondOK(c, job)
}

func (h *JobHandler) Ingest(c *gin.Context)  { h.runStage(c, h.pipeline.Ingest) }
func (h *JobHandler) Split(c *gin.Context)   { h.runStage(c, h.pipeline.SplitExtracted) }
func (h *JobHandler) Plan(c *gin.Context)    { h.runStage(c, h.pipeline.Plan) }
func (h *JobHandler) Generate(c *gin.Context) {
	h.runStage(c, h.pipeline.StartGeneration)
}

func (h *JobHandler) Suggest(c *gin.Context) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	var body struct {
		SubjectScope string `json:"subject_scope"`
	}
	// Body is optional; an unscoped suggestion is the common case.
	_ = c.ShouldBindJSON(&body)
	if err := h.pipeline.SuggestAssignment(c.Request.Context(), job.ID, body.SubjectScope); err != nil {
		RespondServiceError(c, err)
		return
	}
	h.respondJob(c, job.ID)
}

func (h *JobHandler) Approve(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	var pick types.AssignmentSuggestion
	if err := c.ShouldBindJSON(&pick); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if err := h.pipeline.Approve(c.Request.Context(), job.ID, rd.UserID, pick); err != nil {
		RespondServiceError(c, err)
		return
	}
	h.respondJob(c, job.ID)
}

func (h *JobHandler) Reset(c *gin.Context)    { h.runStage(c, h.pipeline.Reset) }
func (h *JobHandler) Reassign(c *gin.Context) { h.runStage(c, h.pipeline.Reassign) }
func (h *JobHandler) Regenerate(c *gin.Context) {
	h.runStage(c, h.pipeline.PrepareForRegeneration)
}
func (h *JobHandler) Archive(c *gin.Context) { h.runStage(c, h.pipeline.Archive) }

func (h *JobHandler) runStage(c *gin.Context, stage func(ctx context.Context, jobID uuid.UUID) error) {
	job, ok := h.ownedJob(c)
	if !ok {
		return
	}
	if err := stage(c.Request.Context(), job.ID); err != nil {
		RespondServiceError(c, err)
		return
	}
	h.respondJob(c, job.ID)
}

// ownedJob loads the path job and enforces ownership; admins may act on
// any job.
func (h *JobHandler) ownedJob(c *gin.Context) (*types.GenerationJob, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid job id"))
		return nil, false
	}
	job, err := h.pipeline.GetJob(c.Request.Context(), jobID)
	if err != nil {
		RespondServiceError(c, err)
		return nil, false
	}
	if job.UserID != rd.UserID && !rd.IsAdmin {
		RespondError(c, http.StatusNotFound, "not_found", apperr.ErrNotFound)
		return nil, false
	}
	return job, true
}

func (h *JobHandler) respondJob(c *gin.Context, jobID uuid.UUID) {
	job, err := h.pipeline.GetJob(c.Request.Context(), jobID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, job)
}
