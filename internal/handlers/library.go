package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studybridge-backend/internal/logger"
	"github.com/yungbote/studybridge-backend/internal/services"
)

type LibraryHandler struct {
	log     *logger.Logger
	library services.LibraryService
}

func NewLibraryHandler(log *logger.Logger, library services.LibraryService) *LibraryHandler {
	return &LibraryHandler{log: log.With("handler", "LibraryHandler"), library: library}
}

func (h *LibraryHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.library.ListSubjects(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, subjects)
}

func (h *LibraryHandler) GetSubject(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	subject, err := h.library.GetSubject(c.Request.Context(), subjectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, subject)
}

func (h *LibraryHandler) ListUnitItems(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	items, err := h.library.ListUnitItems(c.Request.Context(), subjectID, c.Param("unit"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, items)
}

func (h *LibraryHandler) ListUnitCards(c *gin.Context) {
	subjectID, ok := h.subjectID(c)
	if !ok {
		return
	}
	cards, err := h.library.ListUnitCards(c.Request.Context(), subjectID, c.Param("unit"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, cards)
}

func (h *LibraryHandler) ListTags(c *gin.Context) {
	tags, err := h.library.ListTags(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, tags)
}

func (h *LibraryHandler) subjectID(c *gin.Context) (uuid.UUID, bool) {
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", fmt.Errorf("invalid subject id"))
		return uuid.Nil, false
	}
	return subjectID, true
}
