package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studybridge-backend/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps service-layer error kinds onto HTTP statuses.
// Precondition failures surface as 409 so clients know to re-read the job.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, apperr.ErrInvalidInput):
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
	case apperr.IsPrecondition(err):
		RespondError(c, http.StatusConflict, "precondition_failed", err)
	case apperr.IsMalformedOutput(err):
		RespondError(c, http.StatusBadGateway, "malformed_model_output", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
