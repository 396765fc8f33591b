package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"document-qa/internal/models"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func RespondWithError(c *gin.Context, statusCode int, errorCode, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
	})
}

func RespondWithBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message)
}

// classify maps a pipeline error onto an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, models.ErrInvalidFilename):
		return http.StatusBadRequest, "invalid_filename"
	case errors.Is(err, models.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid_query"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "empty_document"
	case errors.Is(err, models.ErrEmbedding):
		return http.StatusBadGateway, "embedding_failed"
	case errors.Is(err, models.ErrGeneration):
		return http.StatusBadGateway, "generation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// RespondWithPipelineError reports err with the status its kind maps to.
func RespondWithPipelineError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := classify(err)
	RespondWithError(c, status, code, err.Error())
}
