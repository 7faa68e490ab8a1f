package handlers

import (
	"errors"
	"log"
	"net/http"

	"factorymind-backend/analysis"
	"factorymind-backend/embedding"
	"factorymind-backend/llm"
	"factorymind-backend/pdfextract"
	"factorymind-backend/repository"
	"factorymind-backend/service"

	"github.com/gin-gonic/gin"
)

// respondError writes the standard error envelope
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps a service error to its status code and envelope
func respondServiceError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	respondError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"
	case errors.Is(err, analysis.ErrEmptyTable):
		return http.StatusUnprocessableEntity, "EMPTY_DATASET"
	case errors.Is(err, service.ErrContentExtractionEmpty):
		return http.StatusUnprocessableEntity, "NO_EXTRACTABLE_TEXT"
	case errors.Is(err, pdfextract.ErrInvalidPDF):
		return http.StatusUnprocessableEntity, "INVALID_PDF"
	case errors.Is(err, repository.ErrDocumentNotFound):
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND"
	case errors.Is(err, repository.ErrReportNotFound):
		return http.StatusNotFound, "REPORT_NOT_FOUND"
	case errors.Is(err, embedding.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "EMBEDDING_UNAVAILABLE"
	case errors.Is(err, llm.ErrCompletionFailed):
		return http.StatusServiceUnavailable, "COMPLETION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
