package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"factorymind-backend/analysis"
	"factorymind-backend/service"

	"github.com/gin-gonic/gin"
)

const defaultMaxDatasetSize = 20 * 1024 * 1024

// ReportHandler handles HTTP requests for datasets and reports
type ReportHandler struct {
	reports     *service.ReportService
	maxFileSize int64
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reports:     reports,
		maxFileSize: defaultMaxDatasetSize,
	}
}

// UploadData handles POST /upload/data and returns the analysis only
func (h *ReportHandler) UploadData(c *gin.Context) {
	fileHeader, ok := h.datasetFile(c)
	if !ok {
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer file.Close()

	summary, err := h.reports.AnalyzeFile(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"filename": summary.Filename,
			"analysis": summary,
		},
	})
}

// GenerateReport handles POST /reports/generate
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	fileHeader, ok := h.datasetFile(c)
	if !ok {
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer file.Close()

	report, err := h.reports.GenerateReport(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    report,
	})
}

// datasetFile validates the uploaded dataset and writes the error response
// when it is unusable
func (h *ReportHandler) datasetFile(c *gin.Context) (*multipart.FileHeader, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return nil, false
	}
	if !analysis.IsSupported(fileHeader.Filename) {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only CSV and XLSX files are supported")
		return nil, false
	}
	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return nil, false
	}
	return fileHeader, true
}

// ListReports handles GET /reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports, err := h.reports.ListReports(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"count":   len(reports),
			"reports": reports,
		},
	})
}

// GetReport handles GET /reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reports.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// DeleteReport handles DELETE /reports/:id
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	id := c.Param("id")
	if err := h.reports.DeleteReport(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":      id,
			"message": "Report deleted",
		},
	})
}

// ClearReports handles DELETE /admin/reports
func (h *ReportHandler) ClearReports(c *gin.Context) {
	if err := h.reports.ClearReports(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "All reports cleared",
		},
	})
}
