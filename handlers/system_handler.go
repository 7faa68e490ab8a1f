package handlers

import (
	"net/http"
	"time"

	"factorymind-backend/service"

	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// SystemHandler serves service status and combined history
type SystemHandler struct {
	rag     *service.RAGService
	reports *service.ReportService
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(rag *service.RAGService, reports *service.ReportService) *SystemHandler {
	return &SystemHandler{rag: rag, reports: reports}
}

// Root handles GET /
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "FactoryMind AI API",
		"status":  "operational",
		"version": Version,
	})
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"rag_stats":     h.rag.Stats(ctx),
		"reports_count": h.reports.ReportCount(ctx),
	})
}

// History handles GET /history
func (h *SystemHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	docs, err := h.rag.ListDocuments(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	reports, err := h.reports.ListReports(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"documents": gin.H{"count": len(docs), "items": docs},
			"reports":   gin.H{"count": len(reports), "items": reports},
		},
	})
}
