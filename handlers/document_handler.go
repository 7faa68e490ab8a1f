package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"factorymind-backend/service"
	"factorymind-backend/storage"

	"github.com/gin-gonic/gin"
)

const defaultMaxDocumentSize = 50 * 1024 * 1024

// DocumentHandler handles HTTP requests for documents and questions
type DocumentHandler struct {
	rag         *service.RAGService
	storage     storage.Storage
	maxFileSize int64
}

// NewDocumentHandler creates a new document handler. st may be nil when raw
// uploads are not kept.
func NewDocumentHandler(rag *service.RAGService, st storage.Storage) *DocumentHandler {
	return &DocumentHandler{
		rag:         rag,
		storage:     st,
		maxFileSize: defaultMaxDocumentSize,
	}
}

// UploadDocument handles POST /upload/document
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PDF files are supported")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", err.Error())
		return
	}

	result, err := h.rag.IngestPDF(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"filename": result.Filename,
			"message":  "Document processed and indexed successfully",
			"details":  result,
		},
	})
}

// ListDocuments handles GET /documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.rag.ListDocuments(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"count":     len(docs),
			"documents": docs,
		},
	})
}

// DeleteDocument handles DELETE /documents/:filename
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.rag.DeleteDocument(c.Request.Context(), filename); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"filename": filename,
			"message":  "Document deleted",
		},
	})
}

// DownloadDocument handles GET /documents/:filename/file
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	filename := c.Param("filename")
	doc, err := h.rag.GetDocument(c.Request.Context(), filename)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if h.storage == nil || doc.StoragePath == "" {
		respondError(c, http.StatusNotFound, "NOT_STORED", "Original file is not available")
		return
	}

	reader, err := h.storage.Open(c.Request.Context(), doc.StoragePath)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DOWNLOAD_FAILED",
			fmt.Sprintf("Failed to download file: %v", err))
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", doc.Filename))
	c.DataFromReader(http.StatusOK, doc.Size, doc.MimeType, reader, nil)
}

// QueryRequest is the body of POST /chat/query
type QueryRequest struct {
	Question string `json:"question"`
}

// Query handles POST /chat/query
func (h *DocumentHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondError(c, http.StatusBadRequest, "EMPTY_QUESTION", "Question cannot be empty")
		return
	}

	result, err := h.rag.Query(c.Request.Context(), question)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// ClearDocuments handles DELETE /admin/documents
func (h *DocumentHandler) ClearDocuments(c *gin.Context) {
	if err := h.rag.ClearAll(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "All documents cleared",
		},
	})
}
