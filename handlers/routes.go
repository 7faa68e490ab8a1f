package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, docs *DocumentHandler, reports *ReportHandler, system *SystemHandler, adminTokenHash string) {
	r.GET("/", system.Root)
	r.GET("/health", system.Health)
	r.GET("/history", system.History)

	// Document endpoints
	r.POST("/upload/document", docs.UploadDocument)
	r.GET("/documents", docs.ListDocuments)
	r.GET("/documents/:filename/file", docs.DownloadDocument)
	r.DELETE("/documents/:filename", docs.DeleteDocument)
	r.POST("/chat/query", docs.Query)

	// Dataset and report endpoints
	r.POST("/upload/data", reports.UploadData)
	r.POST("/reports/generate", reports.GenerateReport)
	r.POST("/report/generate", reports.GenerateReport)
	r.GET("/reports", reports.ListReports)
	r.GET("/reports/:id", reports.GetReport)
	r.DELETE("/reports/:id", reports.DeleteReport)

	admin := r.Group("/admin", RequireAdminToken(adminTokenHash))
	{
		admin.DELETE("/documents", docs.ClearDocuments)
		admin.DELETE("/reports", reports.ClearReports)
	}
}
