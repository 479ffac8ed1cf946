package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/exporter"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/parser"
)

// Handler API 处理器
type Handler struct {
	sessions  *checker.Store
	parser    *parser.RosterParser
	exporter  *exporter.Exporter
	downloads *exportDownloadStore
	maxUpload int64
	startedAt time.Time
	logger    *slog.Logger
}

// NewHandler 创建 API 处理器；maxUpload 为 0 时不限制上传大小
func NewHandler(sessions *checker.Store, maxUpload int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:  sessions,
		parser:    parser.NewRosterParser(logger),
		exporter:  exporter.NewExporter(),
		downloads: newExportDownloadStore(),
		maxUpload: maxUpload,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 会话
	router.POST("/sessions", h.CreateSession)
	router.GET("/sessions/:id", h.GetSession)
	router.DELETE("/sessions/:id", h.DeleteSession)

	// 花名册与筛选策略
	router.POST("/sessions/:id/roster", h.UploadRoster)
	router.PUT("/sessions/:id/filter", h.SetFilter)

	// 作业来源
	router.POST("/sessions/:id/sources/local", h.AddLocalFolder)
	router.POST("/sessions/:id/sources/archive", h.UploadArchive)
	router.DELETE("/sessions/:id/sources", h.ClearSources)

	// 检查
	router.POST("/sessions/:id/check", h.Check)
	router.POST("/sessions/:id/check/stream", h.CheckStream)
	router.GET("/sessions/:id/report", h.GetReport)

	// 导出
	router.GET("/sessions/:id/exports", h.ListExports)
	router.GET("/sessions/:id/exports/:index", h.DownloadExportFile)
	router.POST("/sessions/:id/exports/bundle", h.BundleExports)
	router.GET("/export/download/:token", h.DownloadExport)
}

// Close 清理未被下载的打包文件
func (h *Handler) Close() {
	h.downloads.clear()
}
