package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/exporter"
)

const bundleTTL = 10 * time.Minute

// ExportItem 导出文件条目
type ExportItem struct {
	Index int `json:"index"`
	exporter.File
	URL string `json:"url"`
}

// ListExports 列出根据最近一次检查生成的导出文件
// GET /api/sessions/:id/exports
func (h *Handler) ListExports(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	files, ok := h.buildExports(c, sess)
	if !ok {
		return
	}

	items := make([]ExportItem, 0, len(files))
	for i, f := range files {
		items = append(items, ExportItem{
			Index: i,
			File:  f,
			URL:   fmt.Sprintf("%s/sessions/%s/exports/%d", apiPrefix(c), sess.ID, i),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"files":      items,
		"bundleName": exporter.BundleFileName,
	})
}

// DownloadExportFile 下载单个导出文件
// GET /api/sessions/:id/exports/:index
func (h *Handler) DownloadExportFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的文件序号"})
		return
	}

	files, ok := h.buildExports(c, sess)
	if !ok {
		return
	}
	if index < 0 || index >= len(files) {
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}

	f := files[index]
	fallback := fmt.Sprintf("missing-list-%d%s", index, filepath.Ext(f.Filename))
	c.Header("Content-Disposition", buildContentDisposition(fallback, f.Filename))
	c.Data(http.StatusOK, f.MIME, f.Data)
}

// BundleExports 打包全部导出文件并返回一次性下载地址
// POST /api/sessions/:id/exports/bundle
func (h *Handler) BundleExports(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	files, ok := h.buildExports(c, sess)
	if !ok {
		return
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "所有学生均已提交，没有需要导出的名单"})
		return
	}

	data, err := h.exporter.Bundle(files)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "打包失败: " + err.Error()})
		return
	}

	tmp, err := os.CreateTemp("", "hwcheck_bundle_*.zip")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "写入打包文件失败: " + err.Error()})
		return
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "写入打包文件失败: " + err.Error()})
		return
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "写入打包文件失败: " + err.Error()})
		return
	}

	token := h.downloads.put(tmp.Name(), exporter.BundleFileName, bundleTTL)
	c.JSON(http.StatusOK, gin.H{
		"filename":    exporter.BundleFileName,
		"files":       len(files),
		"size":        len(data),
		"downloadUrl": fmt.Sprintf("%s/export/download/%s", apiPrefix(c), token),
	})
}

// DownloadExport 下载打包文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 token"})
		return
	}

	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}
	defer os.Remove(item.filePath)

	if _, err := os.Stat(item.filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}

	c.Header("Content-Disposition", buildContentDisposition("homework-check-results.zip", item.fileName))
	c.Header("Content-Type", exporter.MIMEZip)
	c.File(item.filePath)
}

func (h *Handler) buildExports(c *gin.Context, sess *checker.Session) ([]exporter.File, bool) {
	report := sess.Report()
	if report == nil {
		writeError(c, errNoReport)
		return nil, false
	}

	files, err := h.exporter.Build(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成导出文件失败: " + err.Error()})
		return nil, false
	}
	return files, true
}

// apiPrefix 路由组前缀，例如 /api
func apiPrefix(c *gin.Context) string {
	full := c.FullPath()
	if i := strings.Index(full, "/sessions/"); i >= 0 {
		return full[:i]
	}
	return "/api"
}

// buildContentDisposition ASCII 文件名兜底，filename* 携带 UTF-8 原名
func buildContentDisposition(fallback, name string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", fallback, url.PathEscape(name))
}
