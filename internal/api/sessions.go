package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/matcher"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/parser"
)

// FilterRequest 文件类型筛选请求
type FilterRequest struct {
	AllTypes   bool   `json:"allTypes"`
	Extensions string `json:"extensions"` // 逗号分隔，例如 ".py, .zip"
}

// LocalFolderRequest 添加本地文件夹请求
type LocalFolderRequest struct {
	Path string `json:"path"`
}

// RosterResponse 花名册上传响应
type RosterResponse struct {
	Roster      *checker.RosterSummary `json:"roster"`
	HeaderFound bool                   `json:"headerFound"`
	Notices     []parser.Notice        `json:"notices"`
}

// SourceResponse 添加来源响应
type SourceResponse struct {
	Source  model.Source   `json:"source"`
	Sources []model.Source `json:"sources"`
}

// session 取路径中的会话，不存在时写入 404
func (h *Handler) session(c *gin.Context) (*checker.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return sess, true
}

// CreateSession 创建会话
// POST /api/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	sess := h.sessions.Create()
	c.JSON(http.StatusCreated, sess.State())
}

// GetSession 获取会话状态
// GET /api/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.State())
}

// DeleteSession 删除会话并清理解压目录
// DELETE /api/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadRoster 上传学生花名册 (multipart: file)
// POST /api/sessions/:id/roster
func (h *Handler) UploadRoster(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	fh, ok := h.formFile(c)
	if !ok {
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer f.Close()

	res, err := h.parser.Parse(f, fh.Filename)
	if err != nil {
		h.logger.Warn("roster rejected", "session", sess.ID, "file", fh.Filename, "error", err)
		writeError(c, err)
		return
	}
	sess.LoadRoster(res)

	c.JSON(http.StatusOK, RosterResponse{
		Roster:      sess.State().Roster,
		HeaderFound: res.HeaderFound,
		Notices:     res.Notices,
	})
}

// SetFilter 设置文件类型筛选策略
// PUT /api/sessions/:id/filter
func (h *Handler) SetFilter(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	filter := matcher.NewFilter(req.AllTypes, req.Extensions)
	if !filter.AllTypes && len(filter.Extensions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请至少填写一个文件后缀，或选择查找所有类型"})
		return
	}
	sess.SetFilter(filter)
	c.JSON(http.StatusOK, sess.Filter())
}

// AddLocalFolder 添加本地作业文件夹
// POST /api/sessions/:id/sources/local
func (h *Handler) AddLocalFolder(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req LocalFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数"})
		return
	}

	src, err := sess.AddLocalFolder(req.Path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SourceResponse{Source: src, Sources: sess.Sources()})
}

// UploadArchive 上传作业压缩包 (multipart: file)，解压后作为来源
// POST /api/sessions/:id/sources/archive
func (h *Handler) UploadArchive(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	fh, ok := h.formFile(c)
	if !ok {
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".zip") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请上传 ZIP 格式的压缩包"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer f.Close()

	src, err := sess.AddArchive(fh.Filename, f, fh.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SourceResponse{Source: src, Sources: sess.Sources()})
}

// ClearSources 清空作业来源
// DELETE /api/sessions/:id/sources
func (h *Handler) ClearSources(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.ClearSources()
	c.JSON(http.StatusOK, sess.State())
}

// formFile 读取 multipart 中的 file 字段
func (h *Handler) formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "上传文件过大"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return nil, false
	}
	return fh, true
}
