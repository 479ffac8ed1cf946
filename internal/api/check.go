package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
)

type checkProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Check 执行检查并返回报告
// POST /api/sessions/:id/check
func (h *Handler) Check(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	report, err := sess.Check(nil)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CheckStream 执行检查（SSE 进度，完成事件携带报告）
// POST /api/sessions/:id/check/stream
func (h *Handler) CheckStream(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event checkProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	send(checkProgressEvent{
		Type:      "start",
		Message:   "开始检查",
		Data:      map[string]any{"sources": len(sess.Sources())},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	report, err := sess.Check(func(p checker.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(checkProgressEvent{
			Type:      "progress",
			Message:   p.Stage,
			Data:      map[string]any{"percent": p.Percent, "folder": p.Folder},
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		_, msg := describeError(err)
		send(checkProgressEvent{
			Type:      "error",
			Message:   msg,
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
		return
	}

	send(checkProgressEvent{
		Type:      "done",
		Message:   "检查完成",
		Data:      report,
		Timestamp: time.Now(),
	})
}

// GetReport 获取最近一次检查报告
// GET /api/sessions/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	report := sess.Report()
	if report == nil {
		writeError(c, errNoReport)
		return
	}
	c.JSON(http.StatusOK, report)
}
