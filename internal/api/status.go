package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Status        string    `json:"status"`
	Sessions      int       `json:"sessions"`      // 活跃会话数
	StartedAt     time.Time `json:"startedAt"`     // 服务启动时间
	UptimeSeconds int64     `json:"uptimeSeconds"` // 运行时长
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:        "ok",
		Sessions:      h.sessions.Count(),
		StartedAt:     h.startedAt.UTC(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	})
}
