package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/api"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/config"
)

// Server HTTP服务器
type Server struct {
	router   *gin.Engine
	sessions *checker.Store
	api      *api.Handler

	mu         sync.Mutex
	httpServer *http.Server
	shutdown   bool
}

// NewServer 创建服务器；uploadDir 为压缩包解压根目录
func NewServer(cfg *config.AppConfig, uploadDir string, logger *slog.Logger) *Server {
	devMode := cfg.Server.DevMode
	if !devMode {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions := checker.NewStore(checker.Options{
		UploadDir:         uploadDir,
		DefaultExtensions: cfg.Check.DefaultExtensions,
		Logger:            logger,
	})

	router := gin.Default()
	router.MaxMultipartMemory = 32 << 20

	s := &Server{
		router:   router,
		sessions: sessions,
		api:      api.NewHandler(sessions, cfg.MaxUploadBytes(), logger),
	}

	s.setupRoutes()

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	group := s.router.Group("/api")
	{
		s.api.RegisterRoutes(group)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "接口不存在"})
	})
}

// Handler 返回 HTTP 处理器（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 监听 addr 并阻塞处理请求，Shutdown 后返回 nil
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在已有的 listener 上处理请求
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return ln.Close()
	}
	s.httpServer = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收新连接并等待进行中的请求结束，超时后强制关闭连接
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return err
	}
	return nil
}

// Close 清理所有会话的解压目录与未下载的打包文件
func (s *Server) Close() {
	s.sessions.Clear()
	s.api.Close()
}

// Sessions 获取会话存储（用于测试）
func (s *Server) Sessions() *checker.Store {
	return s.sessions
}
