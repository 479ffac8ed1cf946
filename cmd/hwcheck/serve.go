package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/config"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/server"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/util"
)

const shutdownTimeout = 10 * time.Second

var (
	servePort    int
	serveDevMode bool
	serveDataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动检查服务并打开浏览器",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&servePort, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&serveDevMode, "dev", false, "开发模式")
	cmd.Flags().StringVar(&serveDataDir, "dataDir", "", "数据目录 (覆盖配置文件)")
}

func runServe(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "==========================================")
	fmt.Fprintln(out, "  作业提交检查工具")
	fmt.Fprintln(out, "==========================================")

	cfg, info := loadConfig(out)

	// 命令行参数覆盖配置
	if servePort > 0 && !info.PortSpecified {
		cfg.Server.Port = servePort
	}
	if serveDevMode {
		cfg.Server.DevMode = true
	}
	if serveDataDir != "" {
		cfg.Data.DataDir = serveDataDir
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())

	paths, err := config.EnsureDataDir(cfg)
	if err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}
	fmt.Fprintf(out, "数据目录: %s\n", paths.Root)

	srv := server.NewServer(cfg, paths.Uploads, logger)
	defer srv.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(out, "服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		errCh <- srv.Run(addr)
	}()

	// 打开浏览器
	if !cfg.Server.DevMode {
		fmt.Fprintf(out, "正在打开浏览器: %s\n", url)
		if err := util.OpenBrowser(url); err != nil {
			fmt.Fprintf(out, "无法自动打开浏览器，请手动访问: %s\n", url)
		}
	} else {
		fmt.Fprintf(out, "开发模式: 请访问 %s\n", url)
	}

	fmt.Fprintln(out, "\n按 Ctrl+C 停止服务...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		fmt.Fprintln(out, "\n正在关闭服务...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
		}
		// 等待 Run 返回后再清理会话目录
		<-errCh
		return nil
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	}
}
