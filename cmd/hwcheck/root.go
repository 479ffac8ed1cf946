package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/config"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "hwcheck",
	Short:         "作业提交检查工具：按花名册核对作业文件夹中的学号",
	SilenceUsage:  true,
	SilenceErrors: false,
	// 不带子命令时启动服务
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, checkCmd, initCmd)
}

// loadConfig 加载配置，失败时回退到默认配置
func loadConfig(w io.Writer) (*config.AppConfig, config.LoadConfigInfo) {
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		fmt.Fprintf(w, "加载配置失败，使用默认配置: %v\n", err)
		return config.DefaultConfig(), config.LoadConfigInfo{}
	}
	return cfg, info
}

// setupLogger 按配置初始化日志，格式非法时回退到文本格式
func setupLogger(cfg *config.AppConfig, w io.Writer) *slog.Logger {
	logger, err := logging.Setup(cfg.Log, w)
	if err != nil {
		fmt.Fprintf(w, "日志配置无效，使用默认格式: %v\n", err)
		logger, _ = logging.Setup(config.LogConfig{Level: cfg.Log.Level}, w)
	}
	return logger
}
