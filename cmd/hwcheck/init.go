package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/config"
)

var (
	initPath  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "生成默认配置文件 config.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initPath
		if path == "" {
			path = config.DefaultPath()
		}
		return runInit(cmd.OutOrStdout(), path, initForce)
	},
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", "", "配置文件路径 (默认为可执行文件同目录)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "覆盖已存在的配置文件")
}

func runInit(w io.Writer, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("配置文件已存在: %s (使用 --force 覆盖)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if err := config.SaveTo(path, config.DefaultConfig()); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	fmt.Fprintf(w, "已生成配置文件: %s\n", path)
	return nil
}
