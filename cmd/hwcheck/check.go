package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/config"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/exporter"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/matcher"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/parser"
)

// checkOptions 离线检查参数
type checkOptions struct {
	Roster     string
	Dirs       []string
	Zips       []string
	Extensions string
	AllTypes   bool
	OutDir     string
	UploadDir  string // 压缩包解压目录，空时使用系统临时目录
}

var checkOpts checkOptions

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "离线检查：按花名册核对一个或多个作业文件夹/压缩包",
	Example: `  hwcheck check --roster 名单.xlsx --dir ./作业1 --dir ./作业2
  hwcheck check --roster 名单.xlsx --zip 作业3.zip --ext ".py, .ipynb" --out ./结果`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig(cmd.ErrOrStderr())
		logger := setupLogger(cfg, cmd.ErrOrStderr())

		opts, err := withDataPaths(checkOpts, cfg, cmd.Flags().Changed("out"))
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("ext") {
			opts.Extensions = cfg.Check.DefaultExtensions
		}
		return runCheck(cmd.OutOrStdout(), opts, logger)
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVarP(&checkOpts.Roster, "roster", "r", "", "学生花名册 (.xlsx / .xls)")
	f.StringArrayVarP(&checkOpts.Dirs, "dir", "d", nil, "作业文件夹，可重复")
	f.StringArrayVarP(&checkOpts.Zips, "zip", "z", nil, "作业压缩包 (.zip)，可重复")
	f.StringVarP(&checkOpts.Extensions, "ext", "e", matcher.DefaultExtensions, "要查找的文件后缀，逗号分隔")
	f.BoolVar(&checkOpts.AllTypes, "all", false, "查找所有类型的文件")
	f.StringVarP(&checkOpts.OutDir, "out", "o", "", "导出缺交名单的目录 (默认为数据目录下的 exports)")
	_ = checkCmd.MarkFlagRequired("roster")
}

// withDataPaths 使用数据目录作为解压目录；未指定 --out 时导出到 exports 子目录
func withDataPaths(opts checkOptions, cfg *config.AppConfig, outChanged bool) (checkOptions, error) {
	paths, err := config.EnsureDataDir(cfg)
	if err != nil {
		return opts, fmt.Errorf("创建数据目录失败: %w", err)
	}
	opts.UploadDir = paths.Uploads
	if !outChanged {
		opts.OutDir = paths.Exports
	}
	return opts, nil
}

func runCheck(w io.Writer, opts checkOptions, logger *slog.Logger) error {
	if len(opts.Dirs) == 0 && len(opts.Zips) == 0 {
		return errors.New("请至少指定一个 --dir 或 --zip")
	}

	filter := matcher.NewFilter(opts.AllTypes, opts.Extensions)
	if !filter.AllTypes && len(filter.Extensions) == 0 {
		return errors.New("请至少填写一个文件后缀，或使用 --all")
	}

	res, err := parser.NewRosterParser(logger).ParseFile(opts.Roster)
	if err != nil {
		return fmt.Errorf("读取花名册失败: %w", err)
	}
	for _, n := range res.Notices {
		fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
	}

	sess := checker.NewSession("cli", checker.Options{Logger: logger, UploadDir: opts.UploadDir})
	defer sess.Close()

	sess.LoadRoster(res)
	sess.SetFilter(filter)

	for _, dir := range opts.Dirs {
		if _, err := sess.AddLocalFolder(dir); err != nil {
			return err
		}
	}
	for _, path := range opts.Zips {
		if err := addZip(sess, path); err != nil {
			return err
		}
	}

	report, err := sess.Check(nil)
	if err != nil {
		return err
	}
	printReport(w, res.Roster, report)

	if opts.OutDir == "" {
		return nil
	}
	return writeExports(w, opts.OutDir, report)
}

func addZip(sess *checker.Session, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	_, err = sess.AddArchive(filepath.Base(path), f, info.Size())
	return err
}

func printReport(w io.Writer, roster *model.Roster, report *model.CheckReport) {
	fmt.Fprintf(w, "\n花名册: %s，共 %d 名学生\n", roster.FileName, report.RosterSize)
	if report.Filter.AllTypes {
		fmt.Fprintln(w, "文件类型: 所有类型")
	} else {
		fmt.Fprintf(w, "文件类型: %s\n", strings.Join(report.Filter.Extensions, ", "))
	}

	for _, folder := range report.Folders {
		fmt.Fprintf(w, "\n[%s] 已提交 %d 人，未提交 %d 人\n", folder.Name, folder.SubmittedCount, folder.MissingCount)
		if len(folder.FileTypes) > 0 {
			parts := make([]string, 0, len(folder.FileTypes))
			for _, ft := range folder.FileTypes {
				parts = append(parts, fmt.Sprintf("%s ×%d", ft.Extension, ft.Count))
			}
			fmt.Fprintf(w, "  文件类型统计: %s\n", strings.Join(parts, ", "))
		}
		if folder.MissingCount == 0 {
			fmt.Fprintln(w, "  所有学生都已提交")
			continue
		}
		for _, m := range folder.Missing {
			fmt.Fprintf(w, "  未交: %s %s\n", m.StudentID, m.Name)
		}
	}

	for _, e := range report.Errors {
		fmt.Fprintf(w, "\n%s\n", e.Message)
	}

	fmt.Fprintf(w, "\n合计: 已提交 %d 人次，未提交 %d 人次\n", report.TotalSubmitted, report.TotalMissing)
}

func writeExports(w io.Writer, outDir string, report *model.CheckReport) error {
	exp := exporter.NewExporter()
	files, err := exp.Build(report)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "没有需要导出的缺交名单")
		return nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(outDir, f.Filename), f.Data, 0644); err != nil {
			return err
		}
	}

	bundle, err := exp.Bundle(files)
	if err != nil {
		return err
	}
	bundlePath := filepath.Join(outDir, exporter.BundleFileName)
	if err := os.WriteFile(bundlePath, bundle, 0644); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n已导出 %d 个文件到 %s\n", len(files), outDir)
	fmt.Fprintf(w, "打包文件: %s\n", bundlePath)
	return nil
}
