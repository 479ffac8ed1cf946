package matcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/parser"
)

// SubmissionMatcher 作业提交匹配器
type SubmissionMatcher struct {
	logger *slog.Logger
}

// NewSubmissionMatcher 创建匹配器
func NewSubmissionMatcher(logger *slog.Logger) *SubmissionMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionMatcher{logger: logger}
}

// ScanFolder 检查文件夹（不递归）中的作业文件
// 文件名含 9 位学号且后缀符合策略的文件计为已提交
func (m *SubmissionMatcher) ScanFolder(dir string, rosterIDs model.IDSet, filter model.ExtensionFilter) (*model.FolderScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	submitted := make(model.IDSet)
	stats := make(map[string]int)
	skipped := 0

	for _, entry := range entries {
		if !isRegularFile(dir, entry) {
			continue
		}

		name := entry.Name()
		id, ok := parser.ExtractStudentID(name)
		if !ok {
			skipped++
			continue
		}

		ext := FileSuffix(name)
		if !filter.Accept(ext) {
			skipped++
			continue
		}

		submitted.Add(id)
		stats[ext]++
	}

	missing := rosterIDs.Difference(submitted)

	m.logger.Debug("folder scanned",
		slog.String("dir", dir),
		slog.Int("files", len(entries)),
		slog.Int("skipped", skipped),
		slog.Int("submitted", submitted.Len()),
		slog.Int("missing", missing.Len()))

	return &model.FolderScanResult{
		SubmittedIDs:   submitted,
		MissingIDs:     missing,
		SubmittedCount: submitted.Len(),
		MissingCount:   missing.Len(),
		FileTypeStats:  stats,
	}, nil
}

// isRegularFile 判断目录项是否为普通文件，符号链接按目标判断
func isRegularFile(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
