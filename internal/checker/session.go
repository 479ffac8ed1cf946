package checker

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/archive"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/matcher"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/parser"
)

// ArchivePrefix 压缩包来源显示名前缀
const ArchivePrefix = "📦 "

// Options 会话选项
type Options struct {
	UploadDir         string // 压缩包解压根目录，为空时使用系统临时目录
	DefaultExtensions string
	Logger            *slog.Logger
}

// Session 一次用户会话：花名册、筛选策略、作业来源与最近一次检查结果
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	updatedAt time.Time
	roster    *model.Roster
	notices   []parser.Notice
	filter    model.ExtensionFilter
	sources   []model.Source
	tempDirs  []string
	report    *model.CheckReport

	uploadDir string
	matcher   *matcher.SubmissionMatcher
	logger    *slog.Logger
}

// RosterSummary 花名册概要
type RosterSummary struct {
	FileName      string `json:"fileName"`
	TotalStudents int    `json:"totalStudents"`
	HeaderRow     int    `json:"headerRow"`
	IDColumn      string `json:"idColumn"`
	NameColumn    string `json:"nameColumn"`
}

// State 会话状态快照
type State struct {
	ID             string                `json:"id"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	Roster         *RosterSummary        `json:"roster"`
	Notices        []parser.Notice       `json:"notices"`
	Filter         model.ExtensionFilter `json:"filter"`
	Sources        []model.Source        `json:"sources"`
	CheckPerformed bool                  `json:"checkPerformed"`
	ReadyToCheck   bool                  `json:"readyToCheck"`
}

// NewSession 创建会话
func NewSession(id string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exts := opts.DefaultExtensions
	if exts == "" {
		exts = matcher.DefaultExtensions
	}

	now := time.Now().UTC()
	return &Session{
		ID:        id,
		CreatedAt: now,
		updatedAt: now,
		filter:    matcher.NewFilter(false, exts),
		sources:   []model.Source{},
		uploadDir: opts.UploadDir,
		matcher:   matcher.NewSubmissionMatcher(logger),
		logger:    logger.With(slog.String("session", id)),
	}
}

// LoadRoster 替换花名册（整体替换），并使上次检查结果失效
func (s *Session) LoadRoster(res *parser.RosterResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roster = res.Roster
	s.notices = res.Notices
	s.invalidateLocked()
	s.logger.Info("roster loaded", slog.Int("students", res.Roster.TotalStudents()))
}

// Roster 当前花名册，未上传时为 nil
func (s *Session) Roster() *model.Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster
}

// SetFilter 设置文件类型筛选策略
func (s *Session) SetFilter(filter model.ExtensionFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.Extensions == nil {
		filter.Extensions = []string{}
	}
	s.filter = filter
	s.invalidateLocked()
}

// Filter 当前筛选策略
func (s *Session) Filter() model.ExtensionFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// AddLocalFolder 添加本地文件夹，路径需存在且为目录
func (s *Session) AddLocalFolder(path string) (model.Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return model.Source{}, ErrInvalidPath
	}

	info, err := os.Stat(path)
	if err != nil {
		return model.Source{}, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	if !info.IsDir() {
		return model.Source{}, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return model.Source{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range s.sources {
		if src.Path == abs {
			return model.Source{}, fmt.Errorf("%w: %s", ErrDuplicateSource, abs)
		}
	}

	src := model.Source{
		Path:        abs,
		DisplayName: s.uniqueNameLocked(filepath.Base(abs)),
		AddedAt:     time.Now().UTC(),
	}
	s.sources = append(s.sources, src)
	s.invalidateLocked()
	s.logger.Info("local folder added", slog.String("path", abs))
	return src, nil
}

// AddArchive 将上传的压缩包解压到独立临时目录并作为来源添加
func (s *Session) AddArchive(name string, r io.ReaderAt, size int64) (model.Source, error) {
	s.mu.Lock()
	uploadDir := s.uploadDir
	s.mu.Unlock()

	dir, err := archive.NewTempDir(uploadDir)
	if err != nil {
		return model.Source{}, fmt.Errorf("%w: %v", ErrBadArchive, err)
	}

	n, err := archive.ExtractZip(r, size, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return model.Source{}, fmt.Errorf("%w: %w", ErrBadArchive, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := model.Source{
		Path:        archive.ContentRoot(dir),
		DisplayName: s.uniqueNameLocked(ArchivePrefix + name),
		Archive:     true,
		AddedAt:     time.Now().UTC(),
	}
	s.sources = append(s.sources, src)
	s.tempDirs = append(s.tempDirs, dir)
	s.invalidateLocked()
	s.logger.Info("archive extracted", slog.String("name", name), slog.String("dir", dir), slog.Int("files", n))
	return src, nil
}

// Sources 已添加的来源
func (s *Session) Sources() []model.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Source(nil), s.sources...)
}

// ClearSources 清空所有来源，解压目录尽力删除
func (s *Session) ClearSources() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeTempDirsLocked()
	s.sources = []model.Source{}
	s.invalidateLocked()
}

// Check 检查所有来源；单个来源失败时记录到报告的 Errors 中并跳过
func (s *Session) Check(progress func(ProgressEvent)) (*model.CheckReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roster == nil {
		return nil, ErrNoRoster
	}
	if len(s.sources) == 0 {
		return nil, ErrNoSources
	}

	start := time.Now()
	results := make([]sourceResult, 0, len(s.sources))
	var failures []model.SourceError

	for i, src := range s.sources {
		reportProgress(progress, i*100/len(s.sources), "正在检查", src.DisplayName)

		res, err := s.matcher.ScanFolder(src.Path, s.roster.StudentIDs, s.filter)
		if err != nil {
			s.logger.Warn("folder check failed",
				slog.String("source", src.DisplayName),
				slog.String("error", err.Error()))
			failures = append(failures, model.SourceError{
				Name:    src.DisplayName,
				Path:    src.Path,
				Message: fmt.Sprintf("检查文件夹 %s 时出错: %v", src.Path, err),
			})
			continue
		}
		results = append(results, sourceResult{source: src, result: res})
	}

	report := buildReport(s.roster, s.filter, results)
	report.Errors = failures
	s.report = report
	s.updatedAt = time.Now().UTC()

	reportProgress(progress, 100, "检查完成", "")
	s.logger.Info("check finished",
		slog.Int("folders", len(report.Folders)),
		slog.Int("failed", len(failures)),
		slog.Int("total_missing", report.TotalMissing),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}

// Report 最近一次检查结果，未检查或已失效时为 nil
func (s *Session) Report() *model.CheckReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// State 返回会话状态快照
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.updatedAt,
		Notices:        append([]parser.Notice(nil), s.notices...),
		Filter:         s.filter,
		Sources:        append([]model.Source{}, s.sources...),
		CheckPerformed: s.report != nil,
		ReadyToCheck:   s.roster != nil && len(s.sources) > 0,
	}
	if s.roster != nil {
		st.Roster = &RosterSummary{
			FileName:      s.roster.FileName,
			TotalStudents: s.roster.TotalStudents(),
			HeaderRow:     s.roster.HeaderRow,
			IDColumn:      s.roster.IDColumn,
			NameColumn:    s.roster.NameColumn,
		}
	}
	return st
}

// Close 释放会话占用的解压目录
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeTempDirsLocked()
}

// uniqueNameLocked 同名来源追加 " (2)"、" (3)" 后缀
func (s *Session) uniqueNameLocked(name string) string {
	taken := make(map[string]bool, len(s.sources))
	for _, src := range s.sources {
		taken[src.DisplayName] = true
	}
	if !taken[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", name, i)
		if !taken[candidate] {
			return candidate
		}
	}
}

func (s *Session) invalidateLocked() {
	s.report = nil
	s.updatedAt = time.Now().UTC()
}

func (s *Session) removeTempDirsLocked() {
	for _, dir := range s.tempDirs {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove temp dir", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}
	s.tempDirs = nil
}
