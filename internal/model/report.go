package model

import "time"

// MissingEntry 缺交名单条目
type MissingEntry struct {
	Folder    string `json:"folder,omitempty"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// FileTypeStat 文件类型统计
type FileTypeStat struct {
	Extension string `json:"extension"`
	Count     int    `json:"count"`
}

// FolderReport 单个来源的检查报告
type FolderReport struct {
	Name           string         `json:"name"`
	Path           string         `json:"path"`
	SubmittedCount int            `json:"submittedCount"`
	MissingCount   int            `json:"missingCount"`
	MatchedFiles   int            `json:"matchedFiles"`
	FileTypes      []FileTypeStat `json:"fileTypes"`
	Missing        []MissingEntry `json:"missing"`
}

// SourceError 检查失败的来源
type SourceError struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// CheckReport 一次检查的完整报告
type CheckReport struct {
	CheckedAt      time.Time       `json:"checkedAt"`
	Filter         ExtensionFilter `json:"filter"`
	RosterSize     int             `json:"rosterSize"`
	Folders        []FolderReport  `json:"folders"`
	MissingAll     []MissingEntry  `json:"missingAll"`
	TotalSubmitted int             `json:"totalSubmitted"`
	TotalMissing   int             `json:"totalMissing"`
	Errors         []SourceError   `json:"errors,omitempty"`
}

// HasMissing 是否存在缺交
func (r *CheckReport) HasMissing() bool {
	return r != nil && len(r.MissingAll) > 0
}
