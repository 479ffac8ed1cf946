package model

import "time"

// ExtensionFilter 文件类型筛选策略
type ExtensionFilter struct {
	AllTypes   bool     `json:"allTypes"`   // 无视后缀
	Extensions []string `json:"extensions"` // 小写、带点，例如 .py
}

// Accept 判断后缀是否符合筛选策略
func (f ExtensionFilter) Accept(ext string) bool {
	if f.AllTypes {
		return true
	}
	for _, e := range f.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Source 一个作业来源（本地文件夹或解压后的压缩包）
type Source struct {
	Path        string    `json:"path"`
	DisplayName string    `json:"displayName"`
	Archive     bool      `json:"archive"`
	AddedAt     time.Time `json:"addedAt"`
}

// FolderScanResult 单个文件夹的检查结果
type FolderScanResult struct {
	SubmittedIDs   IDSet          `json:"submittedIds"`
	MissingIDs     IDSet          `json:"missingIds"`
	SubmittedCount int            `json:"submittedCount"`
	MissingCount   int            `json:"missingCount"`
	FileTypeStats  map[string]int `json:"fileTypeStats"` // 后缀 -> 匹配文件数
}

// MatchedFiles 匹配到的文件总数
func (r *FolderScanResult) MatchedFiles() int {
	total := 0
	for _, n := range r.FileTypeStats {
		total += n
	}
	return total
}
