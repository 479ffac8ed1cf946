package parser

import (
	"errors"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
)

var (
	// ErrUnsupportedFormat 不支持的花名册格式
	ErrUnsupportedFormat = errors.New("unsupported roster format")
	// ErrEmptyRoster 花名册没有任何行
	ErrEmptyRoster = errors.New("roster sheet is empty")
	// ErrNoStudents 花名册中未提取到任何学号
	ErrNoStudents = errors.New("no student id found in roster")
)

// NoticeLevel 提示级别
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
)

// Notice 解析过程中需要展示给用户的提示
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// RosterResult 花名册解析结果
type RosterResult struct {
	Roster      *model.Roster `json:"roster"`
	HeaderFound bool          `json:"headerFound"` // 前 5 行内是否检测到表头关键字
	Notices     []Notice      `json:"notices"`
}

func (r *RosterResult) notice(level NoticeLevel, message string) {
	r.Notices = append(r.Notices, Notice{Level: level, Message: message})
}
