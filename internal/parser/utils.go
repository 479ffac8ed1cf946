package parser

import (
	"regexp"
	"strings"
)

var (
	studentIDRe  = regexp.MustCompile(`\d{9}`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StudentIDLength 学号位数
const StudentIDLength = 9

// ExtractStudentID 从字符串中提取第一段连续 9 位数字作为学号
func ExtractStudentID(text string) (string, bool) {
	id := studentIDRe.FindString(text)
	if id == "" {
		return "", false
	}
	return id, true
}

// ExtractRosterID 从花名册单元格中提取学号
// 纯数字且不少于 9 位时取前 9 位，否则按正则查找
func ExtractRosterID(cell string) (string, bool) {
	value := strings.TrimSpace(cell)
	if value == "" {
		return "", false
	}
	if isASCIIDigits(value) && len(value) >= StudentIDLength {
		return value[:StudentIDLength], true
	}
	return ExtractStudentID(value)
}

// NormalizeColumnName 规范化列名，去除空白字符
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	return whitespaceRe.ReplaceAllString(name, "")
}

// ContainsAny 检查字符串是否包含任意一个关键词（忽略大小写）
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
