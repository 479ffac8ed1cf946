package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/parser"
)

var errNoReport = errors.New("check not performed")

// writeError 将业务错误映射为 HTTP 状态码与中文提示
func writeError(c *gin.Context, err error) {
	status, msg := describeError(err)
	c.JSON(status, gin.H{"error": msg})
}

func describeError(err error) (int, string) {
	switch {
	case errors.Is(err, checker.ErrSessionNotFound):
		return http.StatusNotFound, "会话不存在或已过期"
	case errors.Is(err, errNoReport):
		return http.StatusNotFound, "尚未执行检查"
	case errors.Is(err, checker.ErrNoRoster):
		return http.StatusBadRequest, "请先上传学生花名册"
	case errors.Is(err, checker.ErrNoSources):
		return http.StatusBadRequest, "请先添加要检查的作业文件夹"
	case errors.Is(err, checker.ErrDuplicateSource):
		return http.StatusConflict, "该文件夹已添加"
	case errors.Is(err, checker.ErrInvalidPath):
		return http.StatusBadRequest, "文件夹路径无效: " + err.Error()
	case errors.Is(err, checker.ErrBadArchive):
		return http.StatusBadRequest, "解压ZIP文件时出错: " + err.Error()
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return http.StatusBadRequest, "不支持的文件格式，请上传 .xlsx 或 .xls 文件"
	case errors.Is(err, parser.ErrEmptyRoster), errors.Is(err, parser.ErrNoStudents):
		return http.StatusUnprocessableEntity, "花名册中没有找到有效学号，请检查文件格式"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
