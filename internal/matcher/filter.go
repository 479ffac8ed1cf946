package matcher

import (
	"strings"

	"golang.org/x/text/width"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
)

// DefaultExtensions 默认查找的文件后缀
const DefaultExtensions = ".py, .zip, .docx"

// ParseExtensions 解析用户输入的后缀列表
// 全角逗号按半角处理；去空格、转小写、补全前导点，忽略空项与重复项
func ParseExtensions(input string) []string {
	input = width.Narrow.String(input)

	out := []string{}
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(input, ",") {
		ext := strings.ToLower(strings.TrimSpace(raw))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

// NewFilter 根据输入构建筛选策略，allTypes 为 true 时忽略后缀列表
func NewFilter(allTypes bool, extensions string) model.ExtensionFilter {
	if allTypes {
		return model.ExtensionFilter{AllTypes: true, Extensions: []string{}}
	}
	return model.ExtensionFilter{Extensions: ParseExtensions(extensions)}
}

// FileSuffix 返回小写后缀；与 filepath.Ext 不同，".bashrc" 这类隐藏文件没有后缀
func FileSuffix(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	if strings.Trim(name[:idx], ".") == "" {
		return ""
	}
	return strings.ToLower(name[idx:])
}
