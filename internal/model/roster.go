package model

import (
	"encoding/json"
	"sort"
)

// UnknownName 花名册中缺少姓名时的占位显示名
const UnknownName = "未知"

// IDSet 学号集合
type IDSet map[string]struct{}

// NewIDSet 创建学号集合
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add 添加学号
func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

// Has 是否包含学号
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len 集合大小
func (s IDSet) Len() int {
	return len(s)
}

// Difference 返回 s 中不属于 other 的学号
func (s IDSet) Difference(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted 升序返回全部学号
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON 以有序数组形式输出
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// Roster 花名册：学号集合 + 学号到姓名的映射
type Roster struct {
	StudentIDs IDSet             `json:"studentIds"`
	Names      map[string]string `json:"names"`

	FileName   string `json:"fileName"`
	HeaderRow  int    `json:"headerRow"`  // 表头所在行（从 0 开始）
	IDColumn   string `json:"idColumn"`   // 使用的学号列
	NameColumn string `json:"nameColumn"` // 使用的姓名列，未找到时为空
}

// NewRoster 创建空花名册
func NewRoster() *Roster {
	return &Roster{
		StudentIDs: make(IDSet),
		Names:      make(map[string]string),
	}
}

// Put 记录一个学生，重复学号以后出现的姓名为准
func (r *Roster) Put(id, name string) {
	if name == "" {
		name = UnknownName
	}
	r.StudentIDs.Add(id)
	r.Names[id] = name
}

// Name 返回学号对应姓名
func (r *Roster) Name(id string) string {
	if r == nil {
		return UnknownName
	}
	if name, ok := r.Names[id]; ok && name != "" {
		return name
	}
	return UnknownName
}

// TotalStudents 学生总数
func (r *Roster) TotalStudents() int {
	if r == nil {
		return 0
	}
	return r.StudentIDs.Len()
}
