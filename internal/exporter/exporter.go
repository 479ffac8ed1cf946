package exporter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/archive"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
)

const (
	MIMEXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMEText = "text/plain; charset=utf-8"
	MIMEZip  = "application/zip"

	// SummaryFolder 汇总文件所属分组
	SummaryFolder = "汇总数据"
	// SummaryFileName 汇总缺交名单文件名
	SummaryFileName = "未交作业名单_汇总.xlsx"
	// BundleFileName 打包下载文件名
	BundleFileName = "作业检查结果_总和.zip"

	sheetName = "未交名单"
)

// File 生成的导出文件
type File struct {
	Filename string `json:"filename"`
	Folder   string `json:"folder"`
	MIME     string `json:"mime"`
	Summary  bool   `json:"summary"`
	Size     int    `json:"size"`
	Data     []byte `json:"-"`
}

// Exporter 缺交名单导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Build 根据检查报告生成全部导出文件
// 汇总文件在最前；每个有缺交的来源生成 xlsx 与 txt 各一份
func (e *Exporter) Build(report *model.CheckReport) ([]File, error) {
	files := []File{}
	if report == nil {
		return files, nil
	}

	used := map[string]bool{}
	for _, folder := range report.Folders {
		if len(folder.Missing) == 0 {
			continue
		}

		rows := make([][]interface{}, 0, len(folder.Missing))
		for _, m := range folder.Missing {
			rows = append(rows, []interface{}{m.StudentID, m.Name})
		}
		data, err := e.workbook([]string{"学号", "姓名"}, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", folder.Name, err)
		}

		base := uniqueBase("未交名单_"+SafeFileName(folder.Name), used)
		files = append(files, newFile(base+".xlsx", folder.Name, MIMEXlsx, data))
		files = append(files, newFile(base+".txt", folder.Name, MIMEText, []byte(MissingListText(folder.Name, folder.Missing))))
	}

	if report.HasMissing() {
		rows := make([][]interface{}, 0, len(report.MissingAll))
		for _, m := range report.MissingAll {
			rows = append(rows, []interface{}{m.Folder, m.StudentID, m.Name})
		}
		data, err := e.workbook([]string{"文件夹", "学号", "姓名"}, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to export summary: %w", err)
		}
		summary := newFile(SummaryFileName, SummaryFolder, MIMEXlsx, data)
		summary.Summary = true
		files = append([]File{summary}, files...)
	}

	return files, nil
}

// Bundle 将导出文件打包为 zip
func (e *Exporter) Bundle(files []File) ([]byte, error) {
	entries := make([]archive.Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, archive.Entry{Name: f.Filename, Data: f.Data})
	}

	var buf bytes.Buffer
	if err := archive.WriteZip(&buf, entries); err != nil {
		return nil, fmt.Errorf("failed to bundle exports: %w", err)
	}
	return buf.Bytes(), nil
}

// MissingListText 生成纯文本缺交名单
func MissingListText(folder string, missing []model.MissingEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "未交作业名单 - %s\n", folder)
	b.WriteString(strings.Repeat("=", 30))
	b.WriteString("\n")
	for _, m := range missing {
		fmt.Fprintf(&b, "%s\t%s\n", m.StudentID, m.Name)
	}
	return b.String()
}

// SafeFileName 替换文件名中不允许出现的字符
func SafeFileName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	name = strings.TrimSpace(replacer.Replace(name))
	if name == "" {
		return "未命名"
	}
	return name
}

func (e *Exporter) workbook(headers []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, headerStyle); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		r := row
		if err := f.SetSheetRow(sheetName, cell, &r); err != nil {
			return nil, err
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// uniqueBase 替换字符后可能重名，重名时追加序号
func uniqueBase(base string, used map[string]bool) string {
	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s (%d)", base, i)
	}
	used[name] = true
	return name
}

func newFile(name, folder, mime string, data []byte) File {
	return File{
		Filename: name,
		Folder:   folder,
		MIME:     mime,
		Size:     len(data),
		Data:     data,
	}
}
