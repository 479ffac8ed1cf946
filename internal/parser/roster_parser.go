package parser

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
)

const (
	headerScanRows  = 5 // 表头关键字检测范围
	headerPreview   = 6 // 预读取行数
	columnSampleLen = 5 // 推断学号列时每列采样的非空值个数
)

var (
	idMarkers   = []string{"学号", "student id", "student_id", "studentid"}
	nameMarkers = []string{"姓名", "name"}
)

// RosterParser 花名册解析器
type RosterParser struct {
	logger *slog.Logger
}

// NewRosterParser 创建花名册解析器
func NewRosterParser(logger *slog.Logger) *RosterParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterParser{logger: logger}
}

// ParseFile 从磁盘读取花名册
func (p *RosterParser) ParseFile(path string) (*RosterResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	return p.Parse(f, filepath.Base(path))
}

// Parse 解析上传的花名册，fileName 用于判断格式
func (p *RosterParser) Parse(r io.Reader, fileName string) (*RosterResult, error) {
	var (
		result *RosterResult
		err    error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xls":
		var rows [][]string
		if rows, err = readXLSRows(r); err != nil {
			return nil, err
		}
		result, err = p.ParseRows(rows)
	case ".csv":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	default:
		wb, openErr := excelize.OpenReader(r)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open excel: %w", openErr)
		}
		defer func() { _ = wb.Close() }()
		result, err = p.ParseWorkbook(wb)
	}
	if err != nil {
		return nil, err
	}
	result.Roster.FileName = fileName
	return result, nil
}

// readXLSRows 读取 BIFF 格式(.xls)工作簿第一个 sheet 的全部单元格
func readXLSRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read xls: %w", err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, ErrEmptyRoster
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyRoster
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// 有 ROW 记录时 LastCol 不含末列，这里多读一列再去掉尾部空单元格
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// ParseWorkbook 解析工作簿的第一个 sheet
func (p *RosterParser) ParseWorkbook(wb *excelize.File) (*RosterResult, error) {
	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyRoster
	}

	rows, err := wb.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return p.ParseRows(rows)
}

// ParseRows 从二维单元格数据构建花名册
func (p *RosterParser) ParseRows(rows [][]string) (*RosterResult, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyRoster
	}

	result := &RosterResult{Roster: model.NewRoster()}

	headerIdx, found := DetectHeaderRow(rows)
	result.HeaderFound = found
	if found {
		p.logger.Info("roster header detected", slog.Int("row", headerIdx+1))
		result.notice(NoticeInfo, fmt.Sprintf("在 Excel 第 %d 行检测到表头关键字，将以此行作为表头读取。", headerIdx+1))
	} else {
		p.logger.Info("roster header markers not found, using first row")
		result.notice(NoticeInfo, "在前5行未检测到'学号'或'姓名'关键字，将默认使用第1行作为表头。")
	}

	headers := rows[headerIdx]
	data := rows[headerIdx+1:]
	width := tableWidth(headers, data)
	if width == 0 {
		return nil, ErrEmptyRoster
	}
	columns := columnLabels(headers, width)

	idCol, matched := locateIDColumn(headers, data, width)
	if matched {
		result.notice(NoticeSuccess, fmt.Sprintf("使用学号列: %s", columns[idCol]))
	} else {
		result.notice(NoticeWarning, fmt.Sprintf("未找到明确的'学号'列，使用第一列: %s", columns[idCol]))
	}

	nameCol := locateNameColumn(headers, idCol, width)
	if nameCol >= 0 {
		result.notice(NoticeSuccess, fmt.Sprintf("使用姓名列: %s", columns[nameCol]))
	} else {
		result.notice(NoticeWarning, "未找到姓名列，将只显示学号")
	}

	roster := result.Roster
	roster.HeaderRow = headerIdx
	roster.IDColumn = columns[idCol]
	if nameCol >= 0 {
		roster.NameColumn = columns[nameCol]
	}

	for _, row := range data {
		id, ok := ExtractRosterID(cellAt(row, idCol))
		if !ok {
			continue
		}
		name := ""
		if nameCol >= 0 {
			name = strings.TrimSpace(cellAt(row, nameCol))
		}
		roster.Put(id, name)
	}

	if roster.TotalStudents() == 0 {
		return nil, fmt.Errorf("%w (column %s)", ErrNoStudents, roster.IDColumn)
	}

	p.logger.Info("roster parsed",
		slog.Int("students", roster.TotalStudents()),
		slog.String("id_column", roster.IDColumn),
		slog.String("name_column", roster.NameColumn))
	return result, nil
}

// DetectHeaderRow 在前 5 行中查找包含学号/姓名关键字的表头行，找不到时返回 0
func DetectHeaderRow(rows [][]string) (int, bool) {
	preview := rows
	if len(preview) > headerPreview {
		preview = preview[:headerPreview]
	}

	limit := headerScanRows
	if len(preview) < limit {
		limit = len(preview)
	}
	for i := 0; i < limit; i++ {
		line := strings.Join(preview[i], " ")
		if ContainsAny(line, idMarkers) || ContainsAny(line, nameMarkers) {
			return i, true
		}
	}
	return 0, false
}

// locateIDColumn 返回学号列下标；第二个返回值表示是否通过表头或内容确认
func locateIDColumn(headers []string, data [][]string, width int) (int, bool) {
	for i, h := range headers {
		if ContainsAny(NormalizeColumnName(h), idMarkers) || ContainsAny(h, idMarkers) {
			return i, true
		}
	}

	for col := 0; col < width; col++ {
		samples := 0
		for _, row := range data {
			v := strings.TrimSpace(cellAt(row, col))
			if v == "" {
				continue
			}
			if _, ok := ExtractStudentID(v); ok {
				return col, true
			}
			samples++
			if samples >= columnSampleLen {
				break
			}
		}
	}

	return 0, false
}

// locateNameColumn 返回姓名列下标，找不到时返回 -1
func locateNameColumn(headers []string, idCol, width int) int {
	for i, h := range headers {
		if i == idCol {
			continue
		}
		if ContainsAny(h, nameMarkers) {
			return i
		}
	}
	if idCol+1 < width {
		return idCol + 1
	}
	return -1
}

func tableWidth(headers []string, data [][]string) int {
	width := len(headers)
	for _, row := range data {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// columnLabels 返回每列的显示名，空表头使用 Excel 列字母
func columnLabels(headers []string, width int) []string {
	labels := make([]string, width)
	for i := 0; i < width; i++ {
		if h := strings.TrimSpace(cellAt(headers, i)); h != "" {
			labels[i] = h
			continue
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			name = fmt.Sprintf("%d", i+1)
		}
		labels[i] = "列" + name
	}
	return labels
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
