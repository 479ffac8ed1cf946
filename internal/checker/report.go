package checker

import (
	"sort"
	"time"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
)

type sourceResult struct {
	source model.Source
	result *model.FolderScanResult
}

// buildReport 汇总各来源结果，缺交名单按学号升序
func buildReport(roster *model.Roster, filter model.ExtensionFilter, results []sourceResult) *model.CheckReport {
	report := &model.CheckReport{
		CheckedAt:  time.Now().UTC(),
		Filter:     filter,
		RosterSize: roster.TotalStudents(),
		Folders:    make([]model.FolderReport, 0, len(results)),
		MissingAll: []model.MissingEntry{},
	}

	for _, sr := range results {
		res := sr.result
		folder := model.FolderReport{
			Name:           sr.source.DisplayName,
			Path:           sr.source.Path,
			SubmittedCount: res.SubmittedCount,
			MissingCount:   res.MissingCount,
			MatchedFiles:   res.MatchedFiles(),
			FileTypes:      sortedFileTypes(res.FileTypeStats),
			Missing:        make([]model.MissingEntry, 0, res.MissingCount),
		}

		for _, id := range res.MissingIDs.Sorted() {
			name := roster.Name(id)
			folder.Missing = append(folder.Missing, model.MissingEntry{StudentID: id, Name: name})
			report.MissingAll = append(report.MissingAll, model.MissingEntry{
				Folder:    folder.Name,
				StudentID: id,
				Name:      name,
			})
		}

		report.TotalSubmitted += res.SubmittedCount
		report.TotalMissing += res.MissingCount
		report.Folders = append(report.Folders, folder)
	}

	return report
}

// sortedFileTypes 按数量降序，数量相同按后缀升序
func sortedFileTypes(stats map[string]int) []model.FileTypeStat {
	out := make([]model.FileTypeStat, 0, len(stats))
	for ext, n := range stats {
		out = append(out, model.FileTypeStat{Extension: ext, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Extension < out[j].Extension
	})
	return out
}
