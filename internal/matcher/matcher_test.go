package matcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestScanFolder_ExtensionFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "202100001_hw.py", "202100002_hw.txt", "202100002_hw.zip")

	roster := model.NewIDSet("202100001", "202100002", "202100003")
	res, err := NewSubmissionMatcher(nil).ScanFolder(dir, roster, NewFilter(false, ".py,.zip"))
	require.NoError(t, err)

	assert.Equal(t, []string{"202100001", "202100002"}, res.SubmittedIDs.Sorted())
	assert.Equal(t, []string{"202100003"}, res.MissingIDs.Sorted())
	assert.Equal(t, map[string]int{".py": 1, ".zip": 1}, res.FileTypeStats)
	assert.Equal(t, 2, res.SubmittedCount)
	assert.Equal(t, 1, res.MissingCount)
	assert.Equal(t, 2, res.MatchedFiles())
}

func TestScanFolder_TenDigitNamesShareFirstNineDigits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "2021000001_hw.py", "2021000002_hw.txt", "2021000002_hw.zip")

	res, err := NewSubmissionMatcher(nil).ScanFolder(dir, model.NewIDSet("202100000"), NewFilter(false, ".py,.zip"))
	require.NoError(t, err)

	assert.Equal(t, []string{"202100000"}, res.SubmittedIDs.Sorted())
	assert.Equal(t, map[string]int{".py": 1, ".zip": 1}, res.FileTypeStats)
	assert.Empty(t, res.MissingIDs)
}

func TestScanFolder_AllTypes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "202100001.PY", "202100002_report.docx", "readme.md", "202100003")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "202100004_dir"), 0o755))

	roster := model.NewIDSet("202100001", "202100002", "202100003", "202100004")
	res, err := NewSubmissionMatcher(nil).ScanFolder(dir, roster, NewFilter(true, ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"202100001", "202100002", "202100003"}, res.SubmittedIDs.Sorted())
	assert.Equal(t, []string{"202100004"}, res.MissingIDs.Sorted())
	assert.Equal(t, map[string]int{".py": 1, ".docx": 1, "": 1}, res.FileTypeStats)
}

func TestScanFolder_SubmittedAndMissingDisjoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, "202100001_a.py", "202100001_b.py", "999999999_x.py", "202100005.py")

	roster := model.NewIDSet("202100001", "202100002", "202100005")
	res, err := NewSubmissionMatcher(nil).ScanFolder(dir, roster, NewFilter(false, "py"))
	require.NoError(t, err)

	for id := range res.SubmittedIDs {
		assert.False(t, res.MissingIDs.Has(id), "id %s in both sets", id)
	}
	for id := range roster {
		assert.True(t, res.MissingIDs.Has(id) != res.SubmittedIDs.Has(id), "id %s", id)
	}
	// 不在花名册中的学号仍计入已提交
	assert.True(t, res.SubmittedIDs.Has("999999999"))
	assert.Equal(t, 4, res.FileTypeStats[".py"])
}

func TestScanFolder_Symlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.py")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	if err := os.Symlink(target, filepath.Join(dir, "202100001_link.py")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "202100002_dangling.py")))

	res, err := NewSubmissionMatcher(nil).ScanFolder(dir, model.NewIDSet("202100001", "202100002"), NewFilter(false, ".py"))
	require.NoError(t, err)
	assert.Equal(t, []string{"202100001"}, res.SubmittedIDs.Sorted())
}

func TestScanFolder_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewSubmissionMatcher(nil).ScanFolder(filepath.Join(t.TempDir(), "nope"), model.NewIDSet(), NewFilter(true, ""))
	require.Error(t, err)
}
