package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/qq2742123670-cpu/cloud-check-homework/internal/archive"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/checker"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/exporter"
	"github.com/qq2742123670-cpu/cloud-check-homework/internal/model"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := checker.NewStore(checker.Options{UploadDir: filepath.Join(t.TempDir(), "uploads")})
	t.Cleanup(store.Clear)

	h := NewHandler(store, 0, nil)
	t.Cleanup(h.Close)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, h
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, r http.Handler, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func rosterXLSX(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"学号", "姓名"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"202100001", "张三"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"202100002", "李四"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"202100003", "王五"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st checker.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.NotEmpty(t, st.ID)
	return st.ID
}

// readySession 创建已上传花名册并添加一个本地文件夹的会话
func readySession(t *testing.T, r http.Handler) string {
	t.Helper()

	id := createSession(t, r)
	w := doUpload(t, r, "/api/sessions/"+id+"/roster", "名单.xlsx", rosterXLSX(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	dir := t.TempDir()
	for _, name := range []string{"202100001_作业.py", "202100002_作业.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/sources/local", LocalFolderRequest{Path: dir})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return id
}

func TestStatus(t *testing.T) {
	r, _ := newTestRouter(t)
	createSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Sessions)
}

func TestSessionLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "会话不存在")
}

func TestUploadRoster(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doUpload(t, r, "/api/sessions/"+id+"/roster", "名单.xlsx", rosterXLSX(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RosterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Roster)
	assert.Equal(t, 3, resp.Roster.TotalStudents)
	assert.Equal(t, "名单.xlsx", resp.Roster.FileName)
	assert.True(t, resp.HeaderFound)
	assert.NotEmpty(t, resp.Notices)
}

func TestUploadRoster_LegacyXLS(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	data, err := os.ReadFile(filepath.Join("..", "parser", "testdata", "roster.xls"))
	require.NoError(t, err)

	w := doUpload(t, r, "/api/sessions/"+id+"/roster", "名单.xls", data)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RosterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Roster)
	assert.Equal(t, 3, resp.Roster.TotalStudents)
	assert.Equal(t, "名单.xls", resp.Roster.FileName)
	assert.True(t, resp.HeaderFound)
}

func TestUploadRoster_Rejected(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doUpload(t, r, "/api/sessions/"+id+"/roster", "名单.csv", []byte("学号,姓名\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ".xls")

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/roster", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "未找到上传文件")
}

func TestSetFilter(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPut, "/api/sessions/"+id+"/filter", FilterRequest{Extensions: "PY， ipynb,.py"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var filter model.ExtensionFilter
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filter))
	assert.Equal(t, []string{".py", ".ipynb"}, filter.Extensions)

	w = doJSON(t, r, http.MethodPut, "/api/sessions/"+id+"/filter", FilterRequest{Extensions: " , "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/sessions/"+id+"/filter", FilterRequest{AllTypes: true})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filter))
	assert.True(t, filter.AllTypes)
}

func TestAddLocalFolder_Errors(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	dir := t.TempDir()

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/sources/local", LocalFolderRequest{Path: filepath.Join(dir, "missing")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/sources/local", LocalFolderRequest{Path: dir})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/sources/local", LocalFolderRequest{Path: dir})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheck_RequiresRoster(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/check", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "花名册")

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/report", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckAndExports(t *testing.T) {
	r, _ := newTestRouter(t)
	id := readySession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/check", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report model.CheckReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Len(t, report.Folders, 1)
	assert.Equal(t, 1, report.Folders[0].SubmittedCount)
	assert.Equal(t, []model.MissingEntry{
		{StudentID: "202100002", Name: "李四"},
		{StudentID: "202100003", Name: "王五"},
	}, report.Folders[0].Missing)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/exports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Files []ExportItem `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Files, 3)
	assert.Equal(t, exporter.SummaryFileName, list.Files[0].Filename)
	assert.True(t, list.Files[0].Summary)
	assert.Equal(t, "/api/sessions/"+id+"/exports/2", list.Files[2].URL)

	w = doJSON(t, r, http.MethodGet, list.Files[2].URL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=UTF-8''")
	assert.Contains(t, w.Body.String(), "202100002\t李四")

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/exports/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBundleDownloadIsOneShot(t *testing.T) {
	r, _ := newTestRouter(t)
	id := readySession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/check", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/exports/bundle", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		DownloadURL string `json:"downloadUrl"`
		Files       int    `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Files)
	require.True(t, strings.HasPrefix(resp.DownloadURL, "/api/export/download/"))

	w = doJSON(t, r, http.MethodGet, resp.DownloadURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, exporter.MIMEZip, w.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)

	w = doJSON(t, r, http.MethodGet, resp.DownloadURL, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadArchive(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	w := doUpload(t, r, "/api/sessions/"+id+"/roster", "名单.xlsx", rosterXLSX(t))
	require.Equal(t, http.StatusOK, w.Code)

	var buf bytes.Buffer
	require.NoError(t, archive.WriteZip(&buf, []archive.Entry{
		{Name: "202100001.py", Data: []byte("x")},
		{Name: "202100002.zip", Data: []byte("x")},
		{Name: "202100003.docx", Data: []byte("x")},
	}))

	w = doUpload(t, r, "/api/sessions/"+id+"/sources/archive", "hw.rar", buf.Bytes())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doUpload(t, r, "/api/sessions/"+id+"/sources/archive", "hw.zip", []byte("broken"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doUpload(t, r, "/api/sessions/"+id+"/sources/archive", "hw.zip", buf.Bytes())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var src SourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &src))
	assert.Equal(t, checker.ArchivePrefix+"hw.zip", src.Source.DisplayName)
	assert.Len(t, src.Sources, 1)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report model.CheckReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.HasMissing())

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/exports/bundle", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/sessions/"+id+"/sources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st checker.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Empty(t, st.Sources)
	assert.False(t, st.CheckPerformed)
}

func TestUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := checker.NewStore(checker.Options{})
	h := NewHandler(store, 16, nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	id := createSession(t, r)
	w := doUpload(t, r, "/api/sessions/"+id+"/roster", "名单.xlsx", bytes.Repeat([]byte("x"), 1024))
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, w.Code)
}

func TestCheckStream(t *testing.T) {
	r, _ := newTestRouter(t)
	id := readySession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/check/stream", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var types []string
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt checkProgressEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
		types = append(types, evt.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, "start", types[0])
	assert.Equal(t, "done", types[len(types)-1])
	assert.Contains(t, types, "progress")
}

func TestCheckStream_ReportsError(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/sessions/"+id+"/check/stream", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"error"`)
}

func TestBuildContentDisposition(t *testing.T) {
	t.Parallel()

	got := buildContentDisposition("missing-list-0.xlsx", "未交名单.xlsx")
	want := "attachment; filename=\"missing-list-0.xlsx\"; filename*=UTF-8''%E6%9C%AA%E4%BA%A4%E5%90%8D%E5%8D%95.xlsx"
	assert.Equal(t, want, got)
}
