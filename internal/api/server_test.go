package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docchat/internal/assistant"
	"docchat/internal/extract"
	"docchat/internal/index"
	"docchat/internal/metrics"
	"docchat/internal/providers"
	"docchat/internal/vector"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	reg := extract.NewRegistry(extract.NewLocal())
	mock := providers.NewMockProvider(64)
	m := metrics.New()
	svc := assistant.NewService(assistant.Options{
		Registry: reg,
		Preparer: index.NewPipeline(reg, mock, 1200, 200, nil),
		Opener:   vector.MemoryOpener{},
		Embedder: mock,
		LLM:      mock,
		TopK:     2,
		Metrics:  m,
	})
	uploads := t.TempDir()
	srv := httptest.NewServer(NewServer(svc, uploads, m.Handler(), nil).Routes())
	t.Cleanup(srv.Close)
	return srv, uploads
}

func uploadFile(t *testing.T, url, name, body string) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, _ = part.Write([]byte(body))
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/submit", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func chat(t *testing.T, url, message string) []string {
	t.Helper()
	payload, _ := json.Marshal(map[string]any{"message": message, "history": [][]string{}})
	resp, err := http.Post(url+"/chat", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var (
		out   []string
		event string
		done  bool
	)
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "message":
			var s string
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &s))
			out = append(out, s)
		case strings.HasPrefix(line, "data: ") && event == "done":
			done = true
		}
	}
	require.True(t, done, "stream should end with a done event")
	return out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, true, out["ok"])
	require.Equal(t, false, out["index_ready"])
}

func TestChatWithoutUpload(t *testing.T) {
	srv, _ := newTestServer(t)
	require.Equal(t, []string{"Please upload the file to begin chat."}, chat(t, srv.URL, "hello"))
}

func TestUploadChatClear(t *testing.T) {
	srv, uploads := newTestServer(t)

	out := uploadFile(t, srv.URL, "policy.txt", "The warranty period is two years.")
	require.Equal(t, "Ready to provide responses based on: policy.txt", out["status"])
	require.Equal(t, true, out["ready"])

	require.Empty(t, filesUnder(t, uploads))

	got := chat(t, srv.URL, "What is the warranty period?")
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		require.True(t, strings.HasPrefix(got[i], got[i-1]))
	}
	require.Contains(t, got[len(got)-1], "two years")

	resp, err := http.Post(srv.URL+"/clear", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	var cleared map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cleared))
	require.Contains(t, cleared, "file")
	require.Nil(t, cleared["file"])
	require.Equal(t, "", cleared["status"])

	require.Equal(t, []string{"Please upload the file to begin chat."}, chat(t, srv.URL, "again?"))
}

func TestSubmitUnsupportedAndEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	out := uploadFile(t, srv.URL, "image.bmp", "BM")
	require.True(t, strings.HasPrefix(out["status"].(string), "The parser can only parse the following file types: .pdf"))
	require.Equal(t, false, out["ready"])

	resp, err := http.Post(srv.URL+"/submit", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var empty map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	require.Equal(t, "No file path provided. Please upload a file.", empty["status"])
}

func filesUnder(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func submitPath(t *testing.T, url, path string) (int, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"path": path})
	resp, err := http.Post(url+"/submit", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestSubmitServerPath(t *testing.T) {
	srv, uploads := newTestServer(t)
	path := filepath.Join(uploads, "batch", "notes.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("item,qty\napples,3"), 0o644))

	code, out := submitPath(t, srv.URL, path)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Ready to provide responses based on: notes.csv", out["status"])
}

func TestSubmitRejectsPathOutsideUploadDir(t *testing.T) {
	srv, uploads := newTestServer(t)
	secret := filepath.Join(t.TempDir(), "secrets.txt")
	require.NoError(t, os.WriteFile(secret, []byte("db password is hunter2"), 0o644))
	link := filepath.Join(uploads, "linked.txt")
	require.NoError(t, os.Symlink(secret, link))

	for _, p := range []string{secret, link, filepath.Join(uploads, "..", "secrets.txt")} {
		code, out := submitPath(t, srv.URL, p)
		require.Equal(t, http.StatusBadRequest, code, p)
		require.Contains(t, out, "error")
	}

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, false, health["index_ready"])

	got := chat(t, srv.URL, "password")
	require.Equal(t, []string{"Please upload the file to begin chat."}, got)
}

func TestUploadsAreRemovedAfterIndexing(t *testing.T) {
	srv, uploads := newTestServer(t)
	require.Equal(t, true, uploadFile(t, srv.URL, "a.txt", "Alpha launches in spring.")["ready"])
	require.Equal(t, true, uploadFile(t, srv.URL, "b.txt", "Beta launches in autumn.")["ready"])
	uploadFile(t, srv.URL, "image.bmp", "BM")
	require.Empty(t, filesUnder(t, uploads))

	got := chat(t, srv.URL, "When does Beta launch?")
	require.Contains(t, got[len(got)-1], "autumn")

	resp, err := http.Post(srv.URL+"/clear", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	entries, err := os.ReadDir(uploads)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMethodNotAllowedAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/chat")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	chat(t, srv.URL, "hi")
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	require.Contains(t, buf.String(), `docchat_queries_total{status="no_index"} 1`)
}

func TestSaveUploadedFileRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "../../evil.txt")
	_, _ = part.Write([]byte("x"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/submit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	fh, ok := firstFile(req.MultipartForm.File)
	require.True(t, ok)

	path, err := saveUploadedFile(root, fh)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(path, root))
	require.Equal(t, "evil.txt", filepath.Base(path))
}
