package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"docchat/internal/assistant"
	"docchat/internal/util"

	"github.com/google/uuid"
)

// Assistant is the part of the document assistant the HTTP shell drives.
type Assistant interface {
	LoadFile(ctx context.Context, path string) string
	Respond(ctx context.Context, message string) iter.Seq[string]
	ClearState(ctx context.Context) assistant.ClearResult
	Ready() bool
}

type Server struct {
	assistant Assistant
	uploadDir string
	metrics   http.Handler
	logger    *slog.Logger
}

func NewServer(a Assistant, uploadDir string, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	return &Server{
		assistant: a,
		uploadDir: uploadDir,
		metrics:   metrics,
		logger:    logger.With("component", "api"),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/clear", s.handleClear)
	mux.Handle("/metrics", s.metrics)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "index_ready": s.assistant.Ready()})
}

// handleSubmit accepts either a multipart upload in field "file" or a JSON
// body naming a file already under the upload directory. An empty submission
// is passed through so the assistant can answer with its own guidance.
// Multipart uploads are removed once indexing returns.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var path, uploaded string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(128 << 20); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
			return
		}
		if fh, ok := firstFile(r.MultipartForm.File); ok {
			saved, err := saveUploadedFile(s.uploadDir, fh)
			if err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
			path, uploaded = saved, saved
		}
	} else {
		var req struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		path = strings.TrimSpace(req.Path)
		if path != "" {
			resolved, err := util.ResolveWithin(s.uploadDir, path)
			if err != nil {
				writeErr(w, http.StatusBadRequest, err)
				return
			}
			path = resolved
		}
	}

	status := s.assistant.LoadFile(r.Context(), path)
	if uploaded != "" {
		s.removeUpload(uploaded)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "ready": s.assistant.Ready()})
}

// handleChat streams cumulative answers as server-sent events. Each
// "message" event carries the full answer so far as a JSON string; a final
// "done" event closes the stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Message string `json:"message"`
		// History is accepted from chat clients but answers never use it.
		History [][]string `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for answer := range s.assistant.Respond(r.Context(), req.Message) {
		data, _ := json.Marshal(answer)
		if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
			s.logger.Warn("chat stream write failed", "error", err)
			return
		}
		flusher.Flush()
	}
	_, _ = io.WriteString(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	writeJSON(w, http.StatusOK, s.assistant.ClearState(r.Context()))
}

// saveUploadedFile stores an upload under its own directory so that the
// original base name, which carries the extension, is preserved.
func saveUploadedFile(root string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(root, uuid.NewString())
	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	saved := false
	defer func() {
		if !saved {
			_ = os.RemoveAll(dir)
		}
	}()
	finalPath, err := util.SafeJoin(dir, fh.Filename)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()
	if _, err := io.Copy(tmp, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("atomic move upload: %w", err)
	}
	saved = true
	return finalPath, nil
}

func (s *Server) removeUpload(path string) {
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		s.logger.Warn("remove upload failed", "path", path, "error", err)
	}
}

func firstFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	if v := m["file"]; len(v) > 0 {
		return v[0], true
	}
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "DC-API-4000"

	switch {
	case status >= 500:
		return apiError{
			Code:    "DC-API-5000",
			Message: "Internal server error. Please retry or check service logs.",
		}
	case status == http.StatusBadRequest:
		code = "DC-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "DC-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "DC-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(low, "parse multipart"):
			msg = "Malformed multipart upload."
		case errors.Is(err, util.ErrOutsideRoot):
			msg = "Only files in the upload directory can be indexed."
		}
	}
	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
