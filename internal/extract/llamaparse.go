package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docchat/internal/models"
	"docchat/internal/util"
)

var ErrParseJobFailed = errors.New("parse job failed")

// LlamaParse uploads documents to the LlamaParse service and waits for the
// markdown rendition.
type LlamaParse struct {
	apiKey  string
	baseURL string
	poll    time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewLlamaParse(apiKey, baseURL string, poll time.Duration, logger *slog.Logger) *LlamaParse {
	if poll <= 0 {
		poll = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LlamaParse{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		poll:    poll,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger.With("component", "llamaparse"),
	}
}

func (l *LlamaParse) Name() string { return "llamaparse" }

func (l *LlamaParse) Parse(ctx context.Context, path string) (models.Document, error) {
	start := time.Now()
	jobID, err := l.upload(ctx, path)
	if err != nil {
		return models.Document{}, err
	}
	l.logger.Info("parse job submitted", "job_id", jobID, "file", filepath.Base(path))
	if err := l.wait(ctx, jobID); err != nil {
		return models.Document{}, err
	}
	md, err := l.markdown(ctx, jobID)
	if err != nil {
		return models.Document{}, err
	}
	if strings.TrimSpace(md) == "" {
		return models.Document{}, util.ErrNoExtractableText
	}
	l.logger.Info("parse job finished", "job_id", jobID, "chars", len(md), "elapsed", time.Since(start))
	return models.Document{Path: path, Filename: filepath.Base(path), Text: md}, nil
}

func (l *LlamaParse) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	_ = mw.WriteField("result_type", "markdown")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/parsing/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := l.do(req, &job); err != nil {
		return "", fmt.Errorf("llamaparse upload: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("llamaparse upload: empty job id")
	}
	return job.ID, nil
}

func (l *LlamaParse) wait(ctx context.Context, jobID string) error {
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/parsing/job/"+jobID, nil)
		var job struct {
			Status       string `json:"status"`
			ErrorMessage string `json:"error_message"`
		}
		if err := l.do(req, &job); err != nil {
			return fmt.Errorf("llamaparse job status: %w", err)
		}
		switch strings.ToUpper(job.Status) {
		case "SUCCESS":
			return nil
		case "ERROR", "CANCELED", "CANCELLED":
			if job.ErrorMessage != "" {
				return fmt.Errorf("%w: %s: %s", ErrParseJobFailed, strings.ToLower(job.Status), job.ErrorMessage)
			}
			return fmt.Errorf("%w: %s", ErrParseJobFailed, strings.ToLower(job.Status))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *LlamaParse) markdown(ctx context.Context, jobID string) (string, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/parsing/job/"+jobID+"/result/markdown", nil)
	var out struct {
		Markdown string `json:"markdown"`
	}
	if err := l.do(req, &out); err != nil {
		return "", fmt.Errorf("llamaparse result: %w", err)
	}
	return out.Markdown, nil
}

func (l *LlamaParse) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
