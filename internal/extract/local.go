package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docchat/internal/models"
	"docchat/internal/util"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedLocally = errors.New("file type not supported by the local parser")

// Local extracts text without calling out to a parsing service. PDFs go
// through the pdf reader; text-like formats are read verbatim.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Name() string { return "local" }

func (l *Local) Parse(ctx context.Context, path string) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return models.Document{}, err
	}
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = readPDF(path)
	case ".txt", ".csv", ".html", ".svg":
		var b []byte
		b, err = os.ReadFile(path)
		text = string(b)
	default:
		return models.Document{}, fmt.Errorf("%w: %s", ErrUnsupportedLocally, filepath.Ext(path))
	}
	if err != nil {
		return models.Document{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Document{}, util.ErrNoExtractableText
	}
	return models.Document{Path: path, Filename: filepath.Base(path), Text: text}, nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return buf.String(), nil
}
