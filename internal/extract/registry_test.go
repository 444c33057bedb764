package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docchat/internal/config"
	"docchat/internal/models"
	"docchat/internal/util"

	"github.com/stretchr/testify/require"
)

type countingParser struct {
	calls int
}

func (c *countingParser) Name() string { return "counting" }

func (c *countingParser) Parse(ctx context.Context, path string) (models.Document, error) {
	c.calls++
	return models.Document{Text: "parsed " + filepath.Base(path)}, nil
}

func TestRegistryOrderAndSharedParser(t *testing.T) {
	p := &countingParser{}
	r := NewRegistry(p)
	require.Equal(t, SupportedExtensions, r.Extensions())
	require.Len(t, r.Extensions(), 13)
	for _, e := range r.entries {
		require.Same(t, p, e.parser)
	}
}

func TestValidateEmptyPath(t *testing.T) {
	r := NewRegistry(&countingParser{})
	err := r.Validate("")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "No file path provided. Please upload a file.", ve.Message)
}

func TestValidateUnsupported(t *testing.T) {
	r := NewRegistry(&countingParser{})
	err := r.Validate("notes.md")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t,
		"The parser can only parse the following file types: .pdf, .docx, .doc, .txt, .csv, .xlsx, .pptx, .html, .jpg, .jpeg, .png, .webp, .svg",
		ve.Message)
}

func TestValidateIsCaseSensitive(t *testing.T) {
	r := NewRegistry(&countingParser{})
	require.NoError(t, r.Validate("report.pdf"))
	require.Error(t, r.Validate("report.PDF"))
	require.NoError(t, r.Validate("/tmp/x/slides.pptx"))
}

func TestExtractSkipsParserOnInvalidPath(t *testing.T) {
	p := &countingParser{}
	r := NewRegistry(p)
	_, err := r.Extract(context.Background(), "archive.zip")
	require.Error(t, err)
	require.Equal(t, 0, p.calls)

	doc, err := r.Extract(context.Background(), "/data/guide.txt")
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)
	require.Equal(t, "guide.txt", doc.Filename)
	require.Equal(t, "/data/guide.txt", doc.Path)
}

func TestLocalParserText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.txt")
	require.NoError(t, os.WriteFile(path, []byte("  hello world \n"), 0o644))

	doc, err := NewLocal().Parse(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "hello world", doc.Text)
	require.Equal(t, "guide.txt", doc.Filename)
}

func TestLocalParserEmptyAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("   "), 0o644))

	_, err := NewLocal().Parse(context.Background(), empty)
	require.True(t, errors.Is(err, util.ErrNoExtractableText))

	_, err = NewLocal().Parse(context.Background(), filepath.Join(dir, "photo.png"))
	require.ErrorIs(t, err, ErrUnsupportedLocally)
}

func TestNewParserSelection(t *testing.T) {
	creds := config.Credentials{ParseKey: "llx"}
	p, err := NewParser(config.Config{Parser: "llamaparse", ParsePollMillis: 10}, creds, nil)
	require.NoError(t, err)
	require.Equal(t, "llamaparse", p.Name())

	p, err = NewParser(config.Config{Parser: "local"}, creds, nil)
	require.NoError(t, err)
	require.Equal(t, "local", p.Name())

	_, err = NewParser(config.Config{Parser: "tika"}, creds, nil)
	require.Error(t, err)
}
