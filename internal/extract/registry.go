package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docchat/internal/models"
)

// SupportedExtensions lists the accepted file suffixes in match order.
var SupportedExtensions = []string{
	".pdf", ".docx", ".doc", ".txt", ".csv", ".xlsx", ".pptx",
	".html", ".jpg", ".jpeg", ".png", ".webp", ".svg",
}

const MsgNoPath = "No file path provided. Please upload a file."

// Parser turns a file on disk into plain text (or markdown).
type Parser interface {
	Name() string
	Parse(ctx context.Context, path string) (models.Document, error)
}

// ValidationError carries a message meant for the end user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type entry struct {
	ext    string
	parser Parser
}

// Registry maps file suffixes to parsers. Every supported suffix is bound to
// the same parser instance.
type Registry struct {
	entries []entry
}

func NewRegistry(p Parser) *Registry {
	r := &Registry{entries: make([]entry, 0, len(SupportedExtensions))}
	for _, ext := range SupportedExtensions {
		r.entries = append(r.entries, entry{ext: ext, parser: p})
	}
	return r
}

func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.ext)
	}
	return out
}

// Validate reports whether path can be handed to a parser. The suffix check is
// case-sensitive.
func (r *Registry) Validate(path string) error {
	if path == "" {
		return &ValidationError{Message: MsgNoPath}
	}
	if _, ok := r.lookup(path); !ok {
		return &ValidationError{
			Message: "The parser can only parse the following file types: " + strings.Join(r.Extensions(), ", "),
		}
	}
	return nil
}

func (r *Registry) lookup(path string) (Parser, bool) {
	for _, e := range r.entries {
		if strings.HasSuffix(path, e.ext) {
			return e.parser, true
		}
	}
	return nil, false
}

// Extract validates path and runs the parser registered for its suffix.
func (r *Registry) Extract(ctx context.Context, path string) (models.Document, error) {
	if err := r.Validate(path); err != nil {
		return models.Document{}, err
	}
	p, _ := r.lookup(path)
	doc, err := p.Parse(ctx, path)
	if err != nil {
		return models.Document{}, fmt.Errorf("%s parse %s: %w", p.Name(), filepath.Base(path), err)
	}
	if doc.Path == "" {
		doc.Path = path
	}
	if doc.Filename == "" {
		doc.Filename = filepath.Base(path)
	}
	return doc, nil
}
