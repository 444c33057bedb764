package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"docchat/internal/extract"
	"docchat/internal/index"
	"docchat/internal/metrics"
	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/storage"
	"docchat/internal/vector"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubParser serves canned text by base name so tests need no files.
type stubParser struct {
	mu    sync.Mutex
	docs  map[string]string
	calls int
}

func (p *stubParser) Name() string { return "stub" }

func (p *stubParser) Parse(ctx context.Context, path string) (models.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	text, ok := p.docs[filepath.Base(path)]
	if !ok {
		return models.Document{}, errors.New("file not found")
	}
	return models.Document{Text: text}, nil
}

// scriptedLLM streams fixed fragments and remembers the last prompt.
type scriptedLLM struct {
	fragments  []string
	failAfter  int
	failErr    error
	lastPrompt string
}

func (l *scriptedLLM) GenerateStream(ctx context.Context, req providers.GenerateRequest, onDelta func(string) error) (providers.ProviderInfo, error) {
	info := providers.ProviderInfo{Name: "scripted", Model: "test"}
	l.lastPrompt = req.Prompt
	for i, f := range l.fragments {
		if l.failAfter > 0 && i == l.failAfter {
			if l.failErr != nil {
				return info, l.failErr
			}
			return info, errors.New("groq generate: error 503: service unavailable")
		}
		if err := onDelta(f); err != nil {
			return info, err
		}
	}
	return info, nil
}

type recorderMock struct {
	mock.Mock
}

func (r *recorderMock) Insert(ctx context.Context, rec storage.LLMCallRecord) error {
	args := r.Called(ctx, rec)
	return args.Error(0)
}

type fixture struct {
	svc     *Service
	parser  *stubParser
	llm     *scriptedLLM
	metrics *metrics.Metrics
}

func (f fixture) scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func newFixture(t *testing.T, llm *scriptedLLM, audit CallRecorder) fixture {
	t.Helper()
	parser := &stubParser{docs: map[string]string{
		"manual.pdf": "The warranty period is two years from the date of purchase.\n\nReturns are accepted within thirty days.",
		"report.pdf": "Quarterly revenue grew twelve percent.",
		"notes.docx": "Team offsite is scheduled for March in Lisbon.",
		"a.pdf":      "Alpha project codename is Falcon and launches in spring.",
		"b.txt":      "Beta project codename is Heron and launches in autumn.",
		"empty.txt":  "   ",
	}}
	if llm == nil {
		llm = &scriptedLLM{fragments: []string{"The ", "warranty ", "is ", "two years."}}
	}
	reg := extract.NewRegistry(parser)
	embedder := providers.NewMockProvider(128)
	m := metrics.New()
	svc := NewService(Options{
		Registry: reg,
		Preparer: index.NewPipeline(reg, embedder, 1200, 200, nil),
		Opener:   vector.MemoryOpener{},
		Embedder: embedder,
		LLM:      llm,
		TopK:     2,
		Metrics:  m,
		Audit:    audit,
	})
	return fixture{svc: svc, parser: parser, llm: llm, metrics: m}
}

func collect(seq func(func(string) bool)) []string {
	out := make([]string, 0)
	for v := range seq {
		out = append(out, v)
	}
	return out
}

func TestValidateRejectsUnsupportedWithoutStateChange(t *testing.T) {
	f := newFixture(t, nil, nil)
	for _, p := range []string{"", "image.bmp", "README", "report.PDF", "archive.pdf.zip"} {
		err := f.svc.Validate(p)
		require.Error(t, err, p)
		if p != "" {
			for _, ext := range extract.SupportedExtensions {
				require.Contains(t, err.Error(), ext)
			}
		}
		require.False(t, f.svc.Ready())
	}
	require.Equal(t, 0, f.parser.calls)
}

func TestBuildReplacesPreviousIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	first, err := f.svc.BuildIndex(ctx, "/uploads/report.pdf")
	require.NoError(t, err)
	second, err := f.svc.BuildIndex(ctx, "/uploads/notes.docx")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	info, ok := f.svc.Current()
	require.True(t, ok)
	require.Equal(t, "notes.docx", info.Filename)
	require.Equal(t, second.ID, info.IndexID)
}

func TestRespondWithoutIndex(t *testing.T) {
	f := newFixture(t, nil, nil)
	for _, msg := range []string{"", "hello", "What is the warranty period?"} {
		require.Equal(t, []string{MsgNoIndex}, collect(f.svc.Respond(context.Background(), msg)))
	}
}

func TestRespondStreamsGrowingPrefixes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	require.Equal(t, "Ready to provide responses based on: manual.pdf", f.svc.LoadFile(ctx, "/tmp/x/manual.pdf"))

	got := collect(f.svc.Respond(ctx, "What is the warranty period?"))
	require.Equal(t, []string{"The ", "The warranty ", "The warranty is ", "The warranty is two years."}, got)
	for i := 1; i < len(got); i++ {
		require.True(t, strings.HasPrefix(got[i], got[i-1]))
		require.Greater(t, len(got[i]), len(got[i-1]))
	}
	require.Contains(t, f.llm.lastPrompt, "warranty period is two years")
	require.Contains(t, f.llm.lastPrompt, "Query: What is the warranty period?")
}

func TestClearStateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	f.svc.LoadFile(ctx, "manual.pdf")
	require.True(t, f.svc.Ready())

	first := f.svc.ClearState(ctx)
	second := f.svc.ClearState(ctx)
	require.Equal(t, first, second)
	require.Nil(t, first.File)
	require.Equal(t, "", first.Status)
	require.False(t, f.svc.Ready())
	require.Equal(t, []string{MsgNoIndex}, collect(f.svc.Respond(ctx, "anything")))
}

func TestUnsupportedUploadScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	status := f.svc.LoadFile(ctx, "image.bmp")
	require.Equal(t, "The parser can only parse the following file types: .pdf, .docx, .doc, .txt, .csv, .xlsx, .pptx, .html, .jpg, .jpeg, .png, .webp, .svg", status)
	require.False(t, f.svc.Ready())
	require.Equal(t, []string{MsgNoIndex}, collect(f.svc.Respond(ctx, "hi")))

	require.Equal(t, "No file path provided. Please upload a file.", f.svc.LoadFile(ctx, ""))
}

func TestSecondUploadAnswersFromNewDocumentOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &scriptedLLM{fragments: []string{"ok"}}, nil)
	require.Contains(t, f.svc.LoadFile(ctx, "a.pdf"), "a.pdf")
	require.Contains(t, f.svc.LoadFile(ctx, "b.txt"), "b.txt")

	got := collect(f.svc.Respond(ctx, "What is the project codename?"))
	require.Equal(t, []string{"ok"}, got)
	require.Contains(t, f.llm.lastPrompt, "Heron")
	require.NotContains(t, f.llm.lastPrompt, "Falcon")
}

func TestFailedBuildKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	f.svc.LoadFile(ctx, "manual.pdf")
	before, _ := f.svc.Current()

	status := f.svc.LoadFile(ctx, "/x/empty.txt")
	require.True(t, strings.HasPrefix(status, "Failed to process empty.txt: "), status)
	status = f.svc.LoadFile(ctx, "/x/missing.pdf")
	require.True(t, strings.HasPrefix(status, "Failed to process missing.pdf: "), status)

	after, ok := f.svc.Current()
	require.True(t, ok)
	require.Equal(t, before.IndexID, after.IndexID)
}

func TestRespondBackendFailureEndsWithGenericMessage(t *testing.T) {
	ctx := context.Background()
	audit := &recorderMock{}
	audit.On("Insert", mock.Anything, mock.MatchedBy(func(rec storage.LLMCallRecord) bool {
		return rec.Status == "error" && rec.ErrorType == string(providers.ErrorTransient) && rec.Filename == "manual.pdf"
	})).Return(nil).Once()

	f := newFixture(t, &scriptedLLM{fragments: []string{"The ", "warranty ", "is"}, failAfter: 2}, audit)
	f.svc.LoadFile(ctx, "manual.pdf")

	got := collect(f.svc.Respond(ctx, "What is the warranty period?"))
	require.Equal(t, []string{"The ", "The warranty ", MsgQueryFailed}, got)
	audit.AssertExpectations(t)
}

func TestRespondStopsWhenConsumerBreaks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	f.svc.LoadFile(ctx, "manual.pdf")

	var got []string
	for v := range f.svc.Respond(ctx, "warranty?") {
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []string{"The ", "The warranty "}, got)
}

func TestConcurrentBuildsLeaveOneIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	names := []string{"a.pdf", "b.txt", "report.pdf", "notes.docx"}
	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			_, _ = f.svc.BuildIndex(ctx, n)
		}(n)
	}
	wg.Wait()
	info, ok := f.svc.Current()
	require.True(t, ok)
	require.True(t, slices.Contains(names, info.Filename))
}

func TestIndexGaugeFollowsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	require.Contains(t, f.scrape(t), "docchat_index_ready 0")

	f.svc.LoadFile(ctx, "manual.pdf")
	out := f.scrape(t)
	require.Contains(t, out, "docchat_index_ready 1")
	require.Contains(t, out, "docchat_index_chunks 1")

	f.svc.ClearState(ctx)
	require.Contains(t, f.scrape(t), "docchat_index_ready 0")
}

func TestIndexGaugeAgreesWithSessionUnderConcurrentClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.BuildIndex(ctx, "report.pdf")
		}()
		go func() {
			defer wg.Done()
			f.svc.ClearState(ctx)
		}()
	}
	wg.Wait()

	want := "docchat_index_ready 0"
	if f.svc.Ready() {
		want = "docchat_index_ready 1"
	}
	require.Contains(t, f.scrape(t), want)
}

func TestRespondCanceledIsAbandonedNotFailed(t *testing.T) {
	ctx := context.Background()
	audit := &recorderMock{}
	audit.On("Insert", mock.Anything, mock.MatchedBy(func(rec storage.LLMCallRecord) bool {
		return rec.Status == "abandoned" && rec.ErrorType == ""
	})).Return(nil).Once()

	llm := &scriptedLLM{
		fragments: []string{"The ", "warranty ", "is"},
		failAfter: 2,
		failErr:   fmt.Errorf("groq generate: request failed: %w", context.Canceled),
	}
	f := newFixture(t, llm, audit)
	f.svc.LoadFile(ctx, "manual.pdf")

	got := collect(f.svc.Respond(ctx, "What is the warranty period?"))
	require.Equal(t, []string{"The ", "The warranty "}, got)
	out := f.scrape(t)
	require.Contains(t, out, `docchat_queries_total{status="abandoned"} 1`)
	require.NotContains(t, out, "docchat_provider_errors_total{")
	audit.AssertExpectations(t)
}
