package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/cache"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/cascade"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
)

type fakeExtractor struct {
	transcript domain.Transcript
	err        error
	calls      int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ []string) (domain.Transcript, error) {
	f.calls++
	if f.err != nil {
		return domain.Transcript{}, f.err
	}
	return f.transcript, nil
}

type runnerCall struct {
	task   domain.TaskType
	prompt string
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []runnerCall
	respond func(task domain.TaskType, prompt string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, task domain.TaskType, _ []string, prompt string, _ int, _ float64) (cascade.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runnerCall{task: task, prompt: prompt})
	f.mu.Unlock()

	text, err := f.respond(task, prompt)
	if err != nil {
		return cascade.Result{}, err
	}
	return cascade.Result{Model: "test/model", Text: text}, nil
}

func (f *fakeRunner) byTask(task domain.TaskType) []runnerCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []runnerCall
	for _, c := range f.calls {
		if c.task == task {
			out = append(out, c)
		}
	}
	return out
}

type fakeHistory struct {
	mu    sync.Mutex
	saved []domain.VideoState
}

func (f *fakeHistory) Save(_ context.Context, state domain.VideoState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, state)
	return nil
}

func (f *fakeHistory) Recent(_ context.Context, _ string, _ int) ([]domain.VideoState, error) {
	return nil, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Progress(_ context.Context, _ string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		AI: config.AIConfig{
			Cascades: config.CascadeConfig{
				Chunk: []string{"m1"},
				Final: []string{"m1"},
				QA:    []string{"m1"},
			},
			MaxTokens:      config.TokenConfig{ChunkSummary: 800, FinalSummary: 5000, QAResponse: 5000},
			Temperature:    config.TemperatureConfig{Summarization: 0.7, QA: 0.7},
			TimeoutSeconds: 60,
			RetryAttempts:  3,
		},
		Processing: config.ProcessingConfig{
			ChunkSize:             12000,
			ChunkOverlap:          1000,
			MaxChunks:             20,
			MaxQATranscriptLength: 25000,
			ChunkConcurrency:      3,
		},
		Subtitles: config.SubtitleConfig{
			Languages:      []string{"en"},
			TimeoutSeconds: 5,
		},
	}
}

func newTestPipeline(cfg config.Config, extractor *fakeExtractor, runner *fakeRunner) (*Pipeline, *cache.RoomCache, *fakeHistory, *fakeNotifier) {
	videoCache := cache.New(5, 24*time.Hour, nil)
	history := &fakeHistory{}
	notifier := &fakeNotifier{}

	p := NewPipeline(cfg, PipelineDeps{
		Extractor: extractor,
		Runner:    runner,
		Cache:     videoCache,
		History:   history,
		Notifier:  notifier,
	})
	return p, videoCache, history, notifier
}

func TestSummarizeVideoFullPipeline(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{transcript: domain.Transcript{
		VideoID:  "vid1",
		Title:    "Go Concurrency Patterns",
		Language: "en",
		Text:     strings.Repeat("a", 50000),
	}}
	runner := &fakeRunner{respond: func(task domain.TaskType, prompt string) (string, error) {
		if task == domain.TaskFinalSummary {
			return "final summary", nil
		}
		return fmt.Sprintf("summary %d", len(prompt)), nil
	}}

	p, videoCache, history, notifier := newTestPipeline(testConfig(), extractor, runner)

	state, err := p.SummarizeVideo(context.Background(), "!room:example.org", "vid1")
	if err != nil {
		t.Fatalf("SummarizeVideo() error = %v", err)
	}

	if state.Summary != "final summary" {
		t.Errorf("summary = %q, want %q", state.Summary, "final summary")
	}
	if state.ID == "" {
		t.Error("state ID is empty")
	}
	if state.Title != "Go Concurrency Patterns" {
		t.Errorf("title = %q", state.Title)
	}

	// 50000 chars at size 12000 with overlap 1000 yields 5 chunks.
	if got := len(runner.byTask(domain.TaskChunkSummary)); got != 5 {
		t.Errorf("chunk cascade calls = %d, want 5", got)
	}
	if got := len(runner.byTask(domain.TaskFinalSummary)); got != 1 {
		t.Errorf("final cascade calls = %d, want 1", got)
	}

	cached, err := videoCache.Latest(context.Background(), "!room:example.org")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if cached.ID != state.ID {
		t.Errorf("cached state ID = %q, want %q", cached.ID, state.ID)
	}

	if len(history.saved) != 1 {
		t.Errorf("history saves = %d, want 1", len(history.saved))
	}
	if len(notifier.messages) != 2 {
		t.Errorf("progress messages = %d, want 2", len(notifier.messages))
	}
}

func TestSummarizeVideoChunkFailureDegradesToPlaceholder(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{transcript: domain.Transcript{
		VideoID: "vid2",
		Title:   "Long Talk",
		Text:    strings.Repeat("b", 30000),
	}}

	var mu sync.Mutex
	chunkCalls := 0
	runner := &fakeRunner{respond: func(task domain.TaskType, _ string) (string, error) {
		if task == domain.TaskFinalSummary {
			return "final", nil
		}
		mu.Lock()
		chunkCalls++
		n := chunkCalls
		mu.Unlock()
		if n == 1 {
			return "", &cascade.ExhaustedError{Task: domain.TaskChunkSummary}
		}
		return "ok", nil
	}}

	p, _, _, _ := newTestPipeline(testConfig(), extractor, runner)

	state, err := p.SummarizeVideo(context.Background(), "!room:example.org", "vid2")
	if err != nil {
		t.Fatalf("SummarizeVideo() error = %v", err)
	}
	if state.Summary != "final" {
		t.Errorf("summary = %q", state.Summary)
	}

	finals := runner.byTask(domain.TaskFinalSummary)
	if len(finals) != 1 {
		t.Fatalf("final cascade calls = %d, want 1", len(finals))
	}
	if !strings.Contains(finals[0].prompt, "unavailable]") {
		t.Error("final prompt does not carry the placeholder for the failed chunk")
	}
}

func TestSummarizeVideoFinalExhaustionFails(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{transcript: domain.Transcript{VideoID: "vid3", Title: "T", Text: "short transcript"}}
	runner := &fakeRunner{respond: func(task domain.TaskType, _ string) (string, error) {
		if task == domain.TaskFinalSummary {
			return "", &cascade.ExhaustedError{Task: domain.TaskFinalSummary}
		}
		return "chunk ok", nil
	}}

	p, videoCache, history, _ := newTestPipeline(testConfig(), extractor, runner)

	_, err := p.SummarizeVideo(context.Background(), "!room:example.org", "vid3")
	if !errors.Is(err, domain.ErrSummarizationFailed) {
		t.Fatalf("error = %v, want ErrSummarizationFailed", err)
	}
	if !errors.Is(err, domain.ErrAllModelsExhausted) {
		t.Errorf("error = %v, want wrapped ErrAllModelsExhausted", err)
	}

	if _, err := videoCache.Latest(context.Background(), "!room:example.org"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("failed run must not cache a state")
	}
	if len(history.saved) != 0 {
		t.Error("failed run must not reach history")
	}
}

func TestSummarizeVideoServesCachedState(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{transcript: domain.Transcript{VideoID: "vid4", Title: "T", Text: "text"}}
	runner := &fakeRunner{respond: func(domain.TaskType, string) (string, error) { return "s", nil }}

	p, videoCache, _, _ := newTestPipeline(testConfig(), extractor, runner)

	seed := domain.VideoState{
		ID: "seed", Room: "!room:example.org", VideoID: "vid4",
		Title: "T", Transcript: "text", Summary: "cached summary",
		CreatedAt: time.Now(),
	}
	if err := videoCache.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	state, err := p.SummarizeVideo(context.Background(), "!room:example.org", "vid4")
	if err != nil {
		t.Fatalf("SummarizeVideo() error = %v", err)
	}
	if state.Summary != "cached summary" {
		t.Errorf("summary = %q, want cached one", state.Summary)
	}
	if extractor.calls != 0 {
		t.Errorf("extractor calls = %d, want 0", extractor.calls)
	}
}

func TestSummarizeVideoExtractionErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		extract error
		want    error
	}{
		{"generic failure", errors.New("yt-dlp exited 1"), domain.ErrExtractionFailed},
		{"timeout", context.DeadlineExceeded, domain.ErrExtractionTimeout},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			extractor := &fakeExtractor{err: tc.extract}
			runner := &fakeRunner{respond: func(domain.TaskType, string) (string, error) { return "s", nil }}
			p, _, _, _ := newTestPipeline(testConfig(), extractor, runner)

			_, err := p.SummarizeVideo(context.Background(), "!room:example.org", "vid5")
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSummarizeVideoCancelledDuringExtraction(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{err: context.Canceled}
	runner := &fakeRunner{respond: func(domain.TaskType, string) (string, error) { return "s", nil }}
	p, videoCache, _, _ := newTestPipeline(testConfig(), extractor, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.SummarizeVideo(ctx, "!room:example.org", "vid10")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if errors.Is(err, domain.ErrExtractionFailed) || errors.Is(err, domain.ErrExtractionTimeout) {
		t.Fatalf("cancellation reported as extraction failure: %v", err)
	}
	if _, err := videoCache.Latest(context.Background(), "!room:example.org"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("cancelled run must not cache a state")
	}
}

func TestSummarizeVideoEmptyTranscript(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{transcript: domain.Transcript{VideoID: "vid6", Text: "   \n  "}}
	runner := &fakeRunner{respond: func(domain.TaskType, string) (string, error) { return "s", nil }}
	p, _, _, _ := newTestPipeline(testConfig(), extractor, runner)

	_, err := p.SummarizeVideo(context.Background(), "!room:example.org", "vid6")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestAnswerQuestionTruncatesTranscript(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{}
	var qaPrompts []string
	runner := &fakeRunner{respond: func(task domain.TaskType, prompt string) (string, error) {
		if task == domain.TaskQA {
			qaPrompts = append(qaPrompts, prompt)
		}
		return "the answer", nil
	}}

	p, videoCache, _, _ := newTestPipeline(testConfig(), extractor, runner)

	long := strings.Repeat("x", 30000)
	seed := domain.VideoState{
		ID: "seed", Room: "!room:example.org", VideoID: "vid7",
		Title: "T", Transcript: long, Summary: "s", CreatedAt: time.Now(),
	}
	if err := videoCache.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	answer, err := p.AnswerQuestion(context.Background(), "!room:example.org", "what is it about?")
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if answer != "the answer" {
		t.Errorf("answer = %q", answer)
	}

	if len(qaPrompts) != 1 {
		t.Fatalf("qa cascade calls = %d, want 1", len(qaPrompts))
	}
	if strings.Contains(qaPrompts[0], strings.Repeat("x", 25001)) {
		t.Error("prompt carries more than the first 25000 transcript characters")
	}
	if !strings.Contains(qaPrompts[0], strings.Repeat("x", 25000)) {
		t.Error("prompt is missing the 25000-character transcript prefix")
	}
}

func TestAnswerQuestionTruncationKeepsCharacterBoundaries(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{}
	var qaPrompts []string
	runner := &fakeRunner{respond: func(task domain.TaskType, prompt string) (string, error) {
		if task == domain.TaskQA {
			qaPrompts = append(qaPrompts, prompt)
		}
		return "the answer", nil
	}}

	p, videoCache, _, _ := newTestPipeline(testConfig(), extractor, runner)

	// Two-byte runes: a byte-based cut would leave invalid UTF-8.
	long := strings.Repeat("é", 30000)
	seed := domain.VideoState{
		ID: "seed", Room: "!room:example.org", VideoID: "vid9",
		Title: "T", Transcript: long, Summary: "s", CreatedAt: time.Now(),
	}
	if err := videoCache.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := p.AnswerQuestion(context.Background(), "!room:example.org", "what is it about?"); err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}

	if len(qaPrompts) != 1 {
		t.Fatalf("qa cascade calls = %d, want 1", len(qaPrompts))
	}
	if !utf8.ValidString(qaPrompts[0]) {
		t.Error("prompt contains invalid UTF-8")
	}
	if !strings.Contains(qaPrompts[0], strings.Repeat("é", 25000)) {
		t.Error("prompt is missing the 25000-character transcript prefix")
	}
	if strings.Contains(qaPrompts[0], strings.Repeat("é", 25001)) {
		t.Error("prompt carries more than the first 25000 transcript characters")
	}
}

func TestAnswerQuestionNoCachedVideo(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{}
	runner := &fakeRunner{respond: func(domain.TaskType, string) (string, error) { return "s", nil }}
	p, _, _, _ := newTestPipeline(testConfig(), extractor, runner)

	_, err := p.AnswerQuestion(context.Background(), "!empty:example.org", "anything?")
	if !errors.Is(err, domain.ErrNoCachedVideo) {
		t.Fatalf("error = %v, want ErrNoCachedVideo", err)
	}
}

func TestAnswerQuestionExhaustionFails(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{}
	runner := &fakeRunner{respond: func(domain.TaskType, string) (string, error) {
		return "", &cascade.ExhaustedError{Task: domain.TaskQA}
	}}
	p, videoCache, _, _ := newTestPipeline(testConfig(), extractor, runner)

	seed := domain.VideoState{
		ID: "seed", Room: "!room:example.org", VideoID: "vid8",
		Title: "T", Transcript: "text", Summary: "s", CreatedAt: time.Now(),
	}
	if err := videoCache.Put(context.Background(), seed); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, err := p.AnswerQuestion(context.Background(), "!room:example.org", "why?")
	if !errors.Is(err, domain.ErrQAFailed) {
		t.Fatalf("error = %v, want ErrQAFailed", err)
	}
}
