package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/cascade"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/chunker"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
)

// CascadeRunner executes one model cascade for a task.
type CascadeRunner interface {
	Run(ctx context.Context, task domain.TaskType, models []string, prompt string, maxTokens int, temperature float64) (cascade.Result, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Extractor ports.Extractor
	Runner    CascadeRunner
	Cache     ports.VideoCache
	History   ports.History
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

// Pipeline implements the video summarization and Q&A workflow: extract
// transcript, split, summarize each chunk through the chunk cascade,
// combine through the final cascade, cache per room, answer follow-up
// questions against the cached transcript.
type Pipeline struct {
	cfg       config.Config
	extractor ports.Extractor
	runner    CascadeRunner
	cache     ports.VideoCache
	history   ports.History
	notifier  ports.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(cfg config.Config, deps PipelineDeps) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		extractor: deps.Extractor,
		runner:    deps.Runner,
		cache:     deps.Cache,
		history:   deps.History,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// SummarizeVideo runs the full pipeline for one video and caches the
// result for the room. Nothing is written to the cache or history until
// the final summary succeeds, so cancellation mid-run leaves no
// persisted state.
func (p *Pipeline) SummarizeVideo(ctx context.Context, room, videoID string) (domain.VideoState, error) {
	if strings.TrimSpace(room) == "" || strings.TrimSpace(videoID) == "" {
		return domain.VideoState{}, fmt.Errorf("summarize: missing room or video id: %w", domain.ErrInvalidInput)
	}

	if cached, err := p.cache.ByVideoID(ctx, room, videoID); err == nil {
		p.debug("serving cached summary", "room", room, "video", videoID)
		return cached, nil
	}

	p.notify(ctx, room, "Extracting subtitles from video...")

	transcript, err := p.extract(ctx, videoID)
	if err != nil {
		return domain.VideoState{}, err
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return domain.VideoState{}, fmt.Errorf("summarize %s: empty transcript: %w", videoID, domain.ErrInvalidInput)
	}

	chunks, err := chunker.Split(transcript.Text, p.cfg.Processing.ChunkSize, p.cfg.Processing.ChunkOverlap, p.cfg.Processing.MaxChunks)
	if err != nil {
		return domain.VideoState{}, fmt.Errorf("summarize %s: %w", videoID, err)
	}

	p.debug("transcript split", "video", videoID, "chars", len(transcript.Text), "chunks", len(chunks))
	p.notify(ctx, room, "Generating summary using AI...")

	summaries, err := p.summarizeChunks(ctx, transcript.Title, chunks)
	if err != nil {
		return domain.VideoState{}, err
	}

	summary, err := p.finalSummary(ctx, transcript.Title, summaries)
	if err != nil {
		return domain.VideoState{}, err
	}

	state := domain.VideoState{
		ID:         uuid.NewString(),
		Room:       room,
		VideoID:    videoID,
		Title:      transcript.Title,
		Transcript: transcript.Text,
		Summary:    summary,
		CreatedAt:  p.now(),
	}

	if err := p.cache.Put(ctx, state); err != nil {
		return domain.VideoState{}, fmt.Errorf("cache summary for %s: %w", videoID, err)
	}

	if p.history != nil {
		if err := p.history.Save(ctx, state); err != nil {
			p.warn("history save failed", "video", videoID, "error", err)
		}
	}

	return state, nil
}

func (p *Pipeline) extract(ctx context.Context, videoID string) (domain.Transcript, error) {
	extractCtx, cancel := context.WithTimeout(ctx, p.cfg.Subtitles.Timeout())
	defer cancel()

	transcript, err := p.extractor.Extract(extractCtx, videoID, p.cfg.Subtitles.Languages)
	if err == nil {
		return transcript, nil
	}

	// The caller abandoning the run is not an extraction failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.Transcript{}, ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Transcript{}, fmt.Errorf("extract %s: %v: %w", videoID, err, domain.ErrExtractionTimeout)
	}
	if errors.Is(err, domain.ErrExtractionFailed) || errors.Is(err, domain.ErrExtractionTimeout) {
		return domain.Transcript{}, err
	}
	return domain.Transcript{}, fmt.Errorf("extract %s: %v: %w", videoID, err, domain.ErrExtractionFailed)
}

// summarizeChunks runs the chunk cascade for every chunk under a bounded
// worker pool and reassembles the results in ordinal order. An exhausted
// chunk cascade degrades to a placeholder rather than failing the run.
func (p *Pipeline) summarizeChunks(ctx context.Context, title string, chunks []domain.Chunk) ([]domain.ChunkSummary, error) {
	concurrency := p.cfg.Processing.ChunkConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]domain.ChunkSummary, len(chunks))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk domain.Chunk) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			prompt := chunkPrompt(chunk.Ordinal, chunk.Total, title, chunk.Text)
			result, err := p.runner.Run(ctx, domain.TaskChunkSummary, p.cfg.AI.Cascades.Chunk, prompt, p.cfg.AI.MaxTokens.ChunkSummary, p.cfg.AI.Temperature.Summarization)
			if err != nil {
				p.warn("chunk summary degraded", "ordinal", chunk.Ordinal, "total", chunk.Total, "error", err)
				results[i] = domain.ChunkSummary{Ordinal: chunk.Ordinal, Text: chunkPlaceholder(chunk.Ordinal), Failed: true}
				return
			}
			results[i] = domain.ChunkSummary{Ordinal: chunk.Ordinal, Text: strings.TrimSpace(result.Text)}
		}(i, chunk)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// finalSummary combines chunk summaries in ordinal order and runs the
// final cascade. Exhaustion here is terminal.
func (p *Pipeline) finalSummary(ctx context.Context, title string, summaries []domain.ChunkSummary) (string, error) {
	parts := make([]string, len(summaries))
	for i, s := range summaries {
		parts[i] = s.Text
	}
	combined := strings.Join(parts, "\n\n")

	result, err := p.runner.Run(ctx, domain.TaskFinalSummary, p.cfg.AI.Cascades.Final, finalPrompt(title, combined), p.cfg.AI.MaxTokens.FinalSummary, p.cfg.AI.Temperature.Summarization)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("final summary for %q: %w: %w", title, domain.ErrSummarizationFailed, err)
	}

	p.debug("final summary produced", "title", title, "model", result.Model, "chars", len(result.Text))
	return strings.TrimSpace(result.Text), nil
}

func (p *Pipeline) notify(ctx context.Context, room, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Progress(ctx, room, message); err != nil {
		p.debug("progress notification failed", "room", room, "error", err)
	}
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
