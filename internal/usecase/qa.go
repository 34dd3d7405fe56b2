package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
)

// AnswerQuestion answers a question about the most recently summarized
// video in the room. The transcript is truncated to the configured
// prefix length before prompting so long videos stay within context
// limits.
func (p *Pipeline) AnswerQuestion(ctx context.Context, room, question string) (string, error) {
	if strings.TrimSpace(room) == "" || strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("answer: missing room or question: %w", domain.ErrInvalidInput)
	}

	state, err := p.cache.Latest(ctx, room)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("answer in %s: %w", room, domain.ErrNoCachedVideo)
		}
		return "", fmt.Errorf("answer in %s: %w", room, err)
	}

	// Truncation counts characters, and the byte length bounds the rune
	// count, so short transcripts skip the rune conversion entirely.
	transcript := state.Transcript
	if max := p.cfg.Processing.MaxQATranscriptLength; max > 0 && len(transcript) > max {
		if runes := []rune(transcript); len(runes) > max {
			transcript = string(runes[:max])
		}
	}

	result, err := p.runner.Run(ctx, domain.TaskQA, p.cfg.AI.Cascades.QA, qaPrompt(state.Title, question, transcript), p.cfg.AI.MaxTokens.QAResponse, p.cfg.AI.Temperature.QA)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("answer about %q: %w: %w", state.Title, domain.ErrQAFailed, err)
	}

	p.debug("question answered", "room", room, "video", state.VideoID, "model", result.Model)
	return strings.TrimSpace(result.Text), nil
}
