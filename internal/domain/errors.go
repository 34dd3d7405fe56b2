package domain

import "errors"

// Failure taxonomy surfaced to callers. Callers match with errors.Is;
// the concrete errors wrap these sentinels with stage-specific detail.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrExtractionFailed    = errors.New("transcript extraction failed")
	ErrExtractionTimeout   = errors.New("transcript extraction timed out")
	ErrAllModelsExhausted  = errors.New("all models exhausted")
	ErrSummarizationFailed = errors.New("summarization failed")
	ErrNoCachedVideo       = errors.New("no cached video for room")
	ErrQAFailed            = errors.New("question answering failed")
	ErrNotFound            = errors.New("not found")
)
