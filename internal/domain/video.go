package domain

import "time"

// Transcript is the spoken content of one video, immutable once extracted.
type Transcript struct {
	VideoID  string
	Title    string
	Language string
	Text     string
}

// Chunk is one bounded window of a transcript handed to the chunk cascade.
// Ordinal is 1-based; Total is the number of chunks in the same pass.
type Chunk struct {
	Ordinal int
	Total   int
	Text    string
}

// ChunkSummary is the result of summarizing one chunk. Failed indicates the
// chunk cascade was exhausted and Text holds a placeholder instead of a
// real summary.
type ChunkSummary struct {
	Ordinal int
	Text    string
	Failed  bool
}

// VideoState is the cached unit per room: write-once after the final
// summary succeeds, removed only by expiry or eviction.
type VideoState struct {
	ID         string
	Room       string
	VideoID    string
	Title      string
	Transcript string
	Summary    string
	CreatedAt  time.Time
}

// TaskType selects which model cascade and token budget a call uses.
type TaskType string

const (
	TaskChunkSummary TaskType = "chunk"
	TaskFinalSummary TaskType = "final"
	TaskQA           TaskType = "qa"
)

// ModelFailure records why one model of a cascade was given up on.
type ModelFailure struct {
	Model    string
	Attempts int
	Reason   string
}
