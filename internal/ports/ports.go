package ports

import (
	"context"
	"time"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
)

// Extractor pulls a transcript for a video from the hosting platform.
// Implementations must respect ctx deadlines and try the preferred
// subtitle languages in order.
type Extractor interface {
	Extract(ctx context.Context, videoID string, languages []string) (domain.Transcript, error)
}

// VideoCache stores the most recent VideoStates per room. Reads never
// return expired entries; writes evict the oldest entry once a room is
// at capacity.
type VideoCache interface {
	Put(ctx context.Context, state domain.VideoState) error
	Latest(ctx context.Context, room string) (domain.VideoState, error)
	ByVideoID(ctx context.Context, room, videoID string) (domain.VideoState, error)
}

// History persists completed summaries for audit and lookup across
// restarts. Pipeline success never depends on it.
type History interface {
	Save(ctx context.Context, state domain.VideoState) error
	Recent(ctx context.Context, room string, limit int) ([]domain.VideoState, error)
}

// Notifier reports pipeline progress to whatever is driving the bot.
type Notifier interface {
	Progress(ctx context.Context, room, message string) error
}

// Scheduler controls when recurring maintenance jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
