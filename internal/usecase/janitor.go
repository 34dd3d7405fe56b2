package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
)

// Sweeper removes expired cache entries and reports how many were dropped.
type Sweeper interface {
	Sweep() int
}

// Janitor wires the ticker driver with periodic cache cleanup.
type Janitor struct {
	driver  ports.Scheduler
	sweeper Sweeper
	logger  *slog.Logger
}

// NewJanitor returns a helper to start/stop the background cache sweep.
func NewJanitor(driver ports.Scheduler, sweeper Sweeper, logger *slog.Logger) *Janitor {
	return &Janitor{driver: driver, sweeper: sweeper, logger: logger}
}

// Start registers the sweep job with the provided scheduler.
func (j *Janitor) Start(ctx context.Context) error {
	if j.driver == nil || j.sweeper == nil {
		return nil
	}

	job := func(trigger time.Time) {
		removed := j.sweeper.Sweep()
		if removed > 0 && j.logger != nil {
			j.logger.Debug("cache sweep", "removed", removed, "at", trigger)
		}
	}

	return j.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (j *Janitor) Stop(ctx context.Context) error {
	if j.driver == nil {
		return nil
	}

	return j.driver.Stop(ctx)
}
