package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper removes finished attempts from a session registry.
type Sweeper interface {
	Sweep() int
}

// SessionSweeper periodically drops submitted attempts so the registry only
// holds live ones.
type SessionSweeper struct {
	sessions Sweeper
	interval time.Duration
	log      zerolog.Logger
}

// NewSessionSweeper creates a new SessionSweeper.
func NewSessionSweeper(sessions Sweeper, interval time.Duration, log zerolog.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		log:      log.With().Str("component", "session_sweeper").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled. Call in a goroutine.
func (w *SessionSweeper) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			if n := w.sessions.Sweep(); n > 0 {
				w.log.Debug().Int("count", n).Msg("Swept submitted sessions")
			}
		}
	}
}
