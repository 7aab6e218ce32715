package worker

import (
	"time"

	"github.com/rescuedev/rescue-api/internal/token"
	"github.com/robfig/cron"
	"github.com/rs/zerolog"
)

// CleanupWorker periodically prunes session audit entries past the
// retention window.
type CleanupWorker struct {
	tokens    *token.Service
	schedule  string
	retention time.Duration
	cron      *cron.Cron
	logger    zerolog.Logger
}

func NewCleanupWorker(tokens *token.Service, schedule string, retention time.Duration, logger zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		tokens:    tokens,
		schedule:  schedule,
		retention: retention,
		cron:      cron.New(),
		logger:    logger.With().Str("component", "cleanup_worker").Logger(),
	}
}

// Start registers the cleanup job and starts the scheduler.
func (w *CleanupWorker) Start() error {
	if err := w.cron.AddFunc(w.schedule, w.run); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info().Str("schedule", w.schedule).Msg("session cleanup scheduled")
	return nil
}

func (w *CleanupWorker) Stop() {
	w.cron.Stop()
	w.logger.Info().Msg("session cleanup stopped")
}

func (w *CleanupWorker) run() {
	deleted, err := w.tokens.CleanupExpired(w.retention)
	if err != nil {
		w.logger.Error().Err(err).Msg("session cleanup failed")
		return
	}
	if deleted > 0 {
		w.logger.Info().Int64("deleted", deleted).Msg("expired sessions removed")
	}
}
