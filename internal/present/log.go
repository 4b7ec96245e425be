package present

import (
	"context"
	"log/slog"
)

// LogPresenter surfaces notifications to the structured log.
// Params: logger plus shared category/badge bookkeeping.
// Returns: presenter used for headless deployments and tests.
type LogPresenter struct {
	categoryBook
	logger *slog.Logger
}

// NewLogPresenter creates a log-backed presenter.
// Params: optional logger (defaults to slog.Default).
// Returns: initialized presenter with empty state.
func NewLogPresenter(logger *slog.Logger) *LogPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPresenter{logger: logger}
}

// RequestPermission grants authorization unconditionally.
// Params: context (unused).
// Returns: always granted.
func (p *LogPresenter) RequestPermission(ctx context.Context) (bool, error) {
	p.logger.Info("notification permission granted")
	return true, nil
}

// Submit logs one notification at info level.
// Params: context (unused) and notification.
// Returns: always nil.
func (p *LogPresenter) Submit(ctx context.Context, notification LocalNotification) error {
	p.logger.Info("notification presented",
		"hash", notification.Identifier,
		"title", notification.Title,
		"category", notification.Category,
		"badge", notification.Badge,
	)
	return nil
}
