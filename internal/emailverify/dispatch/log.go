package dispatch

import (
	"context"
	"log/slog"

	"medbridge/internal/emailverify/models"
)

// LogDispatcher writes codes to the log instead of delivering them. For local
// development only.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, msg models.Message) error {
	d.logger.InfoContext(ctx, "verification code issued",
		"to", msg.To,
		"display_name", msg.DisplayName,
		"code", msg.Code,
		"expires_at", msg.ExpiresAt,
	)
	return nil
}
