package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/task-approval-api/internal/changefeed"
)

// Clock returns the current time. Services store timestamps at millisecond
// precision so change versions match what the database round-trips.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// announce publishes committed changes. Failures are logged and otherwise
// ignored; the write already happened.
func announce(ctx context.Context, publisher changefeed.Publisher, logger *zap.Logger, changes ...changefeed.Change) {
	if publisher == nil || len(changes) == 0 {
		return
	}
	if err := publisher.Publish(ctx, changes...); err != nil {
		logger.Warn("failed to publish changes", zap.Int("count", len(changes)), zap.Error(err))
	}
}
