package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalogstore/pkg/logger"
)

// clock and id generation are swapped in tests.
var (
	timeNow = time.Now
	newID   = uuid.NewString
)

// nextTimestamp returns the current UTC time, moved past prev when the
// clock has not advanced, so updatedAt strictly increases.
func nextTimestamp(prev time.Time) time.Time {
	now := timeNow().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// publishFailed logs a failed event publish. Events never fail a request
// whose state change is already persisted.
func publishFailed(ctx context.Context, l *slog.Logger, topic string, err error) {
	logger.WithContext(ctx, l).ErrorContext(ctx, "failed to publish event",
		slog.String("topic", topic),
		slog.String("error", err.Error()),
	)
}
