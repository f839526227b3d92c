package main

import (
	"context"

	"go.uber.org/zap"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/activitymap"
)

// newActivitySink writes audit events to the "activity" logger and counts
// them by verb.
func newActivitySink(logger *zap.Logger, m *metrics) auth.ActivitySink {
	logger = logger.Named("activity")
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		record := activitymap.Normalize(event)

		logger.Info(record.Verb,
			zap.String("actor_id", record.ActorID),
			zap.String("object_type", record.ObjectType),
			zap.String("object_id", record.ObjectID),
			zap.String("channel", record.Channel),
			zap.Any("metadata", record.Metadata),
			zap.Time("occurred_at", record.OccurredAt),
		)

		if m != nil {
			m.observeActivity(record.Verb)
		}
		return nil
	})
}
