package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignUpSuccess ActivityEventType = "auth.signup.success"
	ActivityEventSignInSuccess ActivityEventType = "auth.signin.success"
	ActivityEventSignInFailure ActivityEventType = "auth.signin.failure"
	ActivityEventPostSaved     ActivityEventType = "post.saved"
)

// ActivityEvent captures audit-friendly information about an action.
// Metadata never carries passwords or tokens.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	ObjectID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
