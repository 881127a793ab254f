package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess       ActivityEventType = "session.login.success"
	ActivityEventLoginFailure       ActivityEventType = "session.login.failure"
	ActivityEventRegisterSuccess    ActivityEventType = "session.register.success"
	ActivityEventRegisterFailure    ActivityEventType = "session.register.failure"
	ActivityEventUserCreated        ActivityEventType = "session.user.created"
	ActivityEventLogout             ActivityEventType = "session.logout"
	ActivityEventProfileLoaded      ActivityEventType = "session.profile.loaded"
	ActivityEventProfileFailed      ActivityEventType = "session.profile.failed"
	ActivityEventProfileUpdated     ActivityEventType = "session.profile.updated"
	ActivityEventPasswordChanged    ActivityEventType = "session.password.changed"
	ActivityEventTokenRefreshed     ActivityEventType = "session.token.refreshed"
	ActivityEventTokenRefreshFailed ActivityEventType = "session.token.refresh_failed"
)

// ActivityEvent captures what happened to the session and for which user.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Role       Role
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

// recordActivity never fails the caller, sink errors are logged
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, event); err != nil && logger != nil {
		logger.Error("activity sink failed for %s: %s", event.EventType, err)
	}
}
