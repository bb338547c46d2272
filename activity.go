package auth

import (
	"context"
	"errors"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountRegistered ActivityEventType = "auth.account.registered"
	ActivityEventOTPVerified       ActivityEventType = "auth.otp.verified"
	ActivityEventOTPRejected       ActivityEventType = "auth.otp.rejected"
	ActivityEventOTPResent         ActivityEventType = "auth.otp.resent"
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventLogout            ActivityEventType = "auth.logout"
	ActivityEventPasswordChanged   ActivityEventType = "auth.password.changed"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	Code       ErrorCode
	Metadata   map[string]any
	OccurredAt time.Time
}

// Outcome returns "success" or the failure code
func (e ActivityEvent) Outcome() string {
	if e.Code == "" {
		return "success"
	}
	return string(e.Code)
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

// MultiActivitySink fans an event out to several sinks
type MultiActivitySink []ActivitySink

func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoggingActivitySink writes events to a Logger
type LoggingActivitySink struct {
	Logger Logger
}

func (s LoggingActivitySink) Record(_ context.Context, event ActivityEvent) error {
	logger := resolveLogger(s.Logger)
	args := []any{
		"event", string(event.EventType),
		"outcome", event.Outcome(),
		"email", event.Email,
	}
	if event.UserID != "" {
		args = append(args, "user_id", event.UserID)
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}

	if event.Code != "" {
		logger.Warn("auth activity", args...)
		return nil
	}
	logger.Info("auth activity", args...)
	return nil
}
