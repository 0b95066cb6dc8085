// Package notify delivers fire-and-forget notifications about
// application events. A notification failure is logged and dropped; it
// never rolls back a state transition.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/application"
)

// EventKind names what happened to an application.
type EventKind string

const (
	EventApplicationSent   EventKind = "application_sent"
	EventApplicationFailed EventKind = "application_failed"
	EventCycleFinished     EventKind = "cycle_finished"
)

// Event is one notification payload.
type Event struct {
	Kind       EventKind
	Record     *application.Record
	Summary    string
	OccurredAt time.Time
}

// Notifier delivers one event. Implementations must not block the
// pipeline: slow transports should do their own buffering.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes events to the structured log. It is the default
// when no email transport is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("event", string(ev.Kind)),
		zap.Time("occurred_at", ev.OccurredAt),
	}
	if ev.Record != nil {
		fields = append(fields,
			zap.String("dedup_key", ev.Record.DedupKey),
			zap.String("company", ev.Record.Company),
			zap.String("state", string(ev.Record.State)),
		)
	}
	if ev.Summary != "" {
		fields = append(fields, zap.String("summary", ev.Summary))
	}
	n.Logger.Info("application event", fields...)
	return nil
}
