package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger contract used across the module.
type Logger = glog.Logger

// LoggerProvider resolves named loggers.
type LoggerProvider = glog.LoggerProvider

// FieldsLogger is an optional logger capability for structured fields.
type FieldsLogger = glog.FieldsLogger

// StateFetcher reads the current stored state of a policy document.
// A missing document surfaces as a CategoryNotFound envelope error.
type StateFetcher interface {
	GetDocument(ctx context.Context, selfLink string) (Document, error)
}

// QueryExecutor answers direct structured queries over the stored
// policy documents. Traversal queries issued by the cascade run under
// the system authorization context regardless of the triggering
// caller's privileges.
type QueryExecutor interface {
	ExecuteDirect(ctx context.Context, task QueryTask) (QueryResult, error)
}

// ContextInvalidator evicts the cached authorization context of a
// principal. Eviction is idempotent; clearing an absent entry is a
// no-op.
type ContextInvalidator interface {
	ClearAuthorizationContext(ctx context.Context, principal string) error
}

// DocumentStore is the persistence surface of the host.
type DocumentStore interface {
	StateFetcher
	PutDocument(ctx context.Context, doc Document) error
	DeleteDocument(ctx context.Context, selfLink string) error
}

// MetricsRecorder receives host counters and timings.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

type systemContextKey struct{}

// WithSystemContext marks ctx as carrying the host's internal
// authorization context. Cascade sub-requests use it because the caller
// that triggered the write may not be allowed to read the full policy
// graph it implicitly invalidates across.
func WithSystemContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, systemContextKey{}, true)
}

// IsSystemContext reports whether ctx carries the system authorization
// context.
func IsSystemContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	marked, _ := ctx.Value(systemContextKey{}).(bool)
	return marked
}
