// Package jobs carries the out-of-band work the host hands to a queue.
// A cascade that fails after its triggering write committed leaves the
// authorization cache potentially stale; the host schedules a retry
// here instead of retrying inline.
package jobs

import (
	"context"
	"fmt"
	"strings"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"

	"github.com/goliatone/go-authz/core"
)

const JobIDInvalidationRetry = "authz.invalidation.retry"

const (
	paramKind     = "kind"
	paramSelfLink = "self_link"
	paramReason   = "reason"
)

// InvalidationRetryScheduler enqueues cascade re-runs.
type InvalidationRetryScheduler struct {
	enqueuer queue.Enqueuer
}

func NewInvalidationRetryScheduler(enqueuer queue.Enqueuer) *InvalidationRetryScheduler {
	return &InvalidationRetryScheduler{enqueuer: enqueuer}
}

// ScheduleInvalidationRetry enqueues a re-resolution of the cascade for
// the given entity. The idempotency key collapses repeated failures for
// the same entity into one pending retry.
func (s *InvalidationRetryScheduler) ScheduleInvalidationRetry(ctx context.Context, kind string, selfLink string, reason string) error {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("jobs: enqueuer is not configured")
	}
	kind = strings.TrimSpace(kind)
	selfLink = strings.TrimSpace(selfLink)
	if kind == "" || selfLink == "" {
		return fmt.Errorf("jobs: kind and self link are required")
	}
	_, err := s.enqueuer.Enqueue(ctx, &job.ExecutionMessage{
		JobID: JobIDInvalidationRetry,
		Parameters: map[string]any{
			paramKind:     kind,
			paramSelfLink: selfLink,
			paramReason:   strings.TrimSpace(reason),
		},
		IdempotencyKey: JobIDInvalidationRetry + "::" + kind + "::" + selfLink,
	})
	return err
}

// LinkResolver re-runs the cascade for a stored entity.
type LinkResolver interface {
	ResolveLink(ctx context.Context, kind string, selfLink string) error
}

// InvalidationRetryRunner executes dequeued retry messages.
type InvalidationRetryRunner struct {
	resolver LinkResolver
	logger   core.Logger
}

func NewInvalidationRetryRunner(resolver LinkResolver, logger core.Logger) *InvalidationRetryRunner {
	return &InvalidationRetryRunner{resolver: resolver, logger: logger}
}

func (r *InvalidationRetryRunner) Run(ctx context.Context, msg *job.ExecutionMessage) error {
	if r == nil || r.resolver == nil {
		return fmt.Errorf("jobs: link resolver is not configured")
	}
	if msg == nil {
		return fmt.Errorf("jobs: execution message is required")
	}
	kind, _ := msg.Parameters[paramKind].(string)
	selfLink, _ := msg.Parameters[paramSelfLink].(string)
	if strings.TrimSpace(kind) == "" || strings.TrimSpace(selfLink) == "" {
		return fmt.Errorf("jobs: execution message is missing kind or self link")
	}
	err := r.resolver.ResolveLink(core.WithSystemContext(ctx), kind, selfLink)
	if err != nil && r.logger != nil {
		r.logger.Error("invalidation retry failed",
			"kind", kind,
			"self_link", selfLink,
			"error", err.Error(),
		)
	}
	return err
}
