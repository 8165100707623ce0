package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"

	"github.com/goliatone/go-authz/core"
)

type stubEnqueuer struct {
	mu       sync.Mutex
	messages []*job.ExecutionMessage
	err      error
}

func (e *stubEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return queue.EnqueueReceipt{}, e.err
	}
	e.messages = append(e.messages, msg)
	return queue.EnqueueReceipt{}, nil
}

type stubLinkResolver struct {
	mu     sync.Mutex
	calls  []string
	err    error
	system bool
}

func (r *stubLinkResolver) ResolveLink(ctx context.Context, kind string, selfLink string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, kind+"::"+selfLink)
	r.system = core.IsSystemContext(ctx)
	return r.err
}

func TestScheduleInvalidationRetry(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	scheduler := NewInvalidationRetryScheduler(enqueuer)

	err := scheduler.ScheduleInvalidationRetry(
		context.Background(),
		core.KindResourceGroup,
		"/core/authz/resource-groups/docs",
		"cascade failed after committed write",
	)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if len(enqueuer.messages) != 1 {
		t.Fatalf("expected 1 enqueued message, got %d", len(enqueuer.messages))
	}
	msg := enqueuer.messages[0]
	if msg.JobID != JobIDInvalidationRetry {
		t.Fatalf("unexpected job id %q", msg.JobID)
	}
	if msg.Parameters[paramKind] != core.KindResourceGroup {
		t.Fatalf("expected kind parameter, got %v", msg.Parameters)
	}
	if msg.Parameters[paramSelfLink] != "/core/authz/resource-groups/docs" {
		t.Fatalf("expected self link parameter, got %v", msg.Parameters)
	}
	want := JobIDInvalidationRetry + "::" + core.KindResourceGroup + "::/core/authz/resource-groups/docs"
	if msg.IdempotencyKey != want {
		t.Fatalf("expected idempotency key %q, got %q", want, msg.IdempotencyKey)
	}
}

func TestScheduleInvalidationRetry_Validation(t *testing.T) {
	scheduler := NewInvalidationRetryScheduler(&stubEnqueuer{})

	if err := scheduler.ScheduleInvalidationRetry(context.Background(), "", "/x", ""); err == nil {
		t.Fatalf("expected error for blank kind")
	}
	if err := scheduler.ScheduleInvalidationRetry(context.Background(), core.KindUser, "  ", ""); err == nil {
		t.Fatalf("expected error for blank self link")
	}

	unconfigured := NewInvalidationRetryScheduler(nil)
	if err := unconfigured.ScheduleInvalidationRetry(context.Background(), core.KindUser, "/x", ""); err == nil {
		t.Fatalf("expected error for missing enqueuer")
	}
}

func TestInvalidationRetryRunner_Run(t *testing.T) {
	resolver := &stubLinkResolver{}
	runner := NewInvalidationRetryRunner(resolver, nil)

	err := runner.Run(context.Background(), &job.ExecutionMessage{
		JobID: JobIDInvalidationRetry,
		Parameters: map[string]any{
			paramKind:     core.KindRole,
			paramSelfLink: "/core/authz/roles/admin",
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(resolver.calls) != 1 || resolver.calls[0] != core.KindRole+"::/core/authz/roles/admin" {
		t.Fatalf("expected resolve call, got %v", resolver.calls)
	}
	if !resolver.system {
		t.Fatalf("expected retry to run under system context")
	}
}

func TestInvalidationRetryRunner_MissingParameters(t *testing.T) {
	runner := NewInvalidationRetryRunner(&stubLinkResolver{}, nil)

	err := runner.Run(context.Background(), &job.ExecutionMessage{
		JobID:      JobIDInvalidationRetry,
		Parameters: map[string]any{paramKind: core.KindRole},
	})
	if err == nil {
		t.Fatalf("expected error for missing self link")
	}

	if err := runner.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil message")
	}
}

func TestInvalidationRetryRunner_ResolverFailure(t *testing.T) {
	boom := errors.New("traversal failed")
	runner := NewInvalidationRetryRunner(&stubLinkResolver{err: boom}, nil)

	err := runner.Run(context.Background(), &job.ExecutionMessage{
		JobID: JobIDInvalidationRetry,
		Parameters: map[string]any{
			paramKind:     core.KindUserGroup,
			paramSelfLink: "/core/authz/user-groups/admins",
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected resolver failure surfaced, got %v", err)
	}
}
