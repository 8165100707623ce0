package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-authz/core"
)

type countingBuilder struct {
	mu     sync.Mutex
	builds map[string]int
	err    error
}

func (b *countingBuilder) Build(_ context.Context, principal string) (core.AuthorizationContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return core.AuthorizationContext{}, b.err
	}
	if b.builds == nil {
		b.builds = map[string]int{}
	}
	b.builds[principal]++
	return core.AuthorizationContext{
		Principal: principal,
		Claims:    map[string]any{"builds": b.builds[principal]},
	}, nil
}

func (b *countingBuilder) count(principal string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds[principal]
}

func newTestCache(t *testing.T, builder ContextBuilder) *ContextCache {
	t.Helper()
	contextCache, err := NewWithTTL(time.Minute, builder)
	if err != nil {
		t.Fatalf("new context cache: %v", err)
	}
	return contextCache
}

func TestContextCache_ReadThrough(t *testing.T) {
	builder := &countingBuilder{}
	contextCache := newTestCache(t, builder)

	first, err := contextCache.Get(context.Background(), "/core/authz/users/alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.Principal != "/core/authz/users/alice" {
		t.Fatalf("unexpected context %+v", first)
	}
	if first.BuiltAt.IsZero() {
		t.Fatalf("expected build time stamped")
	}

	second, err := contextCache.Get(context.Background(), "/core/authz/users/alice")
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if builder.count("/core/authz/users/alice") != 1 {
		t.Fatalf("expected single build, got %d", builder.count("/core/authz/users/alice"))
	}
	if !second.BuiltAt.Equal(first.BuiltAt) {
		t.Fatalf("expected cached context returned")
	}
}

func TestContextCache_ClearForcesRebuild(t *testing.T) {
	builder := &countingBuilder{}
	contextCache := newTestCache(t, builder)

	if _, err := contextCache.Get(context.Background(), "/core/authz/users/alice"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := contextCache.ClearAuthorizationContext(context.Background(), "/core/authz/users/alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := contextCache.Get(context.Background(), "/core/authz/users/alice"); err != nil {
		t.Fatalf("get after clear: %v", err)
	}

	if builder.count("/core/authz/users/alice") != 2 {
		t.Fatalf("expected rebuild after eviction, got %d builds", builder.count("/core/authz/users/alice"))
	}
}

func TestContextCache_ClearAbsentEntryIsNoop(t *testing.T) {
	contextCache := newTestCache(t, &countingBuilder{})

	if err := contextCache.ClearAuthorizationContext(context.Background(), "/core/authz/users/nobody"); err != nil {
		t.Fatalf("expected clearing an absent entry to succeed, got %v", err)
	}
}

func TestContextCache_BuilderFailureNotCached(t *testing.T) {
	builder := &countingBuilder{err: errors.New("policy graph unavailable")}
	contextCache := newTestCache(t, builder)

	if _, err := contextCache.Get(context.Background(), "/core/authz/users/alice"); err == nil {
		t.Fatalf("expected builder failure to surface")
	}

	builder.mu.Lock()
	builder.err = nil
	builder.mu.Unlock()

	got, err := contextCache.Get(context.Background(), "/core/authz/users/alice")
	if err != nil {
		t.Fatalf("expected rebuild after failure, got %v", err)
	}
	if got.Principal != "/core/authz/users/alice" {
		t.Fatalf("unexpected context %+v", got)
	}
}

func TestContextCache_ReturnedContextIsolated(t *testing.T) {
	contextCache := newTestCache(t, &countingBuilder{})

	first, err := contextCache.Get(context.Background(), "/core/authz/users/alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.Claims["tampered"] = true

	second, err := contextCache.Get(context.Background(), "/core/authz/users/alice")
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if _, ok := second.Claims["tampered"]; ok {
		t.Fatalf("expected cached claims isolated from caller mutation")
	}
}

func TestKey(t *testing.T) {
	key, err := Key("/core/authz/users/alice")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if !strings.HasPrefix(key, "go-authz::authz_context::v1::") {
		t.Fatalf("unexpected key prefix %q", key)
	}
	if strings.Contains(strings.TrimPrefix(key, "go-authz::authz_context::v1::"), "/") {
		t.Fatalf("expected principal path escaped, got %q", key)
	}

	if _, err := Key("  "); err == nil {
		t.Fatalf("expected error for blank principal")
	}
}

func TestContextBuilderFunc(t *testing.T) {
	builder := ContextBuilderFunc(func(_ context.Context, principal string) (core.AuthorizationContext, error) {
		return core.AuthorizationContext{Principal: principal}, nil
	})
	got, err := builder.Build(context.Background(), "/core/authz/users/alice")
	if err != nil || got.Principal != "/core/authz/users/alice" {
		t.Fatalf("unexpected build result %+v %v", got, err)
	}
}
