// Package cache holds the per-principal authorization context cache the
// invalidation cascade evicts from.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-authz/core"
)

const contextCacheKeyPrefix = "go-authz::authz_context::v1"

// ContextBuilder computes a principal's authorization context from
// current policy state. Called on cache miss.
type ContextBuilder interface {
	Build(ctx context.Context, principal string) (core.AuthorizationContext, error)
}

// ContextBuilderFunc adapts a function to ContextBuilder.
type ContextBuilderFunc func(ctx context.Context, principal string) (core.AuthorizationContext, error)

func (f ContextBuilderFunc) Build(ctx context.Context, principal string) (core.AuthorizationContext, error) {
	return f(ctx, principal)
}

// ContextCache is a read-through cache of authorization contexts.
// Eviction rather than recomputation is the invalidation primitive: a
// cleared principal is rebuilt lazily on its next request.
type ContextCache struct {
	cache   repositorycache.CacheService
	builder ContextBuilder
}

func New(cacheService repositorycache.CacheService, builder ContextBuilder) (*ContextCache, error) {
	if cacheService == nil {
		return nil, fmt.Errorf("cache: cache service is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("cache: context builder is required")
	}
	return &ContextCache{cache: cacheService, builder: builder}, nil
}

// NewWithTTL builds a ContextCache on a fresh in-process cache service.
func NewWithTTL(ttl time.Duration, builder ContextBuilder) (*ContextCache, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, err
	}
	return New(service, builder)
}

// Key returns the deterministic cache key contract for a principal:
// go-authz::authz_context::v1::<principal> with the principal URL-path
// escaped.
func Key(principal string) (string, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return "", fmt.Errorf("cache: principal is required")
	}
	return contextCacheKeyPrefix + "::" + url.PathEscape(principal), nil
}

// Get returns the principal's authorization context, building and
// caching it on miss.
func (c *ContextCache) Get(ctx context.Context, principal string) (core.AuthorizationContext, error) {
	if c == nil || c.cache == nil || c.builder == nil {
		return core.AuthorizationContext{}, fmt.Errorf("cache: context cache is not configured")
	}
	cacheKey, err := Key(principal)
	if err != nil {
		return core.AuthorizationContext{}, err
	}
	authzContext, err := repositorycache.GetOrFetch(ctx, c.cache, cacheKey, func(ctx context.Context) (core.AuthorizationContext, error) {
		built, buildErr := c.builder.Build(ctx, strings.TrimSpace(principal))
		if buildErr != nil {
			return core.AuthorizationContext{}, buildErr
		}
		if built.BuiltAt.IsZero() {
			built.BuiltAt = time.Now().UTC()
		}
		return cloneContext(built), nil
	})
	if err != nil {
		return core.AuthorizationContext{}, err
	}
	return cloneContext(authzContext), nil
}

// ClearAuthorizationContext evicts the principal's cached context.
// Clearing an absent entry is a no-op.
func (c *ContextCache) ClearAuthorizationContext(ctx context.Context, principal string) error {
	if c == nil || c.cache == nil {
		return fmt.Errorf("cache: context cache is not configured")
	}
	cacheKey, err := Key(principal)
	if err != nil {
		return err
	}
	return c.cache.Delete(ctx, cacheKey)
}

func cloneContext(authzContext core.AuthorizationContext) core.AuthorizationContext {
	cloned := authzContext
	if authzContext.Claims != nil {
		cloned.Claims = make(map[string]any, len(authzContext.Claims))
		for key, value := range authzContext.Claims {
			cloned.Claims[key] = value
		}
	}
	return cloned
}

var _ core.ContextInvalidator = (*ContextCache)(nil)
