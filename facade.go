package authz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-authz/cascade"
	"github.com/goliatone/go-authz/core"
)

// RetryScheduler hands a failed cascade to out-of-band processing. The
// triggering write already committed by then, so the retry re-runs
// resolution for the entity rather than replaying the write.
type RetryScheduler interface {
	ScheduleInvalidationRetry(ctx context.Context, kind string, selfLink string, reason string) error
}

// Host is the document-service host surface this module coordinates:
// it applies policy-entity writes, lets the cascade settle each write's
// final outcome, and owns the invalidation side of the authorization
// cache.
type Host struct {
	config         core.Config
	logger         core.Logger
	loggerProvider core.LoggerProvider
	metrics        core.MetricsRecorder
	errorMapper    core.ErrorMapper
	store          core.DocumentStore
	queries        core.QueryExecutor
	invalidator    core.ContextInvalidator
	retry          RetryScheduler
	resolver       *cascade.Resolver
}

type hostBuilder struct {
	runtimeConfig   core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metrics         core.MetricsRecorder
	errorMapper     core.ErrorMapper
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
	store           core.DocumentStore
	queries         core.QueryExecutor
	invalidator     core.ContextInvalidator
	retry           RetryScheduler
}

type Option func(*hostBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *hostBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *hostBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *hostBuilder) {
		b.metrics = recorder
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(b *hostBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *hostBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *hostBuilder) {
		b.optionsResolver = resolver
	}
}

func WithDocumentStore(store core.DocumentStore) Option {
	return func(b *hostBuilder) {
		b.store = store
	}
}

func WithQueryExecutor(executor core.QueryExecutor) Option {
	return func(b *hostBuilder) {
		b.queries = executor
	}
}

func WithContextInvalidator(invalidator core.ContextInvalidator) Option {
	return func(b *hostBuilder) {
		b.invalidator = invalidator
	}
}

func WithRetryScheduler(scheduler RetryScheduler) Option {
	return func(b *hostBuilder) {
		b.retry = scheduler
	}
}

func New(cfg core.Config, opts ...Option) (*Host, error) {
	builder := hostBuilder{
		runtimeConfig:   cfg,
		metrics:         core.NopMetricsRecorder{},
		errorMapper:     core.AuthzErrorMapper,
		configProvider:  core.NewCfgxConfigProvider(nil),
		optionsResolver: core.GoOptionsResolver{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("authz", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("authz"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.store == nil {
		return nil, fmt.Errorf("authz: document store is required")
	}
	if builder.invalidator == nil {
		return nil, fmt.Errorf("authz: context invalidator is required")
	}
	if builder.queries == nil {
		executor, ok := builder.store.(core.QueryExecutor)
		if !ok {
			return nil, fmt.Errorf("authz: query executor is required")
		}
		builder.queries = executor
	}
	if builder.metrics == nil {
		builder.metrics = core.NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = core.AuthzErrorMapper
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	resolved, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}

	resolver := cascade.NewResolver(builder.store, builder.queries, builder.invalidator, logger)
	resolver.QueryLimit = resolved.Query.ResultLimit

	return &Host{
		config:         resolved,
		logger:         logger,
		loggerProvider: provider,
		metrics:        builder.metrics,
		errorMapper:    builder.errorMapper,
		store:          builder.store,
		queries:        builder.queries,
		invalidator:    builder.invalidator,
		retry:          builder.retry,
		resolver:       resolver,
	}, nil
}

func (h *Host) Config() core.Config {
	if h == nil {
		return core.Config{}
	}
	return h.config
}

func (h *Host) Resolver() *cascade.Resolver {
	if h == nil {
		return nil
	}
	return h.resolver
}

// ApplyWrite runs a policy-entity write through the host pipeline:
// extract the authoritative traversal state, arm the invalidation
// cascade on the operation, persist the write, and settle. The returned
// error is the operation's final outcome; a cascade failure surfaces
// here even though the underlying state mutation already committed, and
// is also handed to the retry scheduler when one is configured.
func (h *Host) ApplyWrite(ctx context.Context, req core.WriteRequest) error {
	if h == nil {
		return fmt.Errorf("authz: host is required")
	}
	startedAt := time.Now()
	if err := req.Validate(); err != nil {
		return h.mapError(err)
	}

	op := core.NewOperation(ctx, req.Meta, req.Body)
	if cascade.Applicable(req.Meta) {
		if err := h.armCascade(ctx, op, req); err != nil {
			h.observeWrite(ctx, startedAt, req, err)
			return h.mapError(err)
		}
	}

	writeErr := h.persist(core.WithSystemContext(ctx), req)
	op.Settle(writeErr)
	final := op.Wait(ctx)

	if final != nil && writeErr == nil {
		h.scheduleRetry(ctx, req, final)
		final = goerrors.Wrap(final, goerrors.CategoryInternal, "authz: invalidation cascade failed after committed write").
			WithTextCode(core.AuthzErrorCascadeFailed)
	}
	h.observeWrite(ctx, startedAt, req, final)
	return h.mapError(final)
}

// armCascade extracts the entity state the cascade traverses from and
// installs the matching entry point on the operation. Extraction runs
// before the write persists so a delete can still read the stored
// state.
func (h *Host) armCascade(ctx context.Context, op *core.Operation, req core.WriteRequest) error {
	fetchCtx := core.WithSystemContext(ctx)
	switch req.Kind {
	case core.KindUser:
		h.resolver.ClearForUser(op, req.SelfLink)
	case core.KindUserGroup:
		state, ok, err := cascade.ExtractState[core.UserGroupState](fetchCtx, op, h.store, req.SelfLink)
		if err != nil {
			return err
		}
		if ok {
			h.resolver.ClearForUserGroup(op, state)
		}
	case core.KindRole:
		state, ok, err := cascade.ExtractState[core.RoleState](fetchCtx, op, h.store, req.SelfLink)
		if err != nil {
			return err
		}
		if ok {
			h.resolver.ClearForRole(op, state)
		}
	case core.KindResourceGroup:
		state, ok, err := cascade.ExtractState[core.ResourceGroupState](fetchCtx, op, h.store, req.SelfLink)
		if err != nil {
			return err
		}
		if ok {
			if strings.TrimSpace(state.SelfLink) == "" {
				state.SelfLink = req.SelfLink
			}
			h.resolver.ClearForResourceGroup(op, state)
		}
	default:
		return core.NewAuthzError(
			fmt.Sprintf("authz: kind %q is not a policy document kind", req.Kind),
			goerrors.CategoryBadInput,
			core.AuthzErrorBadInput,
		)
	}
	return nil
}

func (h *Host) persist(ctx context.Context, req core.WriteRequest) error {
	switch req.Meta.Action {
	case core.ActionDelete:
		return h.store.DeleteDocument(ctx, req.SelfLink)
	default:
		return h.store.PutDocument(ctx, core.Document{
			SelfLink: req.SelfLink,
			Kind:     req.Kind,
			Body:     req.Body,
		})
	}
}

// InvalidatePrincipal evicts a single principal's cached context.
func (h *Host) InvalidatePrincipal(ctx context.Context, principal string) error {
	if h == nil || h.invalidator == nil {
		return fmt.Errorf("authz: host is not configured")
	}
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return core.NewAuthzError("authz: principal is required", goerrors.CategoryBadInput, core.AuthzErrorBadInput)
	}
	err := h.invalidator.ClearAuthorizationContext(ctx, principal)
	if err == nil {
		h.metrics.IncCounter(ctx, "authz.principal.invalidated.total", 1, map[string]string{"source": "direct"})
	}
	return h.mapError(err)
}

// GetDocument reads a stored policy document.
func (h *Host) GetDocument(ctx context.Context, selfLink string) (core.Document, error) {
	if h == nil || h.store == nil {
		return core.Document{}, fmt.Errorf("authz: host is not configured")
	}
	doc, err := h.store.GetDocument(ctx, selfLink)
	if err != nil {
		return core.Document{}, h.mapError(err)
	}
	return doc, nil
}

// ResolveAffectedPrincipals runs the cascade's resolution for an entity
// without evicting anything, reporting the principal set a mutation of
// that entity would invalidate.
func (h *Host) ResolveAffectedPrincipals(ctx context.Context, kind string, selfLink string) ([]string, error) {
	if h == nil {
		return nil, fmt.Errorf("authz: host is required")
	}
	collector := &collectingInvalidator{}
	resolver := cascade.NewResolver(h.store, h.queries, collector, h.logger)
	resolver.QueryLimit = h.config.Query.ResultLimit
	if err := resolver.ResolveLink(ctx, kind, selfLink); err != nil {
		return nil, h.mapError(err)
	}
	return collector.Principals(), nil
}

func (h *Host) scheduleRetry(ctx context.Context, req core.WriteRequest, cause error) {
	if h.retry == nil {
		return
	}
	if err := h.retry.ScheduleInvalidationRetry(ctx, req.Kind, req.SelfLink, cause.Error()); err != nil {
		h.logger.Error("scheduling invalidation retry failed",
			"kind", req.Kind,
			"self_link", req.SelfLink,
			"error", err.Error(),
		)
	}
}

func (h *Host) observeWrite(ctx context.Context, startedAt time.Time, req core.WriteRequest, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	tags := map[string]string{
		"kind":   req.Kind,
		"action": string(req.Meta.Action),
		"status": status,
	}
	h.metrics.IncCounter(ctx, "authz.write.total", 1, tags)
	h.metrics.ObserveHistogram(ctx, "authz.write.duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		h.logger.Error("write failed",
			"kind", req.Kind,
			"action", string(req.Meta.Action),
			"self_link", req.SelfLink,
			"error", err.Error(),
		)
		return
	}
	h.logger.Info("write applied",
		"kind", req.Kind,
		"action", string(req.Meta.Action),
		"self_link", req.SelfLink,
	)
}

func (h *Host) mapError(err error) error {
	if err == nil {
		return nil
	}
	if h == nil || h.errorMapper == nil {
		return err
	}
	mapped := h.errorMapper(err)
	if mapped == nil {
		return nil
	}
	return mapped
}

type collectingInvalidator struct {
	mu         sync.Mutex
	principals []string
}

func (c *collectingInvalidator) ClearAuthorizationContext(_ context.Context, principal string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principals = append(c.principals, principal)
	return nil
}

func (c *collectingInvalidator) Principals() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]struct{}, len(c.principals))
	out := make([]string, 0, len(c.principals))
	for _, principal := range c.principals {
		if _, ok := seen[principal]; ok {
			continue
		}
		seen[principal] = struct{}{}
		out = append(out, principal)
	}
	sort.Strings(out)
	return out
}
