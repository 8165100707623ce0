package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-authz/core"
)

// Resolver walks the policy graph from a mutated entity to every
// principal whose cached authorization context may derive from it, and
// clears each. Traversal reads run under the system authorization
// context.
type Resolver struct {
	Fetcher     core.StateFetcher
	Queries     core.QueryExecutor
	Invalidator core.ContextInvalidator
	Logger      core.Logger

	// QueryLimit bounds traversal queries; zero uses the executor
	// default.
	QueryLimit int
}

func NewResolver(
	fetcher core.StateFetcher,
	queries core.QueryExecutor,
	invalidator core.ContextInvalidator,
	logger core.Logger,
) *Resolver {
	return &Resolver{
		Fetcher:     fetcher,
		Queries:     queries,
		Invalidator: invalidator,
		Logger:      glog.Ensure(logger),
	}
}

func (r *Resolver) ready() error {
	if r == nil {
		return fmt.Errorf("cascade: resolver is required")
	}
	if r.Invalidator == nil {
		return fmt.Errorf("cascade: context invalidator is required")
	}
	return nil
}

// ClearForUser installs the terminal cascade: once the write settles
// successfully, the user's own cached context is evicted. An empty link
// invalidates nothing. A just-created user is cleared too; eviction is
// idempotent and the entry cannot be stale in any harmful way.
func (r *Resolver) ClearForUser(op *core.Operation, userLink string) {
	if op == nil || !Applicable(op.Meta()) {
		return
	}
	op.Defer(func(ctx context.Context, err error) error {
		if err != nil {
			return err
		}
		return r.ResolveUser(ctx, userLink)
	})
}

// ClearForUserGroup installs a cascade that evicts every user matched by
// the group's membership query.
func (r *Resolver) ClearForUserGroup(op *core.Operation, state core.UserGroupState) {
	if op == nil || !Applicable(op.Meta()) {
		return
	}
	op.Defer(func(ctx context.Context, err error) error {
		if err != nil {
			return err
		}
		return r.ResolveUserGroup(ctx, state)
	})
}

// ClearForRole installs a cascade that follows the role's user-group
// link and evicts that group's members.
func (r *Resolver) ClearForRole(op *core.Operation, state core.RoleState) {
	if op == nil || !Applicable(op.Meta()) {
		return
	}
	op.Defer(func(ctx context.Context, err error) error {
		if err != nil {
			return err
		}
		return r.ResolveRole(ctx, state)
	})
}

// ClearForResourceGroup installs a cascade that finds every role
// referencing the resource group and resolves each concurrently.
func (r *Resolver) ClearForResourceGroup(op *core.Operation, state core.ResourceGroupState) {
	if op == nil || !Applicable(op.Meta()) {
		return
	}
	op.Defer(func(ctx context.Context, err error) error {
		if err != nil {
			return err
		}
		return r.ResolveResourceGroup(ctx, state)
	})
}

// ResolveUser evicts a single principal. Terminal case of the cascade.
func (r *Resolver) ResolveUser(ctx context.Context, userLink string) error {
	if err := r.ready(); err != nil {
		return err
	}
	userLink = strings.TrimSpace(userLink)
	if userLink == "" {
		return nil
	}
	return r.Invalidator.ClearAuthorizationContext(ctx, userLink)
}

// ResolveUserGroup runs the group's membership query and evicts every
// matched principal. A group without a query names nobody.
func (r *Resolver) ResolveUserGroup(ctx context.Context, state core.UserGroupState) error {
	if err := r.ready(); err != nil {
		return err
	}
	if state.Query == nil {
		return nil
	}
	if r.Queries == nil {
		return fmt.Errorf("cascade: query executor is required")
	}

	result, err := r.Queries.ExecuteDirect(core.WithSystemContext(ctx), core.QueryTask{
		Query:       userScopedQuery(state.Query),
		ResultLimit: r.QueryLimit,
	})
	if err != nil {
		return err
	}
	for _, userLink := range result.DocumentLinks {
		if err := r.Invalidator.ClearAuthorizationContext(ctx, userLink); err != nil {
			return err
		}
	}
	return nil
}

// ResolveRole fetches the role's user group and resolves it. A dangling
// user-group link affects nothing further and resolves successfully.
func (r *Resolver) ResolveRole(ctx context.Context, state core.RoleState) error {
	if err := r.ready(); err != nil {
		return err
	}
	groupLink := strings.TrimSpace(state.UserGroupLink)
	if groupLink == "" {
		return nil
	}
	if r.Fetcher == nil {
		return fmt.Errorf("cascade: state fetcher is required")
	}

	doc, err := r.Fetcher.GetDocument(core.WithSystemContext(ctx), groupLink)
	if core.IsNotFound(err) {
		r.Logger.Debug("user group already gone, nothing to invalidate",
			"role", state.SelfLink,
			"user_group", groupLink,
		)
		return nil
	}
	if err != nil {
		return err
	}

	var group core.UserGroupState
	if err := decodeState(doc.Body, &group); err != nil {
		return err
	}
	return r.ResolveUserGroup(ctx, group)
}

// ResolveResourceGroup finds every role referencing the resource group
// via a reverse query and resolves them concurrently. The resolution
// succeeds only once every sibling succeeded; the first observed
// sibling failure fails the whole cascade, without rolling back
// evictions already issued for siblings that finished.
func (r *Resolver) ResolveResourceGroup(ctx context.Context, state core.ResourceGroupState) error {
	if err := r.ready(); err != nil {
		return err
	}
	if r.Queries == nil {
		return fmt.Errorf("cascade: query executor is required")
	}
	selfLink := strings.TrimSpace(state.SelfLink)
	if selfLink == "" {
		return nil
	}

	result, err := r.Queries.ExecuteDirect(core.WithSystemContext(ctx), core.QueryTask{
		Query:         RolesByResourceGroupQuery(selfLink),
		ExpandContent: true,
		ResultLimit:   r.QueryLimit,
	})
	if err != nil {
		return err
	}
	if len(result.Documents) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(link string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			return
		}
		r.Logger.Debug("additional cascade failure after first",
			"role", link,
			"error", err.Error(),
		)
	}

	for link, raw := range result.Documents {
		wg.Add(1)
		go func(link string, raw json.RawMessage) {
			defer wg.Done()
			var role core.RoleState
			if err := decodeState(raw, &role); err != nil {
				record(link, err)
				return
			}
			if err := r.ResolveRole(ctx, role); err != nil {
				record(link, err)
			}
		}(link, raw)
	}
	wg.Wait()
	return firstErr
}

// ResolveLink fetches a policy document and resolves the cascade for
// its kind. Used by read-side queries and by out-of-band invalidation
// retries that only have the entity's identity at hand.
func (r *Resolver) ResolveLink(ctx context.Context, kind string, selfLink string) error {
	if err := r.ready(); err != nil {
		return err
	}
	if kind == core.KindUser {
		return r.ResolveUser(ctx, selfLink)
	}
	if r.Fetcher == nil {
		return fmt.Errorf("cascade: state fetcher is required")
	}
	doc, err := r.Fetcher.GetDocument(core.WithSystemContext(ctx), strings.TrimSpace(selfLink))
	if core.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	switch kind {
	case core.KindUserGroup:
		var state core.UserGroupState
		if err := decodeState(doc.Body, &state); err != nil {
			return err
		}
		return r.ResolveUserGroup(ctx, state)
	case core.KindRole:
		var state core.RoleState
		if err := decodeState(doc.Body, &state); err != nil {
			return err
		}
		return r.ResolveRole(ctx, state)
	case core.KindResourceGroup:
		var state core.ResourceGroupState
		if err := decodeState(doc.Body, &state); err != nil {
			return err
		}
		return r.ResolveResourceGroup(ctx, state)
	}
	return core.NewAuthzError(
		fmt.Sprintf("cascade: unknown policy document kind %q", kind),
		goerrors.CategoryBadInput,
		core.AuthzErrorBadInput,
	)
}

// userScopedQuery pins a membership query to user documents. A stored
// query may already carry its own user-kind clause; that one is removed
// first so the scope clause appears exactly once.
func userScopedQuery(query *core.Query) *core.Query {
	scoped := core.RemoveBooleanClause(query.Clone(), core.KindClause(core.KindUser))
	out := &core.Query{Occurrence: core.OccurrenceMust}
	out.AddBooleanClause(core.KindClause(core.KindUser))
	if scoped.Term != nil || len(scoped.BooleanClauses) > 0 {
		out.AddBooleanClause(scoped)
	}
	return out
}

// RolesByResourceGroupQuery builds the reverse-edge query: every role
// document whose resource-group link equals the given identifier.
func RolesByResourceGroupQuery(resourceGroupLink string) *core.Query {
	query := &core.Query{Occurrence: core.OccurrenceMust}
	query.AddBooleanClause(core.FieldClause(core.FieldResourceGroupLink, resourceGroupLink))
	query.AddBooleanClause(core.KindClause(core.KindRole))
	return query
}
