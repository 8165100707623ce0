package cascade

import (
	"context"
	"encoding/json"
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-authz/core"
)

// ExtractState produces the authoritative post-write state to traverse
// from. For POST, PUT and PATCH the in-flight payload wins: the cascade
// runs only after the host durably applied it, so stored state is never
// consulted. For DELETE a replicated request carries the deleted
// snapshot as its body; a local delete has no snapshot, so the entity's
// last stored state is fetched instead. Any other action yields no
// state and ok=false.
func ExtractState[T any](ctx context.Context, op *core.Operation, fetcher core.StateFetcher, selfLink string) (T, bool, error) {
	var state T
	if op == nil {
		return state, false, core.NewAuthzError("cascade: operation is required", goerrors.CategoryBadInput, core.AuthzErrorBadInput)
	}

	switch op.Meta().Action {
	case core.ActionPost, core.ActionPut, core.ActionPatch:
		if err := decodeState(op.Body(), &state); err != nil {
			return state, false, err
		}
		return state, true, nil
	case core.ActionDelete:
		if op.Meta().FromReplication && op.HasBody() {
			if err := decodeState(op.Body(), &state); err != nil {
				return state, false, err
			}
			return state, true, nil
		}
		if fetcher == nil {
			return state, false, core.NewAuthzError("cascade: state fetcher is required for delete extraction", goerrors.CategoryInternal, core.AuthzErrorInternal)
		}
		doc, err := fetcher.GetDocument(ctx, selfLink)
		if err != nil {
			return state, false, err
		}
		if err := decodeState(doc.Body, &state); err != nil {
			return state, false, err
		}
		return state, true, nil
	}
	return state, false, nil
}

func decodeState(body json.RawMessage, out any) error {
	if len(body) == 0 {
		return core.NewAuthzError("cascade: operation body is empty", goerrors.CategoryBadInput, core.AuthzErrorBadInput)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return core.NewAuthzError(
			fmt.Sprintf("cascade: body does not match expected state: %v", err),
			goerrors.CategoryBadInput,
			core.AuthzErrorBadInput,
		)
	}
	return nil
}
