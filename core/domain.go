package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action is the verb of a document write or read.
type Action string

const (
	ActionGet    Action = "GET"
	ActionPost   Action = "POST"
	ActionPut    Action = "PUT"
	ActionPatch  Action = "PATCH"
	ActionDelete Action = "DELETE"
)

func (a Action) IsWrite() bool {
	switch a {
	case ActionPost, ActionPut, ActionPatch, ActionDelete:
		return true
	}
	return false
}

// OperationMeta carries the metadata an inbound operation was delivered
// with, decoupled from any live operation object so phase policy stays a
// pure function of plain data.
type OperationMeta struct {
	Action Action

	// FromReplication marks operations applied on behalf of another node
	// rather than originated by a local caller.
	FromReplication bool

	// Created marks a replicated POST that represents an actual logical
	// creation. Replays during node restart or resync arrive without it.
	Created bool

	// Commit marks the second phase of a two-phase replicated delete.
	Commit bool
}

// Document kinds for the policy entities the invalidation cascade
// traverses.
const (
	KindUser          = "authz:user"
	KindUserGroup     = "authz:user-group"
	KindRole          = "authz:role"
	KindResourceGroup = "authz:resource-group"
)

// Queryable document field names. The document store maps these onto
// indexed columns.
const (
	FieldKind              = "kind"
	FieldSelfLink          = "selfLink"
	FieldEmail             = "email"
	FieldUserGroupLink     = "userGroupLink"
	FieldResourceGroupLink = "resourceGroupLink"
)

// Document is a stored policy entity: its identity plus the raw
// serialized state.
type Document struct {
	SelfLink  string          `json:"selfLink"`
	Kind      string          `json:"kind"`
	Body      json.RawMessage `json:"body,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

func (d Document) Validate() error {
	if strings.TrimSpace(d.SelfLink) == "" {
		return fmt.Errorf("core: document self link is required")
	}
	if strings.TrimSpace(d.Kind) == "" {
		return fmt.Errorf("core: document kind is required")
	}
	return nil
}

// UserState is the terminal entity of the cascade. Its self link is the
// principal identifier the authorization cache is keyed by.
type UserState struct {
	SelfLink string `json:"selfLink"`
	Email    string `json:"email,omitempty"`
}

// UserGroupState names a set of users through a membership query rather
// than stored edges. A nil query matches nobody.
type UserGroupState struct {
	SelfLink string `json:"selfLink"`
	Query    *Query `json:"query,omitempty"`
}

// RoleState grants a user group access to a resource group. Either link
// may dangle; the cascade treats a dangling link as "affects nothing
// further".
type RoleState struct {
	SelfLink          string   `json:"selfLink"`
	UserGroupLink     string   `json:"userGroupLink,omitempty"`
	ResourceGroupLink string   `json:"resourceGroupLink,omitempty"`
	Verbs             []string `json:"verbs,omitempty"`
}

// ResourceGroupState names a set of resources. Roles point at it; it
// carries no pointer back, so affected roles are resolved by query.
type ResourceGroupState struct {
	SelfLink string `json:"selfLink"`
	Query    *Query `json:"query,omitempty"`
}

// AuthorizationContext is the cached per-principal decision data. The
// cascade never inspects it; it only evicts it.
type AuthorizationContext struct {
	Principal string         `json:"principal"`
	Claims    map[string]any `json:"claims,omitempty"`
	BuiltAt   time.Time      `json:"builtAt"`
}

// WriteRequest is the single-entry write surface of the host: which
// entity, with which delivery metadata, and the raw proposed state.
type WriteRequest struct {
	Kind     string
	SelfLink string
	Meta     OperationMeta
	Body     json.RawMessage
}

func (r WriteRequest) Validate() error {
	if strings.TrimSpace(r.Kind) == "" {
		return fmt.Errorf("core: write kind is required")
	}
	if strings.TrimSpace(r.SelfLink) == "" {
		return fmt.Errorf("core: write self link is required")
	}
	if !r.Meta.Action.IsWrite() {
		return fmt.Errorf("core: action %q is not a write", r.Meta.Action)
	}
	return nil
}
