// Package cascade resolves the transitive set of principals affected by
// a policy-entity write and evicts their cached authorization contexts.
//
// Entry points install a deferred continuation on the triggering
// operation, so invalidation runs strictly after the host has decided
// the write's own outcome. A failed write re-signals its failure
// untouched; a failed cascade fails the operation even though the state
// mutation already committed, and callers must treat that as "cache may
// be stale, retry invalidation out of band", not as a rolled-back write.
package cascade

import "github.com/goliatone/go-authz/core"

// Applicable reports whether a write should trigger an invalidation
// cascade on this node.
//
// Locally originated operations always cascade. For replicated
// operations the phase matters: a POST cascades only when it represents
// an actual logical creation, so restart and resync replays stay quiet;
// a DELETE is two-phase and cascades only at commit. PUT and PATCH carry
// no explicit commit signal because the next version is an implicit
// commit of the previous one, so updates cascade eagerly.
func Applicable(meta core.OperationMeta) bool {
	if !meta.FromReplication {
		return true
	}
	switch meta.Action {
	case core.ActionPost:
		return meta.Created
	case core.ActionDelete:
		return meta.Commit
	}
	return true
}
