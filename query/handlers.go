package query

import (
	"context"

	"github.com/goliatone/go-authz/core"
)

type DocumentReader interface {
	GetDocument(ctx context.Context, selfLink string) (core.Document, error)
}

// PrincipalResolver answers "which principals would this entity's
// mutation invalidate", without evicting anything.
type PrincipalResolver interface {
	ResolveAffectedPrincipals(ctx context.Context, kind string, selfLink string) ([]string, error)
}

type GetDocumentQuery struct {
	reader DocumentReader
}

func NewGetDocumentQuery(reader DocumentReader) *GetDocumentQuery {
	return &GetDocumentQuery{reader: reader}
}

func (q *GetDocumentQuery) Query(ctx context.Context, msg GetDocumentMessage) (core.Document, error) {
	if q == nil || q.reader == nil {
		return core.Document{}, queryDependencyError("query: document reader is required")
	}
	return q.reader.GetDocument(ctx, msg.SelfLink)
}

type ResolveAffectedPrincipalsQuery struct {
	resolver PrincipalResolver
}

func NewResolveAffectedPrincipalsQuery(resolver PrincipalResolver) *ResolveAffectedPrincipalsQuery {
	return &ResolveAffectedPrincipalsQuery{resolver: resolver}
}

func (q *ResolveAffectedPrincipalsQuery) Query(ctx context.Context, msg ResolveAffectedPrincipalsMessage) ([]string, error) {
	if q == nil || q.resolver == nil {
		return nil, queryDependencyError("query: principal resolver is required")
	}
	return q.resolver.ResolveAffectedPrincipals(ctx, msg.Kind, msg.SelfLink)
}
