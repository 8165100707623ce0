package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-authz/core"
)

var (
	_ gocmd.Querier[GetDocumentMessage, core.Document]          = (*GetDocumentQuery)(nil)
	_ gocmd.Querier[ResolveAffectedPrincipalsMessage, []string] = (*ResolveAffectedPrincipalsQuery)(nil)
)
