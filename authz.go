// Package authz coordinates cascading invalidation of a per-principal
// authorization cache inside a document-service host. Writes to policy
// entities (users, user groups, roles, resource groups) trigger a
// traversal of the policy graph that evicts every principal whose
// cached authorization context the mutated entity could have shaped.
package authz

import (
	"fmt"

	authzcommand "github.com/goliatone/go-authz/command"
	"github.com/goliatone/go-authz/core"
	authzquery "github.com/goliatone/go-authz/query"
)

type Config = core.Config

type CacheConfig = core.CacheConfig

type QueryConfig = core.QueryConfig

type Document = core.Document

type OperationMeta = core.OperationMeta

type WriteRequest = core.WriteRequest

type UserState = core.UserState
type UserGroupState = core.UserGroupState
type RoleState = core.RoleState
type ResourceGroupState = core.ResourceGroupState

type Query = core.Query
type QueryTerm = core.QueryTerm
type QueryTask = core.QueryTask
type QueryResult = core.QueryResult

type DocumentStore = core.DocumentStore
type QueryExecutor = core.QueryExecutor
type ContextInvalidator = core.ContextInvalidator

// CommandQueryService is the surface the command and query packages
// need from a host.
type CommandQueryService interface {
	authzcommand.MutatingService
	authzquery.DocumentReader
	authzquery.PrincipalResolver
}

type Commands struct {
	ApplyWrite          *authzcommand.ApplyWriteCommand
	InvalidatePrincipal *authzcommand.InvalidatePrincipalCommand
}

type Queries struct {
	GetDocument               *authzquery.GetDocumentQuery
	ResolveAffectedPrincipals *authzquery.ResolveAffectedPrincipalsQuery
}

// Facade bundles the command and query handlers for registration with
// a message dispatcher.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("authz: command/query service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			ApplyWrite:          authzcommand.NewApplyWriteCommand(service),
			InvalidatePrincipal: authzcommand.NewInvalidatePrincipalCommand(service),
		},
		queries: Queries{
			GetDocument:               authzquery.NewGetDocumentQuery(service),
			ResolveAffectedPrincipals: authzquery.NewResolveAffectedPrincipalsQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Host)(nil)
