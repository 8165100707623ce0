package command

import (
	"context"

	"github.com/goliatone/go-authz/core"
)

// MutatingService is the write surface of the authorization host.
type MutatingService interface {
	ApplyWrite(ctx context.Context, req core.WriteRequest) error
	InvalidatePrincipal(ctx context.Context, principal string) error
}

type ApplyWriteCommand struct {
	service MutatingService
}

func NewApplyWriteCommand(service MutatingService) *ApplyWriteCommand {
	return &ApplyWriteCommand{service: service}
}

func (c *ApplyWriteCommand) Execute(ctx context.Context, msg ApplyWriteMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: write service is required")
	}
	return c.service.ApplyWrite(ctx, msg.Request)
}

type InvalidatePrincipalCommand struct {
	service MutatingService
}

func NewInvalidatePrincipalCommand(service MutatingService) *InvalidatePrincipalCommand {
	return &InvalidatePrincipalCommand{service: service}
}

func (c *InvalidatePrincipalCommand) Execute(ctx context.Context, msg InvalidatePrincipalMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: invalidation service is required")
	}
	return c.service.InvalidatePrincipal(ctx, msg.Principal)
}
