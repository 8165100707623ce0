package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-authz/core"
)

const (
	TypeApplyWrite          = "authz.command.write.apply"
	TypeInvalidatePrincipal = "authz.command.principal.invalidate"
)

type ApplyWriteMessage struct {
	Request core.WriteRequest
}

func (ApplyWriteMessage) Type() string { return TypeApplyWrite }

func (m ApplyWriteMessage) Validate() error {
	if err := m.Request.Validate(); err != nil {
		return commandWrapValidation(err, "command: apply write validation failed")
	}
	return nil
}

type InvalidatePrincipalMessage struct {
	Principal string
}

func (InvalidatePrincipalMessage) Type() string { return TypeInvalidatePrincipal }

func (m InvalidatePrincipalMessage) Validate() error {
	if strings.TrimSpace(m.Principal) == "" {
		return fmt.Errorf("command: principal is required")
	}
	return nil
}
