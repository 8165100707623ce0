package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-authz/core"
)

const (
	TypeGetDocument               = "authz.query.document.get"
	TypeResolveAffectedPrincipals = "authz.query.principals.resolve"
)

type GetDocumentMessage struct {
	SelfLink string
}

func (GetDocumentMessage) Type() string { return TypeGetDocument }

func (m GetDocumentMessage) Validate() error {
	if strings.TrimSpace(m.SelfLink) == "" {
		return fmt.Errorf("query: self link is required")
	}
	return nil
}

type ResolveAffectedPrincipalsMessage struct {
	Kind     string
	SelfLink string
}

func (ResolveAffectedPrincipalsMessage) Type() string { return TypeResolveAffectedPrincipals }

func (m ResolveAffectedPrincipalsMessage) Validate() error {
	switch m.Kind {
	case core.KindUser, core.KindUserGroup, core.KindRole, core.KindResourceGroup:
	default:
		return fmt.Errorf("query: kind %q is not a policy document kind", m.Kind)
	}
	if strings.TrimSpace(m.SelfLink) == "" {
		return fmt.Errorf("query: self link is required")
	}
	return nil
}
