package jobs

import "github.com/goliatone/go-authz/cascade"

var _ LinkResolver = (*cascade.Resolver)(nil)
