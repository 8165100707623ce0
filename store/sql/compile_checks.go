package sqlstore

import "github.com/goliatone/go-authz/core"

var (
	_ core.DocumentStore = (*DocumentStore)(nil)
	_ core.QueryExecutor = (*DocumentStore)(nil)
	_ core.StateFetcher  = (*DocumentStore)(nil)
)
