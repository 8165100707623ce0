package authz

import "github.com/goliatone/go-authz/jobs"

var _ RetryScheduler = (*jobs.InvalidationRetryScheduler)(nil)
