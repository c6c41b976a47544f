// Package ratelimit provides fixed-budget request limiters keyed by an
// arbitrary string (typically a client IP or account identifier). Two
// implementations are provided: an in-process limiter for single-instance
// deployments and a Redis-backed limiter that shares budgets across replicas.
package ratelimit

import "context"

// Limiter reports whether the caller identified by key may proceed. The
// second return value carries backend failures; callers decide whether a
// failing backend blocks or admits traffic.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
