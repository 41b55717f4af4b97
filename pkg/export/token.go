// Package export runs document export jobs through a bounded worker pool,
// with cooperative cancellation and per-item result sinking.
package export

import "sync/atomic"

// Token is the cooperative cancellation flag shared by every job of one
// executor run. Jobs must check Poisoned before doing observable work and
// no-op once it reports true. The flag is monotonic: once poisoned it stays
// poisoned for the lifetime of the run.
type Token struct {
	poisoned atomic.Bool
}

// NewToken returns a fresh, unpoisoned token. The executor creates one per
// run; never share a token across runs.
func NewToken() *Token {
	return &Token{}
}

// Poison marks the run as cancelled. Idempotent.
func (t *Token) Poison() {
	t.poisoned.Store(true)
}

// Poisoned reports whether the run was cancelled.
func (t *Token) Poisoned() bool {
	return t.poisoned.Load()
}
