// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpadmit

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Governor is the token-bucket admission limiter of SPEC_FULL.md
// component P: while tokens are available, new connections are
// admitted normally; once exhausted, the Router sheds new admissions
// with a retry hint rather than queueing or blocking, entering the
// transport-level shedding state described in spec.md §3.
type Governor struct {
	limiter    *rate.Limiter
	retryAfter time.Duration
	shedding   atomic.Bool
}

// NewGovernor builds a Governor admitting up to capacity connections as
// a burst, refilling at refillPerSecond tokens per second. retryAfter
// is the hint given to clients rejected while shedding.
func NewGovernor(capacity int, refillPerSecond float64, retryAfter time.Duration) *Governor {
	return &Governor{
		limiter:    rate.NewLimiter(rate.Limit(refillPerSecond), capacity),
		retryAfter: retryAfter,
	}
}

// Allow consumes one token if available. Its return value also updates
// the governor's shedding state, read back via [Governor.Shedding].
func (g *Governor) Allow() bool {
	ok := g.limiter.Allow()
	g.shedding.Store(!ok)
	return ok
}

// Shedding reports whether the most recent Allow call was rejected,
// i.e. whether the transport should be considered in the shedding
// state from spec.md §3.
func (g *Governor) Shedding() bool { return g.shedding.Load() }

// RetryAfter returns the hint to surface on a shed admission.
func (g *Governor) RetryAfter() time.Duration { return g.retryAfter }
