// Package venue holds the two pieces of process-wide mutable state the
// reference live venue needs: a shared rate limiter and a per-wallet nonce
// counter. Everything else in this codebase is either per-bot state or
// stateless; these two are deliberately the only globals (§9).
package venue

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limits mirror the documented venue limits, throttled down the same way
// the teacher throttles its Polymarket rate limits: sustain at a fraction
// of the published ceiling so a burst from several bots sharing one
// process doesn't trip the venue's own limiter.
const (
	ordersRatePerSec = 20
	ordersBurst      = 10
)

var (
	initOnce     sync.Once
	orderLimiter *rate.Limiter
)

// OrderLimiter returns the process-wide limiter every venue Client request
// waits on (order submission, asset-index lookup, historical candles),
// regardless of how many bots are running. Constructed lazily so a process
// that never makes a venue request (a backtest) never allocates it.
func OrderLimiter() *rate.Limiter {
	initOnce.Do(func() {
		orderLimiter = rate.NewLimiter(rate.Limit(ordersRatePerSec), ordersBurst)
	})
	return orderLimiter
}
