package venue

import (
	"sync"
	"sync/atomic"
	"time"
)

// NonceCounters hands out strictly increasing nonces per wallet address.
// The venue rejects an order action whose nonce does not exceed the
// last one it saw for that signer, so every LiveExecutionHandler signing
// for the same wallet must draw from the same counter — hence this is
// process-wide keyed by address rather than per-handler state.
type NonceCounters struct {
	mu       sync.Mutex
	counters map[string]*atomic.Int64
}

var (
	globalNonces = &NonceCounters{counters: make(map[string]*atomic.Int64)}
)

// Counters returns the process-wide nonce registry.
func Counters() *NonceCounters { return globalNonces }

// Next returns the next nonce for address, seeding the counter from the
// current Unix millisecond timestamp the first time an address is seen so
// nonces stay monotonic across process restarts for the same wallet.
func (c *NonceCounters) Next(address string) int64 {
	c.mu.Lock()
	counter, ok := c.counters[address]
	if !ok {
		counter = &atomic.Int64{}
		counter.Store(time.Now().UnixMilli())
		c.counters[address] = counter
	}
	c.mu.Unlock()

	return counter.Add(1)
}
