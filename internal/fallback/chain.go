// Package fallback sequences adapter.Adapter backends in priority order,
// skipping disabled or rate-limited entries and sticking to the last
// successful adapter for subsequent calls within the same chain instance.
package fallback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// Entry is one backend in a Chain's priority list.
type Entry struct {
	Name    string
	Adapter adapter.Adapter
}

// Hooks are the chain's observable events. Nil fields are simply not
// invoked; the kernel assigns these to forward onto the event bus.
type Hooks struct {
	OnAdapterStart    func(model string, index, total int)
	OnAdapterFallback func(fromModel, toModel, reason string)
	OnAdapterSuccess  func(model string, duration time.Duration)
}

// Chain presents an ordered list of adapters as a single adapter.Adapter.
// The rate-limit set is the one piece of state this repository treats as
// truly global: it is shared by every concurrent caller of the same Chain
// instance, guarded by mu, and is never a package-level variable — a new
// session constructs its own Chain (see chainsForRoles in internal/cli).
type Chain struct {
	mu          sync.RWMutex
	entries     []Entry
	cursor      int
	rateLimited map[string]bool

	Hooks Hooks
}

// NewChain builds a Chain over entries in priority order.
func NewChain(entries []Entry) *Chain {
	return &Chain{
		entries:     entries,
		rateLimited: make(map[string]bool),
	}
}

// Result is the outcome of a chain-level Execute call.
type Result struct {
	adapter.ExecuteResult
	Backend string
}

// Execute tries adapters from the current (warm) cursor to the end of the
// list, skipping rate-limited or unavailable entries, returning on the
// first success or the first non-rate-limit failure. Context-exceeded
// failures are returned immediately without rotating the cursor — the
// caller retries with a compacted prompt (internal/compact) rather than
// trying a different backend.
func (c *Chain) Execute(ctx context.Context, req adapter.ExecuteRequest) (Result, error) {
	c.mu.RLock()
	start := c.cursor
	total := len(c.entries)
	c.mu.RUnlock()

	var lastErr error
	var lastResult adapter.ExecuteResult
	var lastBackend string

	for i := start; i < total; i++ {
		entry := c.entries[i]

		if c.isRateLimited(entry.Name) {
			continue
		}

		if c.Hooks.OnAdapterStart != nil {
			c.Hooks.OnAdapterStart(entry.Name, i, total)
		}

		if !entry.Adapter.IsAvailable(ctx) {
			lastErr = fmt.Errorf("fallback: adapter %q unavailable", entry.Name)
			continue
		}

		res, err := entry.Adapter.Execute(ctx, req)
		lastResult, lastErr, lastBackend = res, err, entry.Name

		if err == nil && res.Success {
			c.setCursor(i)
			if c.Hooks.OnAdapterSuccess != nil {
				c.Hooks.OnAdapterSuccess(entry.Name, res.Duration)
			}
			return Result{ExecuteResult: res, Backend: entry.Name}, nil
		}

		if res.ErrorKind == adapter.ErrorContextExceeded {
			return Result{ExecuteResult: res, Backend: entry.Name}, nil
		}

		if res.ErrorKind == adapter.ErrorRateLimit {
			c.markRateLimited(entry.Name)
			if i+1 < total {
				next := c.entries[i+1].Name
				if c.Hooks.OnAdapterFallback != nil {
					c.Hooks.OnAdapterFallback(entry.Name, next, "rate limit")
				}
			}
			continue
		}

		// Any other failure (timeout, api-error, generic, or a transport
		// error with no classified result) is substantive: fallback is
		// reserved for rate limits and unavailability, not for these.
		if err == nil {
			err = fmt.Errorf("fallback: adapter %q failed: %s", entry.Name, res.ErrorKind)
		}
		return Result{ExecuteResult: res, Backend: entry.Name}, err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("fallback: no adapter left to try (all rate-limited or none configured)")
	}
	return Result{ExecuteResult: lastResult, Backend: lastBackend}, fmt.Errorf("fallback: chain exhausted: %w", lastErr)
}

// ResetRateLimits clears the rate-limit set and rewinds the cursor to the
// start of the chain. Never called automatically; policy is the caller's.
func (c *Chain) ResetRateLimits() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimited = make(map[string]bool)
	c.cursor = 0
}

// IsRateLimited reports whether name is currently in the rate-limit set.
func (c *Chain) IsRateLimited(name string) bool {
	return c.isRateLimited(name)
}

func (c *Chain) isRateLimited(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rateLimited[name]
}

func (c *Chain) markRateLimited(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimited[name] = true
}

func (c *Chain) setCursor(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = i
}

// Names returns the adapter names in priority order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}
