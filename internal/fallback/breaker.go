package fallback

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hectormr206/orchestra/internal/adapter"
)

// BreakerAdapter wraps an adapter.Adapter with a circuit breaker that trips
// open after repeated non-rate-limit failures (timeout/api-error/generic)
// within a rolling window. This complements, but does not replace, the
// chain's rate-limit set: a breaker-open adapter reports IsAvailable()==
// false so the chain treats it the same way it treats an unreachable CLI.
type BreakerAdapter struct {
	inner   adapter.Adapter
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerAdapter wraps inner with a breaker that opens after
// maxFailures consecutive substantive failures and stays open for
// resetTimeout before allowing a single probe request through.
func NewBreakerAdapter(inner adapter.Adapter, maxFailures uint32, resetTimeout time.Duration) *BreakerAdapter {
	info := inner.Info()
	settings := gobreaker.Settings{
		Name:    info.Name,
		Timeout: resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	return &BreakerAdapter{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerAdapter) Info() adapter.AdapterInfo {
	return b.inner.Info()
}

// IsAvailable reports false when the breaker is open, in addition to
// delegating to the wrapped adapter's own probe.
func (b *BreakerAdapter) IsAvailable(ctx context.Context) bool {
	if b.breaker.State() == gobreaker.StateOpen {
		return false
	}
	return b.inner.IsAvailable(ctx)
}

// Execute runs the call through the breaker. Rate-limit and
// context-exceeded results do not count as breaker failures — those are
// handled by the chain's own rate-limit set and compaction retry
// respectively, not by tripping the circuit.
func (b *BreakerAdapter) Execute(ctx context.Context, req adapter.ExecuteRequest) (adapter.ExecuteResult, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		res, execErr := b.inner.Execute(ctx, req)
		if execErr != nil {
			return res, execErr
		}
		if !res.Success && res.ErrorKind != adapter.ErrorRateLimit && res.ErrorKind != adapter.ErrorContextExceeded {
			return res, errSubstantiveFailure
		}
		return res, nil
	})

	res, _ := out.(adapter.ExecuteResult)
	if err != nil && err != errSubstantiveFailure {
		// Breaker-open or other breaker-level error: surface as a generic
		// failure rather than panicking the caller with a nil result.
		return adapter.ExecuteResult{Success: false, ErrorKind: adapter.ErrorGeneric}, err
	}
	return res, err
}

var errSubstantiveFailure = &substantiveFailureError{}

type substantiveFailureError struct{}

func (*substantiveFailureError) Error() string { return "fallback: substantive adapter failure" }
