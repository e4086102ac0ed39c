// Package resilience guards calls from the request path to a page store.
//
// Serving from the cache must never be slower or less reliable than
// rendering fresh, so every store call can be wrapped in a Guard:
//
//	g := resilience.Guard{
//	    Breaker:  resilience.NewBreaker(resilience.BreakerConfig{Threshold: 5}),
//	    Backoff:  &resilience.Backoff{Attempts: 2},
//	    Deadline: 250 * time.Millisecond,
//	}
//	err := g.Do(ctx, func(ctx context.Context) error {
//	    return store.SetForever(ctx, key, page)
//	})
//
// The breaker sees one outcome per Do call, after the backoff has given up.
// Each attempt gets its own deadline.
package resilience
