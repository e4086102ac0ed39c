// Package health reports the health of the page cache and its store.
//
// A Checker reports a Status: Healthy, Degraded or Unhealthy. StoreChecker
// pings the configured cache store and reads its circuit breaker;
// FootprintChecker watches the heap when pages are kept in process memory.
// An Aggregator runs checkers concurrently and the HTTP handlers expose the
// results as liveness, readiness and detailed probes:
//
//	agg := health.NewAggregator()
//	agg.Register("store", health.NewStoreChecker(store))
//
//	router := mux.NewRouter()
//	health.RegisterHandlers(router, agg)
package health
