package health

import (
	"context"
	"fmt"
	"runtime"
)

// Sizer reports the number of stored pages. cache.MemoryStore implements it.
type Sizer interface {
	Len() int
}

// FootprintConfig configures a FootprintChecker.
type FootprintConfig struct {
	// MaxHeap is the heap size treated as 100%. Zero uses the memory
	// obtained from the OS.
	MaxHeap uint64

	// Warning and Critical are heap ratios in (0, 1).
	// Defaults: 0.8 and 0.95
	Warning  float64
	Critical float64
}

// FootprintChecker watches the heap of a process that keeps cached pages in
// memory. Pages are stored without expiry, so the heap only shrinks on flush.
type FootprintChecker struct {
	pages Sizer
	cfg   FootprintConfig
}

// NewFootprintChecker returns a checker reporting pages.Len with the heap.
func NewFootprintChecker(pages Sizer, cfg FootprintConfig) *FootprintChecker {
	if cfg.Warning <= 0 || cfg.Warning >= 1 {
		cfg.Warning = 0.8
	}
	if cfg.Critical <= cfg.Warning || cfg.Critical >= 1 {
		cfg.Critical = max(0.95, cfg.Warning)
	}
	return &FootprintChecker{pages: pages, cfg: cfg}
}

func (c *FootprintChecker) Name() string { return "footprint" }

func (c *FootprintChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	limit := c.cfg.MaxHeap
	if limit == 0 {
		limit = stats.Sys
	}
	details := map[string]any{
		"pages":      c.pages.Len(),
		"heap_alloc": stats.HeapAlloc,
		"limit":      limit,
	}
	if limit == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.HeapAlloc) / float64(limit)
	details["usage_percent"] = ratio * 100
	msg := fmt.Sprintf("heap at %.1f%% with %d cached pages", ratio*100, c.pages.Len())

	switch {
	case ratio >= c.cfg.Critical:
		return Unhealthy(msg, ErrCheckFailed).WithDetails(details)
	case ratio >= c.cfg.Warning:
		return Degraded(msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}
