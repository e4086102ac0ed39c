package health

import (
	"context"
	"net/http"
	"time"
)

// Status orders component health from best to worst, so a larger value is a
// worse state.
type Status int

const (
	StatusHealthy   Status = iota // serving from cache
	StatusDegraded                // serving fresh renders only
	StatusUnhealthy               // not fit for traffic
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Worse returns the worse of s and o.
func (s Status) Worse(o Status) Status { return max(s, o) }

// HTTPStatus is the probe code for s. A degraded page cache still answers
// every request, so only unhealthy maps to 503.
func (s Status) HTTPStatus() int {
	if s >= StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Result is what one check observed.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func newResult(s Status, msg string, err error) Result {
	return Result{Status: s, Message: msg, Error: err, Timestamp: time.Now()}
}

func Healthy(msg string) Result                      { return newResult(StatusHealthy, msg, nil) }
func Degraded(msg string) Result                     { return newResult(StatusDegraded, msg, nil) }
func Unhealthy(msg string, err error) Result         { return newResult(StatusUnhealthy, msg, err) }
func (r Result) WithDetails(d map[string]any) Result { r.Details = d; return r }

// Checker probes one component: the store, the process footprint.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc is a named function used as a Checker.
type CheckerFunc struct {
	name  string
	check func(context.Context) Result
}

func NewCheckerFunc(name string, check func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, check: check}
}

func (f *CheckerFunc) Name() string                     { return f.name }
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.check(ctx) }
