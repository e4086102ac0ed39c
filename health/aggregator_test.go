package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("store", fixed("store", Healthy("ok")))
	agg.Register("footprint", fixed("footprint", Healthy("ok")))
	agg.Register("store", fixed("store", Degraded("slow")))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "store" || names[1] != "footprint" {
		t.Fatalf("CheckerNames() = %v", names)
	}

	agg.Unregister("store")
	if names := agg.CheckerNames(); len(names) != 1 || names[0] != "footprint" {
		t.Fatalf("CheckerNames() after Unregister = %v", names)
	}
}

func TestAggregator_Check(t *testing.T) {
	agg := NewAggregator()
	agg.Register("store", fixed("store", Degraded("slow")))

	r, err := agg.Check(context.Background(), "store")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", r.Status)
	}

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	agg := NewAggregator()
	agg.Register("a", fixed("a", Healthy("ok")))
	agg.Register("b", fixed("b", Unhealthy("down", ErrCheckFailed)))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if OverallStatus(results) != StatusUnhealthy {
		t.Errorf("OverallStatus() = %v, want unhealthy", OverallStatus(results))
	}
	if results["a"].Duration <= 0 && results["a"].Timestamp.IsZero() {
		t.Error("result not stamped")
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		time.Sleep(200 * time.Millisecond)
		return Healthy("late")
	}))

	r := agg.CheckAll(context.Background())["slow"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want timeout", r)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"healthy", map[string]Result{"a": Healthy("")}, StatusHealthy},
		{"degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := OverallStatus(tt.results); got != tt.want {
			t.Errorf("%s: OverallStatus() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
