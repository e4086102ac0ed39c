package flatten

import "github.com/jonwraymond/flatten/observe"

type settings struct {
	logger  observe.Logger
	tracer  observe.Tracer
	metrics observe.Metrics
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:  observe.NopLogger(),
		tracer:  observe.NopTracer(),
		metrics: observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a Flattener or a Flusher.
type Option func(*settings)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l observe.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer of cache cycles.
func WithTracer(t observe.Tracer) Option {
	return func(s *settings) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(s *settings) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithObserver takes the logger, tracer and metrics from obs.
func WithObserver(obs observe.Observer) Option {
	return func(s *settings) {
		if obs == nil {
			return
		}
		s.logger = obs.Logger()
		s.tracer = observe.NewTracer(obs.Tracer())
		if m, err := observe.NewMetrics(obs.Meter()); err == nil {
			s.metrics = m
		}
	}
}
