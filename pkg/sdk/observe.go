package postfilter

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes. A compile that constrains nothing is "empty".
const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

// clientMetrics counts and times the calls a Client makes.
type clientMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	m := &clientMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postfilter",
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "Nonce, compile, clear and listing calls by outcome (ok, empty, error).",
		}, []string{"call", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "postfilter",
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "Round trip of a call to the filter endpoint or the listing read path.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"call"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.latency); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the collector already
// registered under the same name, so several clients can share a registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("postfilter: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("postfilter: metric registered with another type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and measures client calls. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newClientMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// observe records one finished call. empty marks a compile answered with "0".
func (o *observer) observe(call string, start time.Time, empty bool, err error) {
	if o == nil {
		return
	}
	took := time.Since(start)

	outcome := outcomeOK
	switch {
	case err != nil:
		outcome = outcomeError
	case empty:
		outcome = outcomeEmpty
	}

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(call, outcome).Inc()
		o.metrics.latency.WithLabelValues(call).Observe(took.Seconds())
	}

	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("postfilter call failed", "call", call, "took", took, "error", err)
		return
	}
	o.logger.Debug("postfilter call done", "call", call, "outcome", outcome, "took", took)
}
