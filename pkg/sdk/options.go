package postfilter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithHTTPClient sets the HTTP client used for every request.
// Defaults to a client with a 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithEndpoint sets the path of the filter endpoint. Default: /ajax.
func WithEndpoint(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.endpoint = path
	})
}

// WithAPIKey sends the key as a bearer token. Editors skip the facet cache.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (call counts by outcome, durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithDebounce sets how long control changes are collected before a
// submission fires. Default: 700ms.
func WithDebounce(d time.Duration) LoopOption {
	return func(l *Loop) { l.debounce = d }
}

// WithSettle sets how long after an interaction ends (a slider drag, a
// typing burst) the pending change fires. Default: 700ms.
func WithSettle(d time.Duration) LoopOption {
	return func(l *Loop) { l.settle = d }
}

// WithManualSubmit disables automatic submissions. Only Submit and Reset fire.
func WithManualSubmit() LoopOption {
	return func(l *Loop) { l.manual = true }
}

// WithClock replaces the timer source.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithLoopLogger sets the logger for dropped and failed submissions.
func WithLoopLogger(lg *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = lg }
}
