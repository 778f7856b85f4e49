package avatarnft

import (
	"time"

	"github.com/vitwit/avatarnft/logger"
	"github.com/vitwit/avatarnft/metrics"
	"github.com/vitwit/avatarnft/pricing"
	"github.com/vitwit/avatarnft/store"
)

type Option func(*Engine)

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithTimeout bounds the part of a mint that runs before funds move.
func WithTimeout(t time.Duration) Option {
	return func(e *Engine) {
		e.timeout = t
	}
}

// WithStore persists engine state. Without it nothing survives a restart.
func WithStore(s store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithStepper replaces the fee step function applied at each threshold.
func WithStepper(s pricing.Stepper) Option {
	return func(e *Engine) {
		e.stepper = s
	}
}
