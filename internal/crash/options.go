package crash

import (
	"io"

	"github.com/charmbracelet/log"
)

const (
	// DefaultMaxIterations bounds the number of steps one run may apply.
	DefaultMaxIterations = 10000

	// DefaultStepUnit is the largest reduction applied in one step.
	DefaultStepUnit = 1.0
)

// Options configures an optimisation run.
type Options struct {
	MaxIterations int         // steps allowed before giving up
	StepUnit      float64     // largest single reduction
	Logger        *log.Logger // receives a debug trace of every step
}

// Option is a functional option for ToTarget and Steps.
type Option func(*Options)

// WithMaxIterations caps the steps a run may apply. Values below 1 keep the
// default.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxIterations = n
		}
	}
}

// WithStepUnit sets the largest single reduction. Non-positive or non-finite
// values keep the default.
func WithStepUnit(unit float64) Option {
	return func(o *Options) {
		if unit > 0 && unit < maxFinite {
			o.StepUnit = unit
		}
	}
}

// WithLogger traces the loop through l at debug level.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		MaxIterations: DefaultMaxIterations,
		StepUnit:      DefaultStepUnit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return o
}
