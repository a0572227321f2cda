// Package query implements the read side: entity lookup with dynamic
// field projection, transaction listing and aggregation, and bounded
// relationship traversal.
//
// Every read is scoped to one organization and clamped by the configured
// guardrail.Limits before the store is touched.
package query

import (
	"time"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
)

// Options configures a Service.
type Options struct {
	Limits guardrail.Limits
	// DefaultWindow is how far back a transaction query reaches when no
	// start is given.
	DefaultWindow time.Duration
	Now           func() time.Time
}

// DefaultOptions returns the standard limits and a trailing 30 day window.
func DefaultOptions() Options {
	return Options{
		Limits:        guardrail.DefaultLimits(),
		DefaultWindow: 30 * 24 * time.Hour,
		Now:           time.Now,
	}
}

// Service runs read operations against a row store. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	store  rowstore.Store
	limits guardrail.Limits
	window time.Duration
	now    func() time.Time
}

// New creates a Service. Zero option fields fall back to DefaultOptions.
func New(store rowstore.Store, opts Options) *Service {
	def := DefaultOptions()
	if opts.Limits == (guardrail.Limits{}) {
		opts.Limits = def.Limits
	}
	if opts.DefaultWindow <= 0 {
		opts.DefaultWindow = def.DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Service{
		store:  store,
		limits: opts.Limits,
		window: opts.DefaultWindow,
		now:    opts.Now,
	}
}
