// Package command implements the write side: posting transactions with
// their lines, and the entity lifecycle (create, typed dynamic fields,
// soft status changes, relationships).
//
// Every write validates its smart code and tenant before the store is
// touched. When the store implements rowstore.Transactor, multi-row
// writes run in one database transaction.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/smartcode"
	"github.com/shopspring/decimal"
)

// DefaultLineSmartCode is given to lines posted without a smart code.
const DefaultLineSmartCode = "HERA.ACCOUNTING.GL.LINE.v1"

// Options configures a Service.
type Options struct {
	// Tolerance is the largest debit/credit difference accepted on GL
	// transactions. Nil means guardrail.DefaultTolerance; zero demands an
	// exact balance.
	Tolerance *decimal.Decimal
	// StrictSmartCodes requires a smart code to already be in use by the
	// organization unless the caller marks the write as its first instance.
	StrictSmartCodes bool
	// NodeID seeds the transaction code generator; it must be unique per
	// running instance sharing a database.
	NodeID int64
	Now    func() time.Time
}

// DefaultOptions returns the default tolerance, lenient smart codes and
// node 1.
func DefaultOptions() Options {
	return Options{
		NodeID: 1,
		Now:    time.Now,
	}
}

// Service runs write operations against a row store.
type Service struct {
	store     rowstore.Store
	codes     *smartcode.Engine
	ids       *snowflake.Node
	tolerance decimal.Decimal
	strict    bool
	now       func() time.Time
}

// New creates a Service. It fails when opts.NodeID is out of the
// snowflake node range or opts.Tolerance is negative.
func New(store rowstore.Store, codes *smartcode.Engine, opts Options) (*Service, error) {
	node, err := snowflake.NewNode(opts.NodeID)
	if err != nil {
		return nil, fmt.Errorf("command: transaction code generator: %w", err)
	}
	tolerance := guardrail.DefaultTolerance
	if opts.Tolerance != nil {
		if opts.Tolerance.IsNegative() {
			return nil, fmt.Errorf("command: negative tolerance %s", opts.Tolerance)
		}
		tolerance = *opts.Tolerance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:     store,
		codes:     codes,
		ids:       node,
		tolerance: tolerance,
		strict:    opts.StrictSmartCodes,
		now:       opts.Now,
	}, nil
}

// atomically runs fn in one transaction when the store supports it, and
// directly against the store otherwise. The bool reports which happened.
func (s *Service) atomically(ctx context.Context, fn func(rowstore.Store) error) (bool, error) {
	if tx, ok := s.store.(rowstore.Transactor); ok {
		return true, tx.InTx(ctx, fn)
	}
	return false, fn(s.store)
}
