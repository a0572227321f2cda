// Package rowstore is the tenant-scoped table store every operation reads
// and writes through.
//
// A Store only knows the six schema tables. Every Select carries an
// organization id and every row it returns belongs to that organization;
// Insert and Update refuse rows without one. Column names are checked
// against the schema before any statement is built.
package rowstore

import (
	"context"
	"errors"

	"github.com/heraerp/hera-analytics/internal/schema"
)

// ErrNotFound is returned by Update when no row matches id and tenant.
var ErrNotFound = errors.New("rowstore: row not found")

// Op is a filter comparison.
type Op string

const (
	OpEq      Op = "eq"
	OpIn      Op = "in"
	OpGte     Op = "gte"
	OpLt      Op = "lt"
	OpLte     Op = "lte"
	OpNotNull Op = "not_null"
	OpPrefix  Op = "prefix"
)

// Filter is one column predicate.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches rows whose column equals v.
func Eq(column string, v any) Filter { return Filter{Column: column, Op: OpEq, Value: v} }

// In matches rows whose column is one of vs. An empty vs matches nothing.
func In(column string, vs []string) Filter { return Filter{Column: column, Op: OpIn, Value: vs} }

// Gte matches rows whose column is >= v.
func Gte(column string, v any) Filter { return Filter{Column: column, Op: OpGte, Value: v} }

// Lt matches rows whose column is < v.
func Lt(column string, v any) Filter { return Filter{Column: column, Op: OpLt, Value: v} }

// Lte matches rows whose column is <= v.
func Lte(column string, v any) Filter { return Filter{Column: column, Op: OpLte, Value: v} }

// NotNull matches rows whose column has a value.
func NotNull(column string) Filter { return Filter{Column: column, Op: OpNotNull} }

// Prefix matches text columns starting with p.
func Prefix(column, p string) Filter { return Filter{Column: column, Op: OpPrefix, Value: p} }

// Order sorts a Select.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a Select. Filters are AND-ed; AnyOf filters are OR-ed
// together and the group is AND-ed with the rest.
type Query struct {
	OrgID   string
	Columns []string
	Filters []Filter
	AnyOf   []Filter
	OrderBy []Order
	// Limit <= 0 means no limit.
	Limit int
}

// Store is the row store adapter.
type Store interface {
	Select(ctx context.Context, table schema.Table, q Query) ([]schema.Row, error)
	Insert(ctx context.Context, table schema.Table, row schema.Row) (schema.Row, error)
	Update(ctx context.Context, table schema.Table, orgID, id string, patch schema.Row) (schema.Row, error)
}

// Transactor is implemented by stores that can run several writes as one
// atomic unit. fn receives a Store bound to the transaction; returning an
// error rolls everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
