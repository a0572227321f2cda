package guardrail

import (
	"fmt"
	"strings"

	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/shopspring/decimal"
)

// MaxRelationshipDepth bounds relationship fan-out.
const MaxRelationshipDepth = 2

// DefaultTolerance is the largest debit/credit difference still treated
// as balanced: one cent of rounding on each side.
var DefaultTolerance = decimal.RequireFromString("0.02")

// Limits are the result-size ceilings applied to every read.
type Limits struct {
	EntityDefault      int `yaml:"entity_default" json:"entity_default" validate:"gt=0,ltefield=EntityMax"`
	EntityMax          int `yaml:"entity_max" json:"entity_max" validate:"gt=0"`
	TransactionDefault int `yaml:"transaction_default" json:"transaction_default" validate:"gt=0,ltefield=TransactionMax"`
	TransactionMax     int `yaml:"transaction_max" json:"transaction_max" validate:"gt=0"`
	RawTransactionRows int `yaml:"raw_transaction_rows" json:"raw_transaction_rows" validate:"gt=0"`
	RelationshipLevel1 int `yaml:"relationship_level1" json:"relationship_level1" validate:"gt=0"`
	RelationshipLevel2 int `yaml:"relationship_level2" json:"relationship_level2" validate:"gt=0"`
	SearchResults      int `yaml:"search_results" json:"search_results" validate:"gt=0"`
}

// DefaultLimits returns the standard ceilings.
func DefaultLimits() Limits {
	return Limits{
		EntityDefault:      50,
		EntityMax:          1000,
		TransactionDefault: 100,
		TransactionMax:     1000,
		RawTransactionRows: 50,
		RelationshipLevel1: 100,
		RelationshipLevel2: 50,
		SearchResults:      10,
	}
}

// RequireOrg fails when no organization id was supplied.
func RequireOrg(orgID string) error {
	if strings.TrimSpace(orgID) == "" {
		return New(TenantScopeMissing, "organization_id is required")
	}
	return nil
}

// CheckTable fails for any table outside the six.
func CheckTable(name string) error {
	if !schema.IsTable(name) {
		return New(SchemaViolation, "table %q is not part of the schema", name)
	}
	return nil
}

// CheckColumn fails for any column not declared on t.
func CheckColumn(t schema.Table, column string) error {
	if err := CheckTable(string(t)); err != nil {
		return err
	}
	if !schema.HasColumn(t, column) {
		return New(SchemaViolation, "column %q does not exist on %s", column, t)
	}
	return nil
}

// ClampLimit applies the default when requested is not positive and the
// ceiling when it exceeds max.
func ClampLimit(requested, def, max int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > max {
		return max
	}
	return requested
}

// CheckDepth fails for relationship traversal beyond two hops.
func CheckDepth(depth int) error {
	if depth > MaxRelationshipDepth {
		return New(RelationshipDepthExceeded,
			"depth %d exceeds the maximum of %d", depth, MaxRelationshipDepth)
	}
	return nil
}

// Grains lists the accepted aggregation granularities.
var Grains = []string{"hour", "day", "week", "month", "quarter", "year"}

// RequireGrain fails when a grouped query has no usable time grain.
func RequireGrain(grain string) error {
	if grain == "" {
		return New(AggregationGrainMissing, "group_by requires time.grain")
	}
	for _, g := range Grains {
		if g == grain {
			return nil
		}
	}
	return New(InvalidArgument, "unknown time grain %q (want one of %s)", grain, strings.Join(Grains, ", "))
}

// Side is the debit/credit marker of a ledger line.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// ParseSide normalizes the usual spellings of debit and credit. Anything
// else returns "".
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit", "dr", "d":
		return Debit
	case "credit", "cr", "c":
		return Credit
	}
	return ""
}

// LedgerLine is the part of a transaction line the balance check reads.
type LedgerLine struct {
	Side   Side
	Amount decimal.Decimal
}

// Balance is the outcome of summing ledger lines.
type Balance struct {
	Debits  decimal.Decimal `json:"debits"`
	Credits decimal.Decimal `json:"credits"`
}

// Difference is debits minus credits.
func (b Balance) Difference() decimal.Decimal {
	return b.Debits.Sub(b.Credits)
}

// CheckBalance sums debit and credit lines and fails when they differ by
// more than tolerance. Lines without a side do not count toward either sum.
func CheckBalance(lines []LedgerLine, tolerance decimal.Decimal) (Balance, error) {
	var b Balance
	for _, l := range lines {
		switch l.Side {
		case Debit:
			b.Debits = b.Debits.Add(l.Amount)
		case Credit:
			b.Credits = b.Credits.Add(l.Amount)
		}
	}
	if b.Difference().Abs().GreaterThan(tolerance) {
		e := New(LedgerImbalance,
			"debits %s do not equal credits %s (difference %s)",
			b.Debits.StringFixed(2), b.Credits.StringFixed(2), b.Difference().StringFixed(2))
		e.Correction = BalanceCorrection(tolerance)
		return b, e
	}
	return b, nil
}

// BalanceCorrection is the LedgerImbalance correction naming the
// tolerance in force.
func BalanceCorrection(tolerance decimal.Decimal) string {
	return fmt.Sprintf("Balance the entry: the sum of debit lines must equal the sum of credit lines (tolerance %s). Add or adjust a line and post again.", tolerance.String())
}

var glTransactionTypes = map[string]bool{
	"journal_entry": true,
	"gl_journal":    true,
	"gl":            true,
}

// IsGL reports whether a transaction carries general-ledger semantics:
// its smart code has a GL segment, or its type is a journal type.
func IsGL(smartCode, transactionType string) bool {
	parts := strings.Split(smartCode, ".")
	for i, p := range parts {
		if i == 0 || i == len(parts)-1 {
			continue
		}
		if p == "GL" {
			return true
		}
	}
	return glTransactionTypes[strings.ToLower(transactionType)]
}
