package gateway

import (
	"context"

	"github.com/heraerp/hera-analytics/internal/command"
	"github.com/heraerp/hera-analytics/internal/query"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── query_transactions ─────────────────────────────────────────────────

// QueryTransactionsTool handles query_transactions.
type QueryTransactionsTool struct {
	reads *query.Service
}

// NewQueryTransactionsTool creates a QueryTransactionsTool.
func NewQueryTransactionsTool(reads *query.Service) *QueryTransactionsTool {
	return &QueryTransactionsTool{reads: reads}
}

// Definition returns the MCP tool definition for query_transactions.
func (t *QueryTransactionsTool) Definition() mcp.Tool {
	return mcp.NewTool("query_transactions",
		mcp.WithDescription(
			"List or aggregate transactions in a time window (default: the last 30 days). "+
				"Without group_by at most 50 transactions come back with their lines. "+
				"With group_by, time.grain is required and metrics are computed per group.",
		),
		orgParam(),
		mcp.WithString("transaction_type", mcp.Description("Transaction type, e.g. sale")),
		mcp.WithString("smart_code", mcp.Description("Exact smart code to match")),
		mcp.WithObject("time",
			mcp.Description("{\"start\": \"2025-08-01\", \"end\": \"2025-08-31\", \"grain\": \"week\"}; a bare end date includes that whole day; grain is hour, day, week, month, quarter or year"),
		),
		mcp.WithObject("filters",
			mcp.Description("Equality filters on transaction columns or metadata keys"),
		),
		mcp.WithArray("group_by",
			mcp.Description("Dimensions: time, a transaction column or a metadata key"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("metrics",
			mcp.Description("count, sum and/or avg of total_amount (default count and sum)"),
			mcp.Items(map[string]any{"type": "string", "enum": []string{"count", "sum", "avg"}}),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum transactions scanned (default 100, max 1000)")),
	)
}

// Run queries transactions.
func (t *QueryTransactionsTool) Run(ctx context.Context, a *Args) (any, error) {
	window := a.Sub("time")
	q := query.TransactionQuery{
		OrgID:           a.String(OrgArg),
		TransactionType: a.String("transaction_type"),
		SmartCode:       a.String("smart_code"),
		Start:           window.Time("start"),
		End:             window.Time("end"),
		Grain:           window.String("grain"),
		Filters:         a.Map("filters"),
		GroupBy:         a.Strings("group_by"),
		Metrics:         a.Strings("metrics"),
		Limit:           a.Int("limit", 0),
	}
	// A bare end date covers that whole day.
	if !q.End.IsZero() && window.IsDate("end") {
		q.End = q.End.AddDate(0, 0, 1)
		q.EndExclusive = true
	}
	if q.Grain == "" {
		q.Grain = a.String("grain")
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	return t.reads.Transactions(ctx, q)
}

// ─── post_transaction ───────────────────────────────────────────────────

// PostTransactionTool handles post_transaction.
type PostTransactionTool struct {
	writes *command.Service
}

// NewPostTransactionTool creates a PostTransactionTool.
func NewPostTransactionTool(writes *command.Service) *PostTransactionTool {
	return &PostTransactionTool{writes: writes}
}

// Definition returns the MCP tool definition for post_transaction.
func (t *PostTransactionTool) Definition() mcp.Tool {
	return mcp.NewTool("post_transaction",
		mcp.WithDescription(
			"Post a transaction header with its lines. The total is the sum of the line amounts. "+
				"Accounting (GL) transactions must balance: debit lines equal credit lines within the ledger tolerance (hera://guardrails). "+
				"Every line needs an amount.",
		),
		orgParam(),
		mcp.WithString("transaction_code",
			mcp.Required(),
			mcp.Description("Smart code of the transaction, e.g. HERA.ACCOUNTING.GL.JOURNAL.v1"),
		),
		mcp.WithArray("lines",
			mcp.Required(),
			mcp.Description("Lines: {type or side: debit|credit, amount, entity_id, description, quantity, unit_price, smart_code, metadata}"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithObject("header",
			mcp.Description("{transaction_type, transaction_date, source_entity_id, target_entity_id, metadata}"),
		),
		mcp.WithBoolean("first_instance",
			mcp.Description("Set when introducing a smart code the organization has never used"),
		),
	)
}

// Run posts the transaction.
func (t *PostTransactionTool) Run(ctx context.Context, a *Args) (any, error) {
	in := command.PostInput{
		OrgID:         a.String(OrgArg),
		SmartCode:     a.FirstString("transaction_code", "smart_code"),
		FirstInstance: a.Bool("first_instance", false),
	}
	if in.SmartCode == "" {
		a.RequiredString("transaction_code")
	}
	h := a.Sub("header")
	in.Header = command.Header{
		TransactionType: h.String("transaction_type"),
		TransactionDate: h.Time("transaction_date"),
		SourceEntityID:  h.String("source_entity_id"),
		TargetEntityID:  h.String("target_entity_id"),
		Metadata:        h.Map("metadata"),
	}
	for i, l := range a.Objects("lines") {
		in.Lines = append(in.Lines, lineInput(i, l))
	}
	if err := a.Err(); err != nil {
		return nil, err
	}
	return t.writes.PostTransaction(ctx, in)
}

func lineInput(i int, l *Args) command.LineInput {
	amount := l.Decimal("amount")
	if amount == nil {
		amount = l.Decimal("line_amount")
	}
	if amount == nil {
		l.fail("lines[%d]: amount is required", i)
	}
	in := command.LineInput{
		LineNumber:  l.Int("line_number", 0),
		EntityID:    l.String("entity_id"),
		LineType:    l.FirstString("type", "line_type"),
		Side:        l.String("side"),
		Description: l.String("description"),
		Quantity:    l.Decimal("quantity"),
		UnitPrice:   l.Decimal("unit_price"),
		SmartCode:   l.String("smart_code"),
		Metadata:    l.Map("metadata"),
	}
	if amount != nil {
		in.Amount = *amount
	}
	return in
}
