package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/shopspring/decimal"
)

// Metric names accepted by grouped transaction queries.
const (
	MetricCount = "count"
	MetricSum   = "sum"
	MetricAvg   = "avg"
)

// TimeDimension groups by the truncated transaction_date.
const TimeDimension = "time"

// TransactionQuery selects transactions of one organization.
type TransactionQuery struct {
	OrgID           string
	TransactionType string
	SmartCode       string
	// Start and End bound transaction_date, both inclusive unless
	// EndExclusive is set. A zero End is now; a zero Start is End minus
	// the default window.
	Start        time.Time
	End          time.Time
	EndExclusive bool
	Grain string
	// Filters on transaction columns run in the store; any other key is
	// matched against metadata after the fetch.
	Filters map[string]any
	GroupBy []string
	Metrics []string
	Limit   int
}

// TransactionWithLines is one raw result row.
type TransactionWithLines struct {
	schema.Transaction
	Lines []schema.TransactionLine `json:"lines"`
}

// Group is one aggregation bucket. Only requested metrics are set.
type Group struct {
	Key        string            `json:"key"`
	Dimensions map[string]string `json:"dimensions"`
	Count      *int              `json:"count,omitempty"`
	Sum        *float64          `json:"sum,omitempty"`
	Avg        *float64          `json:"avg,omitempty"`
}

// TransactionResult is the answer to a TransactionQuery. Exactly one of
// Transactions and Groups is set.
type TransactionResult struct {
	Transactions []TransactionWithLines `json:"transactions,omitempty"`
	Groups       []Group                `json:"groups,omitempty"`
	Count        int                    `json:"count"`
	Truncated    bool                   `json:"truncated"`
	Warning      *string                `json:"warning"`
	Start        time.Time              `json:"start"`
	End          time.Time              `json:"end"`
	Grain        string                 `json:"grain,omitempty"`
}

// Transactions lists or aggregates transactions inside a time window.
//
// Without GroupBy at most RawTransactionRows transactions come back, with
// their lines and a truncation warning when more matched. With GroupBy a
// grain is mandatory and every group is returned.
func (s *Service) Transactions(ctx context.Context, q TransactionQuery) (*TransactionResult, error) {
	if err := guardrail.RequireOrg(q.OrgID); err != nil {
		return nil, err
	}
	grouped := len(q.GroupBy) > 0
	if grouped || q.Grain != "" {
		if err := guardrail.RequireGrain(q.Grain); err != nil {
			return nil, err
		}
	}
	metrics, err := normalizeMetrics(q.Metrics)
	if err != nil {
		return nil, err
	}
	limit := guardrail.ClampLimit(q.Limit, s.limits.TransactionDefault, s.limits.TransactionMax)

	end := q.End
	if end.IsZero() {
		end = s.now()
	}
	start := q.Start
	if start.IsZero() {
		start = end.Add(-s.window)
	}
	if start.After(end) {
		return nil, guardrail.New(guardrail.InvalidArgument,
			"time.start %s is after time.end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	upper := rowstore.Lte("transaction_date", end)
	if q.EndExclusive && !q.End.IsZero() {
		upper = rowstore.Lt("transaction_date", end)
	}
	filters := []rowstore.Filter{
		rowstore.Gte("transaction_date", start),
		upper,
	}
	if q.TransactionType != "" {
		filters = append(filters, rowstore.Eq("transaction_type", q.TransactionType))
	}
	if q.SmartCode != "" {
		filters = append(filters, rowstore.Eq("smart_code", q.SmartCode))
	}
	meta := map[string]any{}
	for k, v := range q.Filters {
		if schema.HasColumn(schema.Transactions, k) && k != "metadata" {
			filters = append(filters, rowstore.Eq(k, v))
			continue
		}
		meta[k] = v
	}

	rows, err := s.store.Select(ctx, schema.Transactions, rowstore.Query{
		OrgID:   q.OrgID,
		Filters: filters,
		OrderBy: []rowstore.Order{{Column: "transaction_date", Desc: true}, {Column: "id"}},
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	if len(meta) > 0 {
		kept := rows[:0]
		for _, r := range rows {
			if matchAll(r.Map("metadata"), meta) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	res := &TransactionResult{Start: start.UTC(), End: end.UTC(), Grain: q.Grain}
	if grouped {
		groups, err := aggregate(rows, q.GroupBy, q.Grain, metrics)
		if err != nil {
			return nil, err
		}
		res.Groups = groups
		res.Count = len(groups)
		return res, nil
	}

	if n := s.limits.RawTransactionRows; len(rows) > n {
		w := fmt.Sprintf("showing the first %d of %d matching transactions; add group_by with time.grain to aggregate, or narrow the filters", n, len(rows))
		res.Warning = &w
		res.Truncated = true
		rows = rows[:n]
	}
	txns, err := s.withLines(ctx, q.OrgID, rows)
	if err != nil {
		return nil, err
	}
	res.Transactions = txns
	res.Count = len(txns)
	return res, nil
}

func normalizeMetrics(in []string) ([]string, error) {
	if len(in) == 0 {
		return []string{MetricCount, MetricSum}, nil
	}
	out := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.ToLower(strings.TrimSpace(m))
		switch m {
		case MetricCount, MetricSum, MetricAvg:
			out = append(out, m)
		default:
			return nil, guardrail.New(guardrail.InvalidArgument,
				"unknown metric %q (want count, sum or avg)", m)
		}
	}
	return out, nil
}

func (s *Service) withLines(ctx context.Context, orgID string, rows []schema.Row) ([]TransactionWithLines, error) {
	out := make([]TransactionWithLines, len(rows))
	pos := make(map[string]int, len(rows))
	ids := make([]string, len(rows))
	for i, r := range rows {
		out[i] = TransactionWithLines{Transaction: schema.TransactionFromRow(r), Lines: []schema.TransactionLine{}}
		ids[i] = out[i].ID
		pos[out[i].ID] = i
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := s.store.Select(ctx, schema.TransactionLines, rowstore.Query{
		OrgID:   orgID,
		Filters: []rowstore.Filter{rowstore.In("transaction_id", ids)},
		OrderBy: []rowstore.Order{{Column: "transaction_id"}, {Column: "line_number"}},
	})
	if err != nil {
		return nil, fmt.Errorf("query transaction lines: %w", err)
	}
	for _, r := range lines {
		l := schema.TransactionLineFromRow(r)
		if i, ok := pos[l.TransactionID]; ok {
			out[i].Lines = append(out[i].Lines, l)
		}
	}
	return out, nil
}

type accumulator struct {
	dims  map[string]string
	count int
	sum   decimal.Decimal
}

// aggregate buckets rows by the group-by dimensions. The time dimension
// is transaction_date truncated to grain; other dimensions read a column,
// then a metadata key, then fall back to "unknown".
func aggregate(rows []schema.Row, groupBy []string, grain string, metrics []string) ([]Group, error) {
	acc := map[string]*accumulator{}
	for _, r := range rows {
		dims := make(map[string]string, len(groupBy))
		parts := make([]string, len(groupBy))
		for i, dim := range groupBy {
			var v string
			switch {
			case dim == TimeDimension:
				b, err := Truncate(r.Time("transaction_date"), grain)
				if err != nil {
					return nil, err
				}
				v = dimensionValue(b)
			case schema.HasColumn(schema.Transactions, dim):
				v = dimensionValue(r[dim])
			default:
				v = dimensionValue(r.Map("metadata")[dim])
			}
			dims[dim] = v
			parts[i] = v
		}
		key := strings.Join(parts, "|")
		a := acc[key]
		if a == nil {
			a = &accumulator{dims: dims}
			acc[key] = a
		}
		a.count++
		a.sum = a.sum.Add(decimal.NewFromFloat(r.Float("total_amount")))
	}

	groups := make([]Group, 0, len(acc))
	for key, a := range acc {
		g := Group{Key: key, Dimensions: a.dims}
		for _, m := range metrics {
			switch m {
			case MetricCount:
				n := a.count
				g.Count = &n
			case MetricSum:
				f := a.sum.InexactFloat64()
				g.Sum = &f
			case MetricAvg:
				f := a.sum.Div(decimal.NewFromInt(int64(a.count))).Round(6).InexactFloat64()
				g.Avg = &f
			}
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups, nil
}
