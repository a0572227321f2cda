package query_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/query"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/heraerp/hera-analytics/internal/schema"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

// countingStore counts Select calls.
type countingStore struct {
	rowstore.Store
	selects atomic.Int32
}

func (c *countingStore) Select(ctx context.Context, t schema.Table, q rowstore.Query) ([]schema.Row, error) {
	c.selects.Add(1)
	return c.Store.Select(ctx, t, q)
}

func newStore(t *testing.T) *rowstore.SQLite {
	t.Helper()
	s, err := rowstore.Open(filepath.Join(t.TempDir(), "hera.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newService(t *testing.T, limits guardrail.Limits) (*query.Service, *countingStore) {
	t.Helper()
	cs := &countingStore{Store: newStore(t)}
	return query.New(cs, query.Options{
		Limits: limits,
		Now:    func() time.Time { return testNow },
	}), cs
}

func addEntity(t *testing.T, s rowstore.Store, org, typ, name string, fields map[string]schema.Value) string {
	t.Helper()
	ctx := context.Background()
	row, err := s.Insert(ctx, schema.Entities, schema.Row{
		"organization_id": org,
		"entity_type":     typ,
		"entity_name":     name,
		"status":          "active",
	})
	require.NoError(t, err)
	id := row.String("id")
	for name, v := range fields {
		r := v.Columns()
		r["organization_id"] = org
		r["entity_id"] = id
		r["field_name"] = name
		_, err := s.Insert(ctx, schema.DynamicData, r)
		require.NoError(t, err)
	}
	return id
}

func addTransaction(t *testing.T, s rowstore.Store, org, typ, date string, amount float64, meta map[string]any) string {
	t.Helper()
	row, err := s.Insert(context.Background(), schema.Transactions, schema.Row{
		"organization_id":  org,
		"transaction_type": typ,
		"transaction_code": "TXN-" + uuid.NewString(),
		"smart_code":       "HERA.RETAIL.SALE.v1",
		"transaction_date": date,
		"total_amount":     amount,
		"metadata":         meta,
	})
	require.NoError(t, err)
	return row.String("id")
}

func addEdge(t *testing.T, s rowstore.Store, org, from, to, typ string) {
	t.Helper()
	_, err := s.Insert(context.Background(), schema.Relationships, schema.Row{
		"organization_id":   org,
		"from_entity_id":    from,
		"to_entity_id":      to,
		"relationship_type": typ,
	})
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, want guardrail.Code) {
	t.Helper()
	got, ok := guardrail.CodeOf(err)
	require.True(t, ok, "want %s, got %v", want, err)
	require.Equal(t, want, got)
}
