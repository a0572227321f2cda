package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables(t *testing.T) {
	got := Tables()
	require.Len(t, got, 6)
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1], got[i], "tables are sorted")
	}
	for _, tbl := range got {
		assert.True(t, IsTable(string(tbl)))
		assert.True(t, HasColumn(tbl, "organization_id"), "%s is tenant scoped", tbl)
		assert.True(t, HasColumn(tbl, "id"))
	}
	assert.False(t, IsTable("customers"))
}

func TestColumns_ReturnsCopy(t *testing.T) {
	cols := Columns(Entities)
	require.NotEmpty(t, cols)
	cols[0].Name = "mutated"
	assert.Equal(t, "id", Columns(Entities)[0].Name)
	assert.Nil(t, Columns("nope"))
}

func TestColumnOf(t *testing.T) {
	c, ok := ColumnOf(Transactions, "total_amount")
	require.True(t, ok)
	assert.Equal(t, KindNumber, c.Kind)

	_, ok = ColumnOf(Transactions, "vip")
	assert.False(t, ok)
	assert.False(t, HasColumn(Entities, "credit_limit"))
}

func TestInferValue(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		raw  any
		kind ValueKind
		want Value
	}{
		{"bare string stays text", "2024-01-02T00:00:00Z", "", Text("2024-01-02T00:00:00Z")},
		{"bare bool", true, "", Bool(true)},
		{"bare float", 12.5, "", Number(12.5)},
		{"bare int", 3, "", Number(3)},
		{"explicit date", "2024-01-02T00:00:00Z", ValueDate, Date(day)},
		{"explicit number from int64", int64(7), ValueNumber, Number(7)},
		{"explicit text", "gold", ValueText, Text("gold")},
		{"explicit boolean", false, ValueBoolean, Bool(false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InferValue(tt.raw, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferValue_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		kind ValueKind
	}{
		{"number as text", 1.0, ValueText},
		{"text as number", "12", ValueNumber},
		{"bad date", "yesterday", ValueDate},
		{"unknown kind", "x", "money"},
		{"object", map[string]any{"a": 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InferValue(tt.raw, tt.kind)
			assert.Error(t, err)
		})
	}
}

func TestValue_Columns(t *testing.T) {
	row := Number(42).Columns()
	assert.Equal(t, "number", row["field_type"])
	assert.Equal(t, 42.0, row["field_value_number"])
	assert.Nil(t, row["field_value_text"])
	assert.Nil(t, row["field_value_boolean"])
	assert.Nil(t, row["field_value_date"])

	row = Date(time.Date(2024, 1, 2, 5, 0, 0, 0, time.FixedZone("X", 3600))).Columns()
	assert.Equal(t, time.UTC, row["field_value_date"].(time.Time).Location())
}

func TestValue_JSON(t *testing.T) {
	b, err := json.Marshal(Date(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-01-02T00:00:00Z"`, string(b))

	b, err = json.Marshal(Value{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
	assert.True(t, Value{}.IsZero())
}

func TestDynamicFieldFromRow(t *testing.T) {
	stored := Bool(true).Columns()
	stored["field_name"] = "vip"
	f := DynamicFieldFromRow(stored)
	assert.Equal(t, "vip", f.FieldName)
	assert.Equal(t, Bool(true), f.Value)

	// Legacy rows carry no field_type.
	f = DynamicFieldFromRow(Row{"field_value_text": "gold"})
	assert.Equal(t, Text("gold"), f.Value)
	assert.True(t, DynamicFieldFromRow(Row{}).Value.IsZero())
}

func TestRow_Accessors(t *testing.T) {
	r := Row{
		"s":    "abc",
		"n":    "12.5",
		"b":    int64(1),
		"t":    "2025-08-04T10:00:00.5Z",
		"bad":  "not a time",
		"meta": map[string]any{"channel": "web"},
	}
	assert.Equal(t, "abc", r.String("s"))
	assert.Equal(t, "", r.String("missing"))
	assert.Equal(t, 12.5, r.Float("n"))
	assert.True(t, r.Bool("b"))
	assert.Equal(t, 500*time.Millisecond, time.Duration(r.Time("t").Nanosecond()))
	assert.True(t, r.Time("bad").IsZero())
	assert.Equal(t, "web", r.Map("meta")["channel"])
	assert.NotNil(t, r.Map("missing"))

	c := r.Clone()
	c["s"] = "changed"
	assert.Equal(t, "abc", r.String("s"))
}

func TestTransactionLineFromRow(t *testing.T) {
	l := TransactionLineFromRow(Row{
		"line_number": 2.0,
		"line_amount": 99.99,
		"line_type":   "credit",
	})
	assert.Equal(t, 2, l.LineNumber)
	assert.Equal(t, 99.99, l.LineAmount)
	assert.Equal(t, "credit", l.LineType)
	assert.NotNil(t, l.Metadata)
}
