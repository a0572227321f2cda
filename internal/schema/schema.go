// Package schema describes the six physical tables every tenant shares.
//
// The set of tables and their columns is fixed. Nothing in this module
// creates tables or columns at runtime; the store adapter only migrates
// this exact layout at bootstrap, and every table or column name that
// reaches the store is checked against it first.
package schema

import "sort"

// Table names one of the six physical tables.
type Table string

const (
	Organizations    Table = "core_organizations"
	Entities         Table = "core_entities"
	DynamicData      Table = "core_dynamic_data"
	Relationships    Table = "core_relationships"
	Transactions     Table = "universal_transactions"
	TransactionLines Table = "universal_transaction_lines"
)

// ColumnKind is the storage kind of a column.
type ColumnKind string

const (
	KindText    ColumnKind = "text"
	KindNumber  ColumnKind = "number"
	KindBoolean ColumnKind = "boolean"
	KindTime    ColumnKind = "time"
	KindJSON    ColumnKind = "json"
)

// Column describes a single column of a table.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

var tables = map[Table][]Column{
	Organizations: {
		{"id", KindText},
		{"organization_id", KindText},
		{"organization_name", KindText},
		{"organization_code", KindText},
		{"status", KindText},
		{"metadata", KindJSON},
		{"created_at", KindTime},
		{"updated_at", KindTime},
	},
	Entities: {
		{"id", KindText},
		{"organization_id", KindText},
		{"entity_type", KindText},
		{"entity_name", KindText},
		{"entity_code", KindText},
		{"smart_code", KindText},
		{"status", KindText},
		{"metadata", KindJSON},
		{"created_at", KindTime},
		{"updated_at", KindTime},
	},
	DynamicData: {
		{"id", KindText},
		{"organization_id", KindText},
		{"entity_id", KindText},
		{"field_name", KindText},
		{"field_type", KindText},
		{"field_value_text", KindText},
		{"field_value_number", KindNumber},
		{"field_value_boolean", KindBoolean},
		{"field_value_date", KindTime},
		{"smart_code", KindText},
		{"created_at", KindTime},
		{"updated_at", KindTime},
	},
	Relationships: {
		{"id", KindText},
		{"organization_id", KindText},
		{"from_entity_id", KindText},
		{"to_entity_id", KindText},
		{"relationship_type", KindText},
		{"relationship_strength", KindNumber},
		{"smart_code", KindText},
		{"metadata", KindJSON},
		{"created_at", KindTime},
		{"updated_at", KindTime},
	},
	Transactions: {
		{"id", KindText},
		{"organization_id", KindText},
		{"transaction_type", KindText},
		{"transaction_code", KindText},
		{"smart_code", KindText},
		{"transaction_date", KindTime},
		{"source_entity_id", KindText},
		{"target_entity_id", KindText},
		{"total_amount", KindNumber},
		{"transaction_status", KindText},
		{"metadata", KindJSON},
		{"created_at", KindTime},
		{"updated_at", KindTime},
	},
	TransactionLines: {
		{"id", KindText},
		{"organization_id", KindText},
		{"transaction_id", KindText},
		{"line_number", KindNumber},
		{"entity_id", KindText},
		{"line_type", KindText},
		{"description", KindText},
		{"quantity", KindNumber},
		{"unit_price", KindNumber},
		{"line_amount", KindNumber},
		{"smart_code", KindText},
		{"metadata", KindJSON},
		{"created_at", KindTime},
		{"updated_at", KindTime},
	},
}

// Tables returns the six table names in a stable order.
func Tables() []Table {
	out := make([]Table, 0, len(tables))
	for t := range tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTable reports whether name is one of the six tables.
func IsTable(name string) bool {
	_, ok := tables[Table(name)]
	return ok
}

// Columns returns the column set of t, or nil if t is unknown.
func Columns(t Table) []Column {
	cols := tables[t]
	if cols == nil {
		return nil
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return out
}

// ColumnOf returns the column named name in t.
func ColumnOf(t Table, name string) (Column, bool) {
	for _, c := range tables[t] {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether t has a column named name.
func HasColumn(t Table, name string) bool {
	_, ok := ColumnOf(t, name)
	return ok
}
