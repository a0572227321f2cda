package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind tags the variant held by a Value.
type ValueKind string

const (
	ValueText    ValueKind = "text"
	ValueNumber  ValueKind = "number"
	ValueBoolean ValueKind = "boolean"
	ValueDate    ValueKind = "date"
)

// Value is a typed dynamic field value. Exactly one variant is set and
// the kind decides which storage column it lands in.
type Value struct {
	kind    ValueKind
	text    string
	number  float64
	boolean bool
	date    time.Time
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: ValueText, text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: ValueNumber, number: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: ValueBoolean, boolean: b} }

// Date returns a date value normalized to UTC.
func Date(t time.Time) Value { return Value{kind: ValueDate, date: t.UTC()} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether v holds no variant.
func (v Value) IsZero() bool { return v.kind == "" }

// MarshalJSON encodes the held variant; dates use RFC 3339.
func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.Any()) }

// Any returns the held variant as a plain Go value.
func (v Value) Any() any {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueNumber:
		return v.number
	case ValueBoolean:
		return v.boolean
	case ValueDate:
		return v.date
	}
	return nil
}

// Columns returns the storage columns for v: field_type plus the one
// populated field_value_* column. The other value columns are nil.
func (v Value) Columns() Row {
	row := Row{
		"field_type":          string(v.kind),
		"field_value_text":    nil,
		"field_value_number":  nil,
		"field_value_boolean": nil,
		"field_value_date":    nil,
	}
	switch v.kind {
	case ValueText:
		row["field_value_text"] = v.text
	case ValueNumber:
		row["field_value_number"] = v.number
	case ValueBoolean:
		row["field_value_boolean"] = v.boolean
	case ValueDate:
		row["field_value_date"] = v.date
	}
	return row
}

// InferValue builds a Value of the requested kind from a decoded JSON
// value. With an empty kind the variant follows the Go type and strings
// stay text; dates must be asked for explicitly.
func InferValue(raw any, kind ValueKind) (Value, error) {
	switch kind {
	case ValueText:
		if s, ok := raw.(string); ok {
			return Text(s), nil
		}
	case ValueNumber:
		switch n := raw.(type) {
		case float64:
			return Number(n), nil
		case int:
			return Number(float64(n)), nil
		case int64:
			return Number(float64(n)), nil
		}
	case ValueBoolean:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
	case ValueDate:
		switch d := raw.(type) {
		case time.Time:
			return Date(d), nil
		case string:
			t, err := time.Parse(time.RFC3339, d)
			if err != nil {
				return Value{}, fmt.Errorf("date value %q: %w", d, err)
			}
			return Date(t), nil
		}
	case "":
		switch x := raw.(type) {
		case string:
			return Text(x), nil
		case bool:
			return Bool(x), nil
		case float64:
			return Number(x), nil
		case int:
			return Number(float64(x)), nil
		case int64:
			return Number(float64(x)), nil
		case time.Time:
			return Date(x), nil
		}
	default:
		return Value{}, fmt.Errorf("unknown value kind %q", kind)
	}
	return Value{}, fmt.Errorf("value %v (%T) does not fit kind %q", raw, raw, kind)
}

// valueFromRow reads the variant named by field_type back out of a row.
func valueFromRow(r Row) Value {
	switch ValueKind(r.String("field_type")) {
	case ValueText:
		return Text(r.String("field_value_text"))
	case ValueNumber:
		return Number(r.Float("field_value_number"))
	case ValueBoolean:
		return Bool(r.Bool("field_value_boolean"))
	case ValueDate:
		return Date(r.Time("field_value_date"))
	}
	// Rows written without field_type: take the first populated column.
	switch {
	case r["field_value_text"] != nil:
		return Text(r.String("field_value_text"))
	case r["field_value_number"] != nil:
		return Number(r.Float("field_value_number"))
	case r["field_value_boolean"] != nil:
		return Bool(r.Bool("field_value_boolean"))
	case r["field_value_date"] != nil:
		return Date(r.Time("field_value_date"))
	}
	return Value{}
}
