package schema

import (
	"time"

	"github.com/spf13/cast"
)

// Row is one record of any of the six tables, keyed by column name.
// Values are string, float64, bool, time.Time, map[string]any or nil.
type Row map[string]any

// String returns col as a string, or "" when missing or not coercible.
func (r Row) String(col string) string {
	s, _ := cast.ToStringE(r[col])
	return s
}

// Float returns col as a float64, or 0.
func (r Row) Float(col string) float64 {
	f, _ := cast.ToFloat64E(r[col])
	return f
}

// Bool returns col as a bool, or false.
func (r Row) Bool(col string) bool {
	b, _ := cast.ToBoolE(r[col])
	return b
}

// Time returns col as a time. Strings must be RFC 3339; anything else
// gives the zero time.
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// Map returns a JSON column as a map. Missing or non-object values give
// an empty, non-nil map.
func (r Row) Map(col string) map[string]any {
	if m, ok := r[col].(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
