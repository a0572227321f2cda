package query

import (
	"fmt"
	"time"

	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/spf13/cast"
)

// equalValue compares a stored value with a caller-supplied one, coercing
// the expected value to the stored value's type. Filters arrive as JSON,
// so true, "true" and 1 all match a stored boolean true.
func equalValue(actual, expected any) bool {
	if expected == nil {
		return actual == nil
	}
	switch a := actual.(type) {
	case nil:
		return false
	case bool:
		b, err := cast.ToBoolE(expected)
		return err == nil && a == b
	case float64:
		f, err := cast.ToFloat64E(expected)
		return err == nil && a == f
	case time.Time:
		t, err := rowstore.ParseTime(expected)
		return err == nil && a.Equal(t)
	case string:
		s, err := cast.ToStringE(expected)
		return err == nil && a == s
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}

// dimensionValue renders a grouping value; missing or empty becomes
// "unknown".
func dimensionValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "unknown"
	case time.Time:
		if x.IsZero() {
			return "unknown"
		}
		return x.UTC().Format(time.RFC3339)
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return "unknown"
	}
	return s
}
