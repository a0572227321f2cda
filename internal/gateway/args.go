package gateway

import (
	"math"
	"strings"
	"time"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/rowstore"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Args decodes a tool's argument bag. Getters coerce JSON values to the
// wanted type; the first value that cannot be coerced is kept and
// reported by Err, so a tool decodes everything and checks once.
type Args struct {
	m   map[string]any
	err *error
}

// NewArgs wraps a raw argument map. A nil map is treated as empty.
func NewArgs(m map[string]any) *Args {
	if m == nil {
		m = map[string]any{}
	}
	var err error
	return &Args{m: m, err: &err}
}

// Err returns the first decoding failure as an InvalidArgument guardrail.
func (a *Args) Err() error { return *a.err }

func (a *Args) fail(format string, args ...any) {
	if *a.err == nil {
		*a.err = guardrail.New(guardrail.InvalidArgument, format, args...)
	}
}

// Has reports whether key is present and not null.
func (a *Args) Has(key string) bool {
	v, ok := a.m[key]
	return ok && v != nil
}

// Raw returns the undecoded value of key.
func (a *Args) Raw(key string) any { return a.m[key] }

// String returns key as a trimmed string, or "".
func (a *Args) String(key string) string {
	if !a.Has(key) {
		return ""
	}
	s, err := cast.ToStringE(a.m[key])
	if err != nil {
		a.fail("%s: expected a string, got %T", key, a.m[key])
		return ""
	}
	return strings.TrimSpace(s)
}

// RequiredString is String that also fails when the value is empty.
func (a *Args) RequiredString(key string) string {
	s := a.String(key)
	if s == "" {
		a.fail("%s is required", key)
	}
	return s
}

// FirstString returns the first non-empty string among keys.
func (a *Args) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := a.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Int returns key as an int, or def when absent. Numbers with a
// fractional part are rejected rather than truncated.
func (a *Args) Int(key string, def int) int {
	if !a.Has(key) {
		return def
	}
	if f, ok := a.m[key].(float64); ok && f != math.Trunc(f) {
		a.fail("%s: expected an integer, got %v", key, f)
		return def
	}
	n, err := cast.ToIntE(a.m[key])
	if err != nil {
		a.fail("%s: expected an integer, got %v", key, a.m[key])
		return def
	}
	return n
}

// Bool returns key as a bool, or def when absent.
func (a *Args) Bool(key string, def bool) bool {
	if !a.Has(key) {
		return def
	}
	b, err := cast.ToBoolE(a.m[key])
	if err != nil {
		a.fail("%s: expected a boolean, got %v", key, a.m[key])
		return def
	}
	return b
}

// Float returns key as a float, or nil when absent.
func (a *Args) Float(key string) *float64 {
	if !a.Has(key) {
		return nil
	}
	f, err := cast.ToFloat64E(a.m[key])
	if err != nil {
		a.fail("%s: expected a number, got %v", key, a.m[key])
		return nil
	}
	return &f
}

// Decimal returns key as an exact decimal, or nil when absent. Numeric
// strings are parsed exactly; JSON numbers go through float64.
func (a *Args) Decimal(key string) *decimal.Decimal {
	if !a.Has(key) {
		return nil
	}
	var (
		d   decimal.Decimal
		err error
	)
	switch v := a.m[key].(type) {
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	default:
		var f float64
		f, err = cast.ToFloat64E(v)
		d = decimal.NewFromFloat(f)
	}
	if err != nil {
		a.fail("%s: expected a number, got %v", key, a.m[key])
		return nil
	}
	return &d
}

// Time returns key as a timestamp, or the zero time when absent.
func (a *Args) Time(key string) time.Time {
	if !a.Has(key) {
		return time.Time{}
	}
	t, err := rowstore.ParseTime(a.String(key))
	if err != nil {
		a.fail("%s: expected an RFC 3339 timestamp or YYYY-MM-DD date, got %v", key, a.m[key])
		return time.Time{}
	}
	return t
}

// IsDate reports whether key holds a bare YYYY-MM-DD date.
func (a *Args) IsDate(key string) bool {
	s, ok := a.m[key].(string)
	if !ok {
		return false
	}
	_, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	return err == nil
}

// Map returns key as an object, or nil when absent.
func (a *Args) Map(key string) map[string]any {
	if !a.Has(key) {
		return nil
	}
	m, err := cast.ToStringMapE(a.m[key])
	if err != nil {
		a.fail("%s: expected an object, got %T", key, a.m[key])
		return nil
	}
	return m
}

// Sub returns the object at key as Args sharing this bag's error.
func (a *Args) Sub(key string) *Args {
	return &Args{m: a.Map(key), err: a.err}
}

// Strings returns key as a list of strings. A single string is split on
// commas.
func (a *Args) Strings(key string) []string {
	if !a.Has(key) {
		return nil
	}
	if s, ok := a.m[key].(string); ok {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	ss, err := cast.ToStringSliceE(a.m[key])
	if err != nil {
		a.fail("%s: expected a list of strings, got %T", key, a.m[key])
		return nil
	}
	return ss
}

// Objects returns key as a list of objects, each wrapped as Args sharing
// this bag's error.
func (a *Args) Objects(key string) []*Args {
	if !a.Has(key) {
		return nil
	}
	items, err := cast.ToSliceE(a.m[key])
	if err != nil {
		a.fail("%s: expected a list of objects, got %T", key, a.m[key])
		return nil
	}
	out := make([]*Args, 0, len(items))
	for i, it := range items {
		m, err := cast.ToStringMapE(it)
		if err != nil {
			a.fail("%s[%d]: expected an object, got %T", key, i, it)
			return nil
		}
		out = append(out, &Args{m: m, err: a.err})
	}
	return out
}
