package query

import (
	"time"

	"github.com/heraerp/hera-analytics/internal/guardrail"
)

// Truncate returns the start of the grain-sized bucket containing t, in
// UTC. Weeks start on Sunday; quarters start in January, April, July and
// October.
func Truncate(t time.Time, grain string) (time.Time, error) {
	t = t.UTC()
	y, m, d := t.Date()
	switch grain {
	case "hour":
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, time.UTC), nil
	case "day":
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case "week":
		return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, time.UTC), nil
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), nil
	case "quarter":
		q := (int(m)-1)/3*3 + 1
		return time.Date(y, time.Month(q), 1, 0, 0, 0, 0, time.UTC), nil
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, guardrail.RequireGrain(grain)
}
