// Package smartcode parses, validates, versions and searches the
// HERA.<SEGMENT>+.v<N> classification codes attached to entities,
// transactions and transaction lines.
//
// Format validity and existence are separate questions. Parse answers the
// first without touching storage; Engine answers the second against one
// organization's rows.
package smartcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/heraerp/hera-analytics/internal/guardrail"
)

// Prefix is the fixed first segment of every smart code.
const Prefix = "HERA"

var pattern = regexp.MustCompile(`^HERA((?:\.[A-Z0-9]+)+)\.v([1-9][0-9]*)$`)

// Code is a parsed smart code.
type Code struct {
	Raw      string
	Segments []string // between HERA and the version
	Version  int
}

// Parse validates raw and splits it into segments and version.
func Parse(raw string) (Code, error) {
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return Code{}, guardrail.New(guardrail.SmartCodeMalformed, "smart code %q is malformed", raw)
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return Code{}, guardrail.Wrap(guardrail.SmartCodeMalformed, err, "smart code %q has an invalid version", raw)
	}
	return Code{
		Raw:      raw,
		Segments: strings.Split(strings.TrimPrefix(m[1], "."), "."),
		Version:  v,
	}, nil
}

// Valid reports whether raw is a well-formed smart code.
func Valid(raw string) bool {
	return pattern.MatchString(raw)
}

// Base is the code without its version suffix, e.g. HERA.ACCOUNTING.GL.
func (c Code) Base() string {
	return Prefix + "." + strings.Join(c.Segments, ".")
}

// Meaning is the segments lower-cased and joined by spaces.
func (c Code) Meaning() string {
	return strings.ToLower(strings.Join(c.Segments, " "))
}

// WithVersion returns the same base at version n.
func (c Code) WithVersion(n int) string {
	return fmt.Sprintf("%s.v%d", c.Base(), n)
}

// Industry is the first segment after HERA.
func (c Code) Industry() string {
	return c.Segments[0]
}

// HasSegment reports whether seg appears among the segments.
func (c Code) HasSegment(seg string) bool {
	for _, s := range c.Segments {
		if s == seg {
			return true
		}
	}
	return false
}

func (c Code) String() string { return c.Raw }

// ExtractVersion returns the trailing version of a valid code.
func ExtractVersion(raw string) (int, bool) {
	c, err := Parse(raw)
	if err != nil {
		return 0, false
	}
	return c.Version, true
}

// BaseCode returns raw with its version stripped.
func BaseCode(raw string) (string, bool) {
	c, err := Parse(raw)
	if err != nil {
		return "", false
	}
	return c.Base(), true
}

// MeaningOf decodes raw, or returns "" when it is malformed.
func MeaningOf(raw string) string {
	c, err := Parse(raw)
	if err != nil {
		return ""
	}
	return c.Meaning()
}
