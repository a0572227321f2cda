package smartcode_test

import (
	"testing"

	"github.com/heraerp/hera-analytics/internal/guardrail"
	"github.com/heraerp/hera-analytics/internal/smartcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		raw      string
		segments []string
		version  int
		base     string
		meaning  string
	}{
		{"HERA.X.Y.v3", []string{"X", "Y"}, 3, "HERA.X.Y", "x y"},
		{"HERA.ACCOUNTING.GL.JOURNAL.v1", []string{"ACCOUNTING", "GL", "JOURNAL"}, 1, "HERA.ACCOUNTING.GL.JOURNAL", "accounting gl journal"},
		{"HERA.SALON.SVC.CUT2.v12", []string{"SALON", "SVC", "CUT2"}, 12, "HERA.SALON.SVC.CUT2", "salon svc cut2"},
		{"HERA.CRM.v1", []string{"CRM"}, 1, "HERA.CRM", "crm"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := smartcode.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.segments, c.Segments)
			assert.Equal(t, tt.version, c.Version)
			assert.Equal(t, tt.base, c.Base())
			assert.Equal(t, tt.meaning, c.Meaning())
			assert.Equal(t, tt.raw, c.WithVersion(tt.version))

			v, ok := smartcode.ExtractVersion(tt.raw)
			assert.True(t, ok)
			assert.Equal(t, tt.version, v)
			base, ok := smartcode.BaseCode(tt.raw)
			assert.True(t, ok)
			assert.Equal(t, tt.base, base)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"HERA",
		"HERA.v1",
		"hera.X.Y.v1",
		"HERA.X.Y",
		"HERA.X.Y.v0",
		"HERA.X.Y.v01",
		"HERA.x.Y.v1",
		"HERA.X.Y.V1",
		"HERA..X.v1",
		"HERA.X.Y.v1.",
		"XERA.X.Y.v1",
		"HERA.X-Y.v1",
		" HERA.X.Y.v1",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := smartcode.Parse(raw)
			code, ok := guardrail.CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, guardrail.SmartCodeMalformed, code)

			assert.False(t, smartcode.Valid(raw))
			_, ok = smartcode.ExtractVersion(raw)
			assert.False(t, ok, "no version for malformed code")
			_, ok = smartcode.BaseCode(raw)
			assert.False(t, ok)
			assert.Empty(t, smartcode.MeaningOf(raw))
		})
	}
}

func TestCode_Segments(t *testing.T) {
	c, err := smartcode.Parse("HERA.ACCOUNTING.GL.ADJUSTMENT.v1")
	require.NoError(t, err)
	assert.Equal(t, "ACCOUNTING", c.Industry())
	assert.True(t, c.HasSegment("GL"))
	assert.False(t, c.HasSegment("HERA"))
	assert.False(t, c.HasSegment("gl"))
	assert.Equal(t, "HERA.ACCOUNTING.GL.ADJUSTMENT.v1", c.String())
}
