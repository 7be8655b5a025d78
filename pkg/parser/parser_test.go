package parser

import (
	"testing"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGocProfile(t *testing.T) {
	raw := "mode: count\n" +
		"a.go:10.1,12.5 3 2\n" +
		"a.go:20.1,20.9 1 0\n"

	got, dropped, err := Parse(core.FormatGoc, raw)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, got, 1)
	require.Len(t, got["a.go"], 2)

	assert.Equal(t, core.Range{StartLine: 10, StartCol: 1, EndLine: 12, EndCol: 5, Statements: 3, Hit: 2}, got["a.go"][0])
	assert.Equal(t, core.Range{StartLine: 20, StartCol: 1, EndLine: 20, EndCol: 9, Statements: 1, Hit: 0}, got["a.go"][1])
}

func TestParseSortsRangesPerFile(t *testing.T) {
	raw := "mode: set\n" +
		"pkg/x.go:30.1,40.2 4 1\n" +
		"pkg/x.go:5.1,15.2 6 1\n" +
		"other.go:1.0,2.1 2 0\n"

	got, dropped, err := Parse(core.FormatGoc, raw)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, 5, got["pkg/x.go"][0].StartLine)
	assert.Equal(t, 30, got["pkg/x.go"][1].StartLine)
	assert.Len(t, got["other.go"], 1)
}

func TestParseDialectsShareGrammar(t *testing.T) {
	raw := "mode: count\nsrc/app.py:10.0,15.1 6 1\n"
	for _, format := range []string{core.FormatGoc, core.FormatPyca, core.FormatJacoco} {
		got, dropped, err := Parse(format, raw)
		require.NoError(t, err, format)
		assert.Empty(t, dropped)
		assert.Len(t, got["src/app.py"], 1)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, _, err := Parse("gcov", "mode: set\n")
	assert.ErrorIs(t, err, errs.ErrUnsupportedFormat)
}

func TestParseMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty payload", ""},
		{"missing mode header", "a.go:1.0,2.1 1 1\n"},
		{"unknown mode", "mode: branch\n"},
		{"missing fields", "mode: count\na.go:1.0,2.1 1\n"},
		{"missing path separator", "mode: count\n1.0,2.1 1 1\n"},
		{"malformed span", "mode: count\na.go:1.0 1 1\n"},
		{"bad position", "mode: count\na.go:x.0,2.1 1 1\n"},
		{"bad hit count", "mode: count\na.go:1.0,2.1 1 x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(core.FormatGoc, tt.raw)
			require.Error(t, err)
			assert.True(t, errs.IsParseError(err) || err == errs.ErrUnsupportedFormat, "want ParseError, got %v", err)
		})
	}
}

func TestParseRejectsOnlyViolatingFile(t *testing.T) {
	// b.go's range runs backwards; a.go must survive
	raw := "mode: count\n" +
		"a.go:10.1,12.5 3 2\n" +
		"b.go:9.1,4.5 2 1\n"

	got, dropped, err := Parse(core.FormatGoc, raw)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Contains(t, dropped[0].Error(), "b.go")
	assert.Contains(t, got, "a.go")
	assert.NotContains(t, got, "b.go")
}

func TestParseIgnoresBlankLines(t *testing.T) {
	raw := "\n\nmode: atomic\n\na.go:1.0,2.1 2 1\n\n"
	got, dropped, err := Parse(core.FormatGoc, raw)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Len(t, got["a.go"], 1)
}
