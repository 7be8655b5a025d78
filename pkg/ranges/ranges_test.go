package ranges

import (
	"testing"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	tests := []struct {
		name  string
		lines []int
		want  []core.Range
	}{
		{
			name:  "empty set",
			lines: nil,
			want:  nil,
		},
		{
			name:  "single line",
			lines: []int{7},
			want: []core.Range{
				{StartLine: 7, StartCol: 0, EndLine: 7, EndCol: 1, Statements: 1, Hit: 1},
			},
		},
		{
			name:  "contiguous block merges",
			lines: []int{10, 11, 12},
			want: []core.Range{
				{StartLine: 10, StartCol: 0, EndLine: 12, EndCol: 1, Statements: 3, Hit: 1},
			},
		},
		{
			name:  "gap splits ranges",
			lines: []int{1, 2, 4, 5, 9},
			want: []core.Range{
				{StartLine: 1, StartCol: 0, EndLine: 2, EndCol: 1, Statements: 2, Hit: 1},
				{StartLine: 4, StartCol: 0, EndLine: 5, EndCol: 1, Statements: 2, Hit: 1},
				{StartLine: 9, StartCol: 0, EndLine: 9, EndCol: 1, Statements: 1, Hit: 1},
			},
		},
		{
			name:  "unordered input with duplicates",
			lines: []int{5, 3, 4, 5, 3},
			want: []core.Range{
				{StartLine: 3, StartCol: 0, EndLine: 5, EndCol: 1, Statements: 3, Hit: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compress(tt.lines, LineStatements)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandCompressFixedPoint(t *testing.T) {
	lineSets := [][]int{
		{1},
		{1, 2, 3},
		{2, 4, 6, 8},
		{100, 101, 105, 106, 107, 300},
		{9, 8, 7, 1, 2},
	}
	for _, lines := range lineSets {
		compressed := Compress(lines, LineStatements)
		expanded := Expand(compressed)
		// expand(compress(L)) == sorted unique L
		assert.ElementsMatch(t, dedupe(lines), expanded)
		// compress(expand(compress(L))) == compress(L)
		assert.Equal(t, compressed, Compress(expanded, LineStatements))
	}
}

func dedupe(lines []int) []int {
	seen := map[int]struct{}{}
	out := []int{}
	for _, l := range lines {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

func TestValidate(t *testing.T) {
	valid := []core.Range{
		{StartLine: 1, StartCol: 0, EndLine: 3, EndCol: 1, Statements: 3, Hit: 0},
		{StartLine: 4, StartCol: 0, EndLine: 4, EndCol: 1, Statements: 1, Hit: 2},
	}
	require.NoError(t, Validate("a.go", valid))

	tests := []struct {
		name string
		rs   []core.Range
	}{
		{"endLine before startLine", []core.Range{{StartLine: 5, EndLine: 4, EndCol: 1, Statements: 1}}},
		{"empty column span", []core.Range{{StartLine: 5, StartCol: 3, EndLine: 5, EndCol: 3, Statements: 1}}},
		{"zero statements", []core.Range{{StartLine: 5, EndLine: 6, EndCol: 1, Statements: 0}}},
		{"negative hit", []core.Range{{StartLine: 5, EndLine: 6, EndCol: 1, Statements: 1, Hit: -1}}},
		{"overlapping ranges", []core.Range{
			{StartLine: 1, StartCol: 0, EndLine: 5, EndCol: 1, Statements: 5},
			{StartLine: 3, StartCol: 0, EndLine: 7, EndCol: 1, Statements: 5},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("a.go", tt.rs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "a.go")
		})
	}
}

func TestFindCovering(t *testing.T) {
	rs := []core.Range{
		{StartLine: 10, StartCol: 1, EndLine: 12, EndCol: 5, Statements: 3, Hit: 2},
		{StartLine: 20, StartCol: 1, EndLine: 20, EndCol: 9, Statements: 1, Hit: 0},
		{StartLine: 30, StartCol: 1, EndLine: 40, EndCol: 2, Statements: 8, Hit: 1},
	}

	r, ok := FindCovering(rs, 11)
	require.True(t, ok)
	assert.Equal(t, 10, r.StartLine)

	r, ok = FindCovering(rs, 20)
	require.True(t, ok)
	assert.Equal(t, 0, r.Hit)

	r, ok = FindCovering(rs, 40)
	require.True(t, ok)
	assert.Equal(t, 30, r.StartLine)

	_, ok = FindCovering(rs, 15)
	assert.False(t, ok)
	_, ok = FindCovering(rs, 1)
	assert.False(t, ok)
	_, ok = FindCovering(rs, 41)
	assert.False(t, ok)
}

func TestRenderProfile(t *testing.T) {
	raw := RenderProfile(core.ModeSet, map[string][]int{
		"b.py": {3, 4},
		"a.py": {10},
	})
	want := "mode: set\n" +
		"a.py:10.0,10.1 1 1\n" +
		"b.py:3.0,4.1 2 1\n"
	assert.Equal(t, want, raw)
}
