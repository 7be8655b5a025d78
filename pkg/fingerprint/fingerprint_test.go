package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMap() core.RangeMap {
	return core.RangeMap{
		"a.go": {
			{StartLine: 10, StartCol: 2, EndLine: 14, EndCol: 34, Statements: 2, Hit: 1},
			{StartLine: 30, StartCol: 4, EndLine: 40, EndCol: 5, Statements: 3, Hit: 0},
		},
		"b.go": {
			{StartLine: 5, StartCol: 1, EndLine: 15, EndCol: 2, Statements: 6, Hit: 3},
		},
	}
}

func TestCalculateDeterminism(t *testing.T) {
	m := sampleMap()
	first := Calculate(m)
	second := Calculate(m)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestCalculateSensitivity(t *testing.T) {
	base := Calculate(sampleMap())

	mutations := []struct {
		name   string
		mutate func(core.RangeMap)
	}{
		{"line boundary change", func(m core.RangeMap) { m["a.go"][0].EndLine = 15 }},
		{"column boundary change", func(m core.RangeMap) { m["a.go"][0].StartCol = 3 }},
		{"statement count change", func(m core.RangeMap) { m["b.go"][0].Statements = 7 }},
		{"hit status flips covered", func(m core.RangeMap) { m["a.go"][1].Hit = 1 }},
		{"hit status flips uncovered", func(m core.RangeMap) { m["b.go"][0].Hit = 0 }},
		{"new file", func(m core.RangeMap) {
			m["c.go"] = []core.Range{{StartLine: 1, EndLine: 1, EndCol: 1, Statements: 1, Hit: 1}}
		}},
	}
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMap()
			tt.mutate(m)
			assert.NotEqual(t, base, Calculate(m))
		})
	}
}

func TestCalculateHitCountDriftKeepsDigest(t *testing.T) {
	// counter drift without a polarity change must not force a republish
	m := sampleMap()
	m["b.go"][0].Hit = 99
	assert.Equal(t, Calculate(sampleMap()), Calculate(m))
}

func TestCalculateIgnoresEmptyFiles(t *testing.T) {
	m := sampleMap()
	m["empty.go"] = nil
	assert.Equal(t, Calculate(sampleMap()), Calculate(m))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprint")
	store := NewFileStore(path)

	digest, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, digest)

	require.NoError(t, store.Save("abc123"))
	digest, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", digest)

	// trailing newline is stripped on load
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123\n", string(raw))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save("deadbeef"))
	digest, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", digest)
}
