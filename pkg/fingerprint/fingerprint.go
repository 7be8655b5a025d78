// Package fingerprint computes the digest an agent uses to detect "coverage
// unchanged since last flush" before publishing. The digest is a local gate
// only, never part of the report identity.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/coverhub/coverhub/pkg/core"
)

// Calculate renders the range map canonically and hashes it. File paths are
// sorted lexicographically; each file's (already sorted) ranges render their
// boundaries, statement count and hit polarity, so any change to any of
// those changes the digest, while reordering of an already-canonical map
// does not. Hit polarity rather than the raw count keeps pure counter drift
// on otherwise identical coverage from forcing a republish.
func Calculate(rangeMap core.RangeMap) string {
	paths := make([]string, 0, len(rangeMap))
	for path := range rangeMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		rs := rangeMap[path]
		if len(rs) == 0 {
			continue
		}
		spans := make([]string, 0, len(rs))
		for _, r := range rs {
			covered := 0
			if r.Covered() {
				covered = 1
			}
			spans = append(spans, fmt.Sprintf("%d.%d-%d.%d/%d/%d",
				r.StartLine, r.StartCol, r.EndLine, r.EndCol, r.Statements, covered))
		}
		parts = append(parts, fmt.Sprintf("%s:%s", path, strings.Join(spans, ",")))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}
