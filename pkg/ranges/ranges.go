// Package ranges implements the canonical range model operations: compressing
// executed line sets into contiguous ranges, expanding them back, validating
// range invariants and looking up the range enclosing a line.
package ranges

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
)

// StatementCounter returns the statement count for a line span. When
// statement granularity equals line granularity this is end-start+1;
// column-aware producers pass through pre-computed spans unchanged.
type StatementCounter func(startLine, endLine int) int

// LineStatements is the trivial line-granularity statement counter.
func LineStatements(startLine, endLine int) int {
	return endLine - startLine + 1
}

// Compress converts an unordered set of executed line numbers into the
// minimal ordered list of contiguous ranges. Two lines a and a+1 merge into
// one range iff both are present; a non-contiguous line becomes a one-line
// range. Compressing the re-expansion of any range list is a fixed point.
func Compress(lines []int, stmts StatementCounter) []core.Range {
	if len(lines) == 0 {
		return nil
	}
	if stmts == nil {
		stmts = LineStatements
	}

	sorted := make([]int, len(lines))
	copy(sorted, lines)
	sort.Ints(sorted)

	out := make([]core.Range, 0)
	start, end := sorted[0], sorted[0]
	for _, line := range sorted[1:] {
		if line == end || line == end+1 {
			if line == end+1 {
				end = line
			}
			continue
		}
		out = append(out, newLineRange(start, end, stmts))
		start, end = line, line
	}
	out = append(out, newLineRange(start, end, stmts))
	return out
}

// Line-granularity ranges use the column span [0,1) so that one-line ranges
// still satisfy startCol < endCol.
func newLineRange(start, end int, stmts StatementCounter) core.Range {
	return core.Range{
		StartLine:  start,
		StartCol:   0,
		EndLine:    end,
		EndCol:     1,
		Statements: stmts(start, end),
		Hit:        1,
	}
}

// Expand returns the sorted set of line numbers spanned by the given ranges.
func Expand(rs []core.Range) []int {
	seen := make(map[int]struct{})
	for _, r := range rs {
		for line := r.StartLine; line <= r.EndLine; line++ {
			seen[line] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for line := range seen {
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}

// Sort orders ranges by (StartLine, StartCol), the ordering the diff engine's
// merge step depends on.
func Sort(rs []core.Range) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].StartLine != rs[j].StartLine {
			return rs[i].StartLine < rs[j].StartLine
		}
		return rs[i].StartCol < rs[j].StartCol
	})
}

// Validate checks the range invariants for one file's sorted ranges and
// returns an InvariantViolation naming the file on the first breach.
func Validate(file string, rs []core.Range) error {
	for i, r := range rs {
		switch {
		case r.StartLine > r.EndLine:
			return &errs.InvariantViolation{File: file, Reason: fmt.Sprintf("endLine %d before startLine %d", r.EndLine, r.StartLine)}
		case r.StartLine == r.EndLine && r.StartCol >= r.EndCol:
			return &errs.InvariantViolation{File: file, Reason: fmt.Sprintf("empty column span %d.%d,%d.%d", r.StartLine, r.StartCol, r.EndLine, r.EndCol)}
		case r.Statements < 1:
			return &errs.InvariantViolation{File: file, Reason: fmt.Sprintf("statements %d below 1", r.Statements)}
		case r.Hit < 0:
			return &errs.InvariantViolation{File: file, Reason: fmt.Sprintf("negative hit count %d", r.Hit)}
		}
		if i > 0 && overlaps(rs[i-1], r) {
			return &errs.InvariantViolation{File: file, Reason: fmt.Sprintf("range at %d.%d overlaps previous", r.StartLine, r.StartCol)}
		}
	}
	return nil
}

func overlaps(prev, next core.Range) bool {
	if next.StartLine > prev.EndLine {
		return false
	}
	if next.StartLine < prev.EndLine {
		return true
	}
	// same boundary line: spans are disjoint only if the columns are
	return next.StartCol < prev.EndCol
}

// FindCovering binary-searches sorted ranges for the one enclosing the given
// line. O(log R) per lookup.
func FindCovering(rs []core.Range, line int) (core.Range, bool) {
	// first range starting after the line
	idx := sort.Search(len(rs), func(i int) bool {
		return rs[i].StartLine > line
	})
	// walk back over ranges sharing the candidate start line
	for i := idx - 1; i >= 0; i-- {
		if rs[i].EndLine < line {
			break
		}
		if rs[i].ContainsLine(line) {
			return rs[i], true
		}
	}
	return core.Range{}, false
}

// RenderProfile renders executed line sets as the canonical raw text
// sub-format: a mode header followed by one range per line.
func RenderProfile(mode string, lineHits map[string][]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\n", mode)

	paths := make([]string, 0, len(lineHits))
	for path := range lineHits {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		for _, r := range Compress(lineHits[path], LineStatements) {
			fmt.Fprintf(&b, "%s:%d.%d,%d.%d %d %d\n",
				path, r.StartLine, r.StartCol, r.EndLine, r.EndCol, r.Statements, r.Hit)
		}
	}
	return b.String()
}
