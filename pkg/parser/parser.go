// Package parser normalizes the raw coverage text of every agent dialect into
// the shared range map. One format tag selects one pure parsing function; the
// three dialects all share the same grammar, the design's central
// normalization point.
package parser

import (
	"strconv"
	"strings"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/ranges"
)

// Parse dispatches on the envelope's format tag. It returns the normalized
// range map plus the per-file invariant violations that caused a file's
// ranges to be rejected (the rest of the report is kept). A malformed
// payload fails with a ParseError and is never retried.
func Parse(format, raw string) (core.RangeMap, []error, error) {
	switch format {
	case core.FormatGoc:
		return parseProfile(core.FormatGoc, raw)
	case core.FormatPyca:
		// pyca emits line-granularity spans in the same grammar
		return parseProfile(core.FormatPyca, raw)
	case core.FormatJacoco:
		// the jacoco adapter pre-normalizes into the same grammar
		return parseProfile(core.FormatJacoco, raw)
	default:
		return nil, nil, errs.ErrUnsupportedFormat
	}
}

// parseProfile parses the wire sub-format: first line "mode: <mode>", then
// zero or more lines "path:startLine.startCol,endLine.endCol statements hit".
func parseProfile(format, raw string) (core.RangeMap, []error, error) {
	lines := strings.Split(raw, "\n")

	idx := 0
	for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
		idx++
	}
	if idx == len(lines) {
		return nil, nil, errs.ParseErrorf(format, "empty payload")
	}
	if err := checkMode(format, strings.TrimSpace(lines[idx])); err != nil {
		return nil, nil, err
	}

	out := make(core.RangeMap)
	for n, line := range lines[idx+1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		path, r, err := parseEntry(format, line, idx+n+2)
		if err != nil {
			return nil, nil, err
		}
		out[path] = append(out[path], r)
	}

	// canonicalize and enforce invariants per file; a violating file loses
	// its ranges, the remaining files survive
	var dropped []error
	for path, rs := range out {
		ranges.Sort(rs)
		if err := ranges.Validate(path, rs); err != nil {
			dropped = append(dropped, err)
			delete(out, path)
			continue
		}
		out[path] = rs
	}
	return out, dropped, nil
}

func checkMode(format, header string) error {
	mode, ok := strings.CutPrefix(header, "mode:")
	if !ok {
		return errs.ParseErrorf(format, "missing mode header, got %q", header)
	}
	switch strings.TrimSpace(mode) {
	case core.ModeCount, core.ModeSet, core.ModeAtomic:
		return nil
	default:
		return errs.ParseErrorf(format, "unknown mode %q", strings.TrimSpace(mode))
	}
}

func parseEntry(format, line string, lineNo int) (string, core.Range, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", core.Range{}, errs.ParseErrorf(format, "line %d: expected 3 fields, got %d", lineNo, len(fields))
	}

	colon := strings.LastIndex(fields[0], ":")
	if colon <= 0 {
		return "", core.Range{}, errs.ParseErrorf(format, "line %d: missing path separator", lineNo)
	}
	path, span := fields[0][:colon], fields[0][colon+1:]

	bounds := strings.Split(span, ",")
	if len(bounds) != 2 {
		return "", core.Range{}, errs.ParseErrorf(format, "line %d: malformed span %q", lineNo, span)
	}
	startLine, startCol, err := parsePosition(bounds[0])
	if err != nil {
		return "", core.Range{}, errs.ParseErrorf(format, "line %d: bad start position %q", lineNo, bounds[0])
	}
	endLine, endCol, err := parsePosition(bounds[1])
	if err != nil {
		return "", core.Range{}, errs.ParseErrorf(format, "line %d: bad end position %q", lineNo, bounds[1])
	}

	statements, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", core.Range{}, errs.ParseErrorf(format, "line %d: bad statement count %q", lineNo, fields[1])
	}
	hit, err := strconv.Atoi(fields[2])
	if err != nil {
		return "", core.Range{}, errs.ParseErrorf(format, "line %d: bad hit count %q", lineNo, fields[2])
	}

	return path, core.Range{
		StartLine:  startLine,
		StartCol:   startCol,
		EndLine:    endLine,
		EndCol:     endCol,
		Statements: statements,
		Hit:        hit,
	}, nil
}

func parsePosition(s string) (line, col int, err error) {
	dot := strings.Index(s, ".")
	if dot < 0 {
		return 0, 0, errs.New("missing column")
	}
	line, err = strconv.Atoi(s[:dot])
	if err != nil {
		return 0, 0, err
	}
	col, err = strconv.Atoi(s[dot+1:])
	return line, col, err
}
