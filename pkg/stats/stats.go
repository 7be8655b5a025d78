// Package stats aggregates stored coverage into report and per-file
// statistics, honoring the repository's exclusion policy.
package stats

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/coverhub/coverhub/pkg/core"
)

const policySeparator = ";"

// Matcher evaluates a repository's exclusion policy against file paths.
// Paths under any excluded directory or matching any excluded file pattern
// drop out of the statistics. A nil config excludes nothing.
type Matcher struct {
	dirs     []string
	patterns []string
}

// NewMatcher parses the semicolon-separated exclusion lists of a config.
func NewMatcher(cfg *core.RepoConfig) *Matcher {
	m := &Matcher{}
	if cfg == nil {
		return m
	}
	for _, dir := range splitPolicy(cfg.ExcludeDirs) {
		m.dirs = append(m.dirs, strings.TrimSuffix(dir, "/")+"/")
	}
	m.patterns = splitPolicy(cfg.ExcludeFiles)
	return m
}

func splitPolicy(list string) []string {
	var out []string
	for _, entry := range strings.Split(list, policySeparator) {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// Excluded reports whether a file path falls under the exclusion policy.
func (m *Matcher) Excluded(path string) bool {
	for _, dir := range m.dirs {
		if strings.HasPrefix(path, dir) {
			return true
		}
	}
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	for _, pattern := range m.patterns {
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Aggregate folds per-file ranges into overall statistics and per-file
// summaries. Excluded files contribute to neither. A report with zero
// included statements has rate 0.
func Aggregate(ranges map[string][]core.Range, matcher *Matcher) (core.Statistics, []core.FileSummary) {
	if matcher == nil {
		matcher = &Matcher{}
	}
	stats := core.Statistics{}
	summaries := []core.FileSummary{}

	for path, rs := range ranges {
		if matcher.Excluded(path) {
			continue
		}
		summary := core.FileSummary{File: path}
		for _, r := range rs {
			summary.TotalStatements += r.Statements
			if r.Covered() {
				summary.CoveredStatements += r.Statements
			}
		}
		summary.CoverageRate = rate(summary.CoveredStatements, summary.TotalStatements)

		stats.TotalFiles++
		stats.TotalStatements += summary.TotalStatements
		stats.CoveredStatements += summary.CoveredStatements
		summaries = append(summaries, summary)
	}
	stats.CoverageRate = rate(stats.CoveredStatements, stats.TotalStatements)
	return stats, summaries
}

func rate(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}
