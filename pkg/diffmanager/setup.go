// Package diffmanager computes incremental coverage for one report by
// merging its git diff against the baseline with stored coverage ranges.
package diffmanager

import (
	"context"
	"sort"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
	"github.com/coverhub/coverhub/pkg/ranges"
)

type diffManager struct {
	store  core.CoverageStore
	git    core.GitManager
	logger lumber.Logger
}

// NewDiffManager returns the diff coverage engine.
func NewDiffManager(store core.CoverageStore, git core.GitManager, logger lumber.Logger) *diffManager {
	return &diffManager{store: store, git: git, logger: logger}
}

// Compute classifies the report's changed lines against its baseline.
// All state is request-scoped except the baseCommit write-back, which is
// idempotent: the same inputs always resolve to the same commit.
func (d *diffManager) Compute(ctx context.Context, report *core.Report) (*core.DiffResult, error) {
	baseBranch := report.BaseBranch
	if baseBranch == "" {
		baseBranch = d.configuredBaseBranch(ctx, report.RepoID)
	}

	baseCommit := report.BaseCommit
	if baseCommit == "" {
		resolved, err := d.git.ResolveRef(ctx, report.RepoID, baseBranch, report.Commit)
		if err != nil {
			return nil, err
		}
		baseCommit = resolved
		if err := d.store.SetBaseCommit(ctx, report.ID, baseBranch, baseCommit); err != nil {
			d.logger.Errorf("persisting base commit %s for report %d failed: %v", baseCommit, report.ID, err)
		}
	}

	diffText, err := d.git.Diff(ctx, report.RepoID, baseCommit, report.Commit)
	if err != nil {
		return nil, err
	}
	fileDiffs := ParseUnifiedDiff(diffText)

	targetRanges, err := d.rangesByPath(ctx, report.RepoID, report.Branch)
	if err != nil {
		return nil, err
	}
	baseRanges, err := d.rangesByPath(ctx, report.RepoID, baseBranch)
	if err != nil {
		return nil, err
	}

	result := &core.DiffResult{
		TargetCommit: report.Commit,
		BaseCommit:   baseCommit,
		BaseBranch:   baseBranch,
		Files:        []core.DiffFileResult{},
	}
	for path, fd := range fileDiffs {
		fileResult := classifyFile(path, fd, targetRanges[path], baseRanges[path])
		if len(fileResult.Lines) == 0 {
			continue
		}
		result.Files = append(result.Files, fileResult)
	}
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].File < result.Files[j].File })
	result.Summary = summarize(result.Files)
	return result, nil
}

func (d *diffManager) configuredBaseBranch(ctx context.Context, repoID string) string {
	cfg, err := d.store.GetConfig(ctx, repoID)
	if err != nil || cfg.BaseBranch == "" {
		return global.DefaultBaseBranch
	}
	return cfg.BaseBranch
}

func (d *diffManager) rangesByPath(ctx context.Context, repoID, branch string) (map[string][]core.Range, error) {
	files, err := d.store.ListFiles(ctx, repoID, branch)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]core.Range, len(files))
	for i := range files {
		rs, err := d.store.RangesForFile(ctx, files[i].ID)
		if err != nil {
			return nil, err
		}
		out[files[i].Path] = rs
	}
	return out, nil
}

// classifyFile merges one file's diff lines with its target and base
// coverage. Added lines become new_covered or new_uncovered; unchanged
// lines inside hunks become coverage_improved or coverage_degraded when
// their hit polarity flipped between base and target. Lines outside any
// range are not executable and stay unclassified.
func classifyFile(path string, fd *FileDiff, target, base []core.Range) core.DiffFileResult {
	result := core.DiffFileResult{File: path, Lines: []core.DiffLine{}}

	for _, line := range fd.Added {
		tr, ok := ranges.FindCovering(target, line)
		if !ok {
			continue
		}
		status := core.DiffNewUncovered
		if tr.Covered() {
			status = core.DiffNewCovered
		}
		result.Lines = append(result.Lines, core.DiffLine{Line: line, Status: status, Hit: tr.Hit})
	}

	for _, pair := range fd.Context {
		tr, ok := ranges.FindCovering(target, pair.New)
		if !ok {
			continue
		}
		br, ok := ranges.FindCovering(base, pair.Old)
		if !ok {
			continue
		}
		switch {
		case tr.Covered() && !br.Covered():
			result.Lines = append(result.Lines, core.DiffLine{Line: pair.New, Status: core.DiffCoverageImproved, Hit: tr.Hit})
		case !tr.Covered() && br.Covered():
			result.Lines = append(result.Lines, core.DiffLine{Line: pair.New, Status: core.DiffCoverageDegraded, Hit: tr.Hit})
		}
	}

	sort.Slice(result.Lines, func(i, j int) bool { return result.Lines[i].Line < result.Lines[j].Line })
	for _, l := range result.Lines {
		switch l.Status {
		case core.DiffNewCovered:
			result.Summary.NewCovered++
		case core.DiffNewUncovered:
			result.Summary.NewUncovered++
		case core.DiffCoverageImproved:
			result.Summary.CoverageImproved++
		case core.DiffCoverageDegraded:
			result.Summary.CoverageDegraded++
		}
	}
	return result
}

func summarize(files []core.DiffFileResult) core.DiffSummary {
	summary := core.DiffSummary{TotalFiles: len(files)}
	for _, f := range files {
		summary.NewCoveredLines += f.Summary.NewCovered
		summary.NewUncoveredLines += f.Summary.NewUncovered
		summary.CoverageImprovedLines += f.Summary.CoverageImproved
		summary.CoverageDegradedLines += f.Summary.CoverageDegraded
	}
	summary.TotalNewLines = summary.NewCoveredLines + summary.NewUncoveredLines
	if summary.TotalNewLines > 0 {
		summary.IncrementalCoverageRate = float64(summary.NewCoveredLines) / float64(summary.TotalNewLines)
	}
	return summary
}
