package diffmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/store"
	"github.com/coverhub/coverhub/testutils"
)

const testDiff = `diff --git a/a.go b/a.go
index 1111111..2222222 100644
--- a/a.go
+++ b/a.go
@@ -9,0 +10,3 @@ func handler() {
+	l10
+	l11
+	l12
@@ -20,1 +20,1 @@ func teardown() {
-	old
+	new20
@@ -30,2 +30,2 @@ func helper() {
 	ctx30
 	ctx31
diff --git a/b.go b/b.go
index 3333333..4444444 100644
--- a/b.go
+++ b/b.go
@@ -5,0 +6,1 @@
+	nodata
`

type fakeGit struct {
	resolveErr error
	diffErr    error
	base       string
	diff       string
}

func (f *fakeGit) ResolveRef(ctx context.Context, repoID, ref, targetCommit string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.base, nil
}

func (f *fakeGit) Diff(ctx context.Context, repoID, baseCommit, targetCommit string) (string, error) {
	if f.diffErr != nil {
		return "", f.diffErr
	}
	return f.diff, nil
}

func seedStore(t *testing.T) (*store.MemoryStore, *core.Report) {
	m := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.SaveConfig(ctx, &core.RepoConfig{
		RepoID:     "7f1d",
		BaseBranch: "master",
	}))

	baseSnap := &core.Snapshot{
		Envelope: core.Envelope{
			Repo: "https://github.com/example/app", RepoID: "7f1d",
			Branch: "master", Commit: "basecommit",
			Coverage: core.CoverageData{Format: core.FormatGoc, Raw: "mode: count\n"},
		},
		Ranges: core.RangeMap{
			"a.go": {{StartLine: 30, StartCol: 1, EndLine: 31, EndCol: 5, Statements: 2, Hit: 0}},
		},
	}
	require.NoError(t, m.ApplySnapshot(ctx, baseSnap))

	targetSnap := &core.Snapshot{
		Envelope: core.Envelope{
			Repo: "https://github.com/example/app", RepoID: "7f1d",
			Branch: "feature", Commit: "targetcommit",
			Coverage: core.CoverageData{Format: core.FormatGoc, Raw: "mode: count\n"},
		},
		Ranges: core.RangeMap{
			"a.go": {
				{StartLine: 10, StartCol: 1, EndLine: 12, EndCol: 5, Statements: 3, Hit: 2},
				{StartLine: 20, StartCol: 1, EndLine: 20, EndCol: 9, Statements: 1, Hit: 0},
				{StartLine: 30, StartCol: 1, EndLine: 31, EndCol: 5, Statements: 2, Hit: 1},
			},
		},
	}
	require.NoError(t, m.ApplySnapshot(ctx, targetSnap))

	report, err := m.FindReport(ctx, "7f1d", "feature")
	require.NoError(t, err)
	return m, report
}

func TestParseUnifiedDiff(t *testing.T) {
	files := ParseUnifiedDiff(testDiff)
	require.Contains(t, files, "a.go")
	require.Contains(t, files, "b.go")

	assert.Equal(t, []int{10, 11, 12, 20}, files["a.go"].Added)
	assert.Equal(t, []LinePair{{Old: 30, New: 30}, {Old: 31, New: 31}}, files["a.go"].Context)
	assert.Equal(t, []int{6}, files["b.go"].Added)
}

func TestParseUnifiedDiffEmpty(t *testing.T) {
	assert.Empty(t, ParseUnifiedDiff(""))
}

func TestComputeClassifiesLines(t *testing.T) {
	m, report := seedStore(t)
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	git := &fakeGit{base: "basecommit", diff: testDiff}
	engine := NewDiffManager(m, git, logger)

	result, err := engine.Compute(context.Background(), report)
	require.NoError(t, err)

	assert.Equal(t, "targetcommit", result.TargetCommit)
	assert.Equal(t, "basecommit", result.BaseCommit)
	assert.Equal(t, "master", result.BaseBranch)

	// b.go has no coverage data at all, so it drops out entirely
	require.Len(t, result.Files, 1)
	file := result.Files[0]
	assert.Equal(t, "a.go", file.File)

	statuses := map[int]string{}
	for _, l := range file.Lines {
		statuses[l.Line] = l.Status
	}
	assert.Equal(t, core.DiffNewCovered, statuses[10])
	assert.Equal(t, core.DiffNewCovered, statuses[11])
	assert.Equal(t, core.DiffNewCovered, statuses[12])
	assert.Equal(t, core.DiffNewUncovered, statuses[20])
	assert.Equal(t, core.DiffCoverageImproved, statuses[30])
	assert.Equal(t, core.DiffCoverageImproved, statuses[31])

	assert.Equal(t, 3, result.Summary.NewCoveredLines)
	assert.Equal(t, 1, result.Summary.NewUncoveredLines)
	assert.Equal(t, 2, result.Summary.CoverageImprovedLines)
	assert.Equal(t, 4, result.Summary.TotalNewLines)
	assert.InDelta(t, 0.75, result.Summary.IncrementalCoverageRate, 1e-9)

	// baseline resolution is persisted back onto the report
	persisted, err := m.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, "basecommit", persisted.BaseCommit)
	assert.Equal(t, "master", persisted.BaseBranch)
}

func TestComputeIdempotentBaseline(t *testing.T) {
	m, report := seedStore(t)
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	git := &fakeGit{base: "basecommit", diff: testDiff}
	engine := NewDiffManager(m, git, logger)

	first, err := engine.Compute(context.Background(), report)
	require.NoError(t, err)

	// second request sees the persisted baseline and resolves nothing
	persisted, err := m.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	git.resolveErr = &errs.BaselineUnavailable{Ref: "master", Reason: "should not be called"}

	second, err := engine.Compute(context.Background(), persisted)
	require.NoError(t, err)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.BaseCommit, second.BaseCommit)
}

func TestComputeBaselineUnavailable(t *testing.T) {
	m, report := seedStore(t)
	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	git := &fakeGit{resolveErr: &errs.BaselineUnavailable{Ref: "master", Reason: "unreachable"}}
	engine := NewDiffManager(m, git, logger)

	_, err = engine.Compute(context.Background(), report)
	require.Error(t, err)
	assert.True(t, errs.IsBaselineUnavailable(err))
}

func TestComputeDegradedLines(t *testing.T) {
	m := store.NewMemoryStore()
	ctx := context.Background()

	base := &core.Snapshot{
		Envelope: core.Envelope{
			Repo: "r", RepoID: "7f1d", Branch: "master", Commit: "basecommit",
			Coverage: core.CoverageData{Format: core.FormatGoc, Raw: "mode: count\n"},
		},
		Ranges: core.RangeMap{
			"a.go": {{StartLine: 30, StartCol: 1, EndLine: 31, EndCol: 5, Statements: 2, Hit: 3}},
		},
	}
	require.NoError(t, m.ApplySnapshot(ctx, base))

	target := &core.Snapshot{
		Envelope: core.Envelope{
			Repo: "r", RepoID: "7f1d", Branch: "feature", Commit: "targetcommit",
			Coverage: core.CoverageData{Format: core.FormatGoc, Raw: "mode: count\n"},
		},
		Ranges: core.RangeMap{
			"a.go": {{StartLine: 30, StartCol: 1, EndLine: 31, EndCol: 5, Statements: 2, Hit: 0}},
		},
	}
	require.NoError(t, m.ApplySnapshot(ctx, target))

	report, err := m.FindReport(ctx, "7f1d", "feature")
	require.NoError(t, err)
	report.BaseBranch = "master"
	report.BaseCommit = "basecommit"

	logger, err := testutils.GetLogger()
	require.NoError(t, err)

	diffText := "diff --git a/a.go b/a.go\n--- a/a.go\n+++ b/a.go\n@@ -30,2 +30,2 @@\n \tctx30\n \tctx31\n"
	engine := NewDiffManager(m, &fakeGit{diff: diffText}, logger)

	result, err := engine.Compute(ctx, report)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, 2, result.Summary.CoverageDegradedLines)
	assert.Zero(t, result.Summary.TotalNewLines)
	assert.Zero(t, result.Summary.IncrementalCoverageRate)
}
