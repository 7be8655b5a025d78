package gitmanager

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/testutils"
)

type fakeRunner struct {
	calls   []string
	outputs map[string]string
	fails   map[string]error
}

func (f *fakeRunner) run(ctx context.Context, dir string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)
	if err, ok := f.fails[key]; ok {
		return "", err
	}
	return f.outputs[key], nil
}

func newTestManager(t *testing.T, r runner) *gitManager {
	logger, err := testutils.GetLogger()
	require.NoError(t, err)
	return &gitManager{
		reposRoot: "/var/lib/coverhub/repos",
		timeout:   5 * time.Second,
		runner:    r,
		logger:    logger,
	}
}

func TestResolveRefMergeBase(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"merge-base master abc123": "basecommit\n",
	}}
	g := newTestManager(t, r)

	got, err := g.ResolveRef(context.Background(), "7f1d", "master", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "basecommit", got)
	assert.Contains(t, r.calls, "fetch --all --quiet")
}

func TestResolveRefFallsBackToRevParse(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{
			"rev-parse master": "tipcommit\n",
		},
		fails: map[string]error{
			"merge-base master abc123": errors.New("fatal: no merge base"),
		},
	}
	g := newTestManager(t, r)

	got, err := g.ResolveRef(context.Background(), "7f1d", "master", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "tipcommit", got)
}

func TestResolveRefUnavailable(t *testing.T) {
	r := &fakeRunner{fails: map[string]error{
		"merge-base master abc123": errors.New("fatal: bad object"),
		"rev-parse master":         errors.New("fatal: unknown revision"),
	}}
	g := newTestManager(t, r)

	_, err := g.ResolveRef(context.Background(), "7f1d", "master", "abc123")
	require.Error(t, err)
	assert.True(t, errs.IsBaselineUnavailable(err))
}

func TestDiff(t *testing.T) {
	diffText := "diff --git a/a.go b/a.go\n@@ -0,0 +10,3 @@\n+added\n"
	r := &fakeRunner{outputs: map[string]string{
		"diff -U0 -M base...target": diffText,
	}}
	g := newTestManager(t, r)

	got, err := g.Diff(context.Background(), "7f1d", "base", "target")
	require.NoError(t, err)
	assert.Equal(t, diffText, got)
}

func TestDiffUnavailable(t *testing.T) {
	r := &fakeRunner{fails: map[string]error{
		"diff -U0 -M base...target": errors.New("fatal: bad revision"),
	}}
	g := newTestManager(t, r)

	_, err := g.Diff(context.Background(), "7f1d", "base", "target")
	require.Error(t, err)
	assert.True(t, errs.IsBaselineUnavailable(err))
}
