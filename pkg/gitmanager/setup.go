// Package gitmanager resolves refs and reads diffs from local repository
// mirrors. It shells out to git with bounded timeouts; the rest of the
// system never touches version control directly.
package gitmanager

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
)

// runner executes one git invocation inside a repository directory.
type runner interface {
	run(ctx context.Context, dir string, args ...string) (string, error)
}

type gitRunner struct{}

func (gitRunner) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", errors.New(msg)
	}
	return stdout.String(), nil
}

type gitManager struct {
	reposRoot string
	timeout   time.Duration
	runner    runner
	logger    lumber.Logger
}

// NewGitManager returns a core.GitManager reading from bare mirrors laid out
// as <reposRoot>/<repoID>.git.
func NewGitManager(reposRoot string, logger lumber.Logger) core.GitManager {
	return &gitManager{
		reposRoot: reposRoot,
		timeout:   global.DefaultGitTimeout,
		runner:    gitRunner{},
		logger:    logger,
	}
}

func (g *gitManager) repoDir(repoID string) string {
	return filepath.Join(g.reposRoot, repoID+".git")
}

// ResolveRef resolves the merge-base of a ref and a commit, falling back to
// the ref tip when the histories never met. Every failure surfaces as
// BaselineUnavailable so callers can degrade instead of erroring out.
func (g *gitManager) ResolveRef(ctx context.Context, repoID, ref, targetCommit string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	dir := g.repoDir(repoID)
	g.fetch(ctx, dir)

	out, err := g.runner.run(ctx, dir, "merge-base", ref, targetCommit)
	if err == nil {
		return strings.TrimSpace(out), nil
	}
	g.logger.Debugf("merge-base of %s and %s failed for repo %s: %v, falling back to rev-parse", ref, targetCommit, repoID, err)

	out, err = g.runner.run(ctx, dir, "rev-parse", ref)
	if err != nil {
		return "", &errs.BaselineUnavailable{Ref: ref, Reason: err.Error()}
	}
	return strings.TrimSpace(out), nil
}

// Diff returns the unified diff between two commits with zero context lines
// and rename detection enabled.
func (g *gitManager) Diff(ctx context.Context, repoID, baseCommit, targetCommit string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.runner.run(ctx, g.repoDir(repoID), "diff", "-U0", "-M", baseCommit+"..."+targetCommit)
	if err != nil {
		return "", &errs.BaselineUnavailable{Ref: baseCommit, Reason: err.Error()}
	}
	return out, nil
}

// fetch refreshes the mirror; a failed fetch is logged and tolerated since
// the refs may already be current.
func (g *gitManager) fetch(ctx context.Context, dir string) {
	if _, err := g.runner.run(ctx, dir, "fetch", "--all", "--quiet"); err != nil {
		g.logger.Warnf("git fetch failed in %s: %v", dir, err)
	}
}
