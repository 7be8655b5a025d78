// Package agentloop runs the in-process reporting agent: collect a coverage
// snapshot on a fixed interval, skip publishing when the fingerprint is
// unchanged, and push envelopes to the configured endpoint.
package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/coverhub/coverhub/config"
	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/fingerprint"
	"github.com/coverhub/coverhub/pkg/lumber"
	"github.com/coverhub/coverhub/pkg/parser"
	"github.com/coverhub/coverhub/pkg/ranges"
	"github.com/coverhub/coverhub/pkg/utils"
)

// Runner drives the periodic collect-fingerprint-publish cycle.
type Runner struct {
	cfg       *config.AgentConfig
	provider  core.CoverageProvider
	publisher core.Publisher
	state     core.FingerprintStore
	logger    lumber.Logger
}

// New wires the agent loop from its collaborators.
func New(cfg *config.AgentConfig, provider core.CoverageProvider, publisher core.Publisher,
	state core.FingerprintStore, logger lumber.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		provider:  provider,
		publisher: publisher,
		state:     state,
		logger:    logger,
	}
}

// Run flushes once unconditionally on startup, then ticks until the context
// is canceled. Ticks never overlap: a slow publish makes the next tick skip.
func (r *Runner) Run(ctx context.Context) error {
	r.Tick(ctx, true)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(&cronLogger{logger: r.logger})))
	spec := fmt.Sprintf("@every %s", r.cfg.FlushInterval)
	if _, err := c.AddFunc(spec, func() { r.Tick(ctx, false) }); err != nil {
		return err
	}
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	r.logger.Infof("agent loop stopped")
	return nil
}

// Tick runs one collect-and-publish cycle. With force set the fingerprint
// gate is bypassed. Failures discard the snapshot; the next tick picks up
// whatever coverage accumulated since, so nothing is lost permanently.
func (r *Runner) Tick(ctx context.Context, force bool) {
	snap, err := r.provider.Snapshot(ctx)
	if err != nil {
		r.logger.Errorf("coverage snapshot failed: %v", err)
		return
	}

	raw := snap.Raw
	if raw == "" && len(snap.Lines) > 0 {
		raw = ranges.RenderProfile(snap.Mode, snap.Lines)
	}

	rangeMap, dropped, err := parser.Parse(snap.Format, raw)
	if err != nil {
		r.logger.Errorf("local coverage profile unparsable: %v", err)
		return
	}
	for _, dropErr := range dropped {
		r.logger.Warnf("%v", dropErr)
	}

	digest := fingerprint.Calculate(rangeMap)
	if !force {
		previous, err := r.state.Load()
		if err != nil {
			r.logger.Warnf("fingerprint state unreadable, publishing anyway: %v", err)
		} else if previous == digest {
			r.logger.Debugf("coverage unchanged (digest %.12s), skipping publish", digest)
			return
		}
	}

	envelope := r.buildEnvelope(snap.Format, raw)
	if err := r.publisher.Publish(ctx, envelope); err != nil {
		r.logger.Errorf("publish failed, snapshot discarded: %v", err)
		return
	}
	if err := r.state.Save(digest); err != nil {
		r.logger.Warnf("fingerprint state not saved: %v", err)
	}
	r.logger.Infof("published coverage for %s@%s (%d files)", r.cfg.Branch, r.cfg.Commit, len(rangeMap))
}

func (r *Runner) buildEnvelope(format, raw string) *core.Envelope {
	return &core.Envelope{
		Repo:      r.cfg.Repo,
		RepoID:    utils.RepoID(r.cfg.Repo),
		Branch:    r.cfg.Branch,
		Commit:    r.cfg.Commit,
		CI:        utils.DetectCI(),
		Coverage:  core.CoverageData{Format: format, Raw: raw},
		Timestamp: time.Now().Unix(),
	}
}

// NewStateStore picks the fingerprint store for the configured path; an
// empty path keeps the digest in memory only.
func NewStateStore(path string) core.FingerprintStore {
	if path == "" {
		return fingerprint.NewMemoryStore()
	}
	return fingerprint.NewFileStore(path)
}

// cronLogger adapts lumber to the cron logging contract.
type cronLogger struct {
	logger lumber.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debugf("cron: %s %v", msg, keysAndValues)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
