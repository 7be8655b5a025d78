// Package ingestion consumes coverage envelopes from the broker and applies
// them to the store with at-least-once, idempotent semantics.
package ingestion

import (
	"context"
	"encoding/json"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
	"github.com/coverhub/coverhub/pkg/parser"
	"github.com/coverhub/coverhub/pkg/utils"
)

// Verdict is the delivery outcome of one message.
type Verdict int

const (
	// VerdictAck marks the message fully processed (or deliberately skipped).
	VerdictAck Verdict = iota
	// VerdictReject drops the message permanently: poison payloads and
	// deliveries past the retry budget.
	VerdictReject
	// VerdictRetry asks for a redelivery with an incremented retry count.
	VerdictRetry
)

// Pipeline validates, parses and stores coverage envelopes.
type Pipeline struct {
	store  core.CoverageStore
	locks  *keyedMutex
	logger lumber.Logger
}

// NewPipeline wires the message processing chain.
func NewPipeline(store core.CoverageStore, logger lumber.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		locks:  newKeyedMutex(),
		logger: logger,
	}
}

// Process handles one delivery body and decides its fate. Reprocessing the
// same body any number of times converges on the same stored state.
func (p *Pipeline) Process(ctx context.Context, body []byte, retryCount int) Verdict {
	var envelope core.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		p.logger.Errorf("dropping undecodable message: %v", err)
		return VerdictReject
	}
	if err := utils.ValidateEnvelope(&envelope); err != nil {
		p.logger.Errorf("dropping invalid envelope: %v", err)
		return VerdictReject
	}

	if _, err := p.store.GetConfig(ctx, envelope.RepoID); err != nil {
		if err == errs.ErrConfigNotFound {
			p.logger.Warnf("skipping envelope for unknown repo %s (%s)", envelope.RepoID, envelope.Repo)
			return VerdictAck
		}
		return p.retryOrReject(envelope.RepoID, retryCount, err)
	}

	rangeMap, dropped, err := parser.Parse(envelope.Coverage.Format, envelope.Coverage.Raw)
	if err != nil {
		p.logger.Errorf("dropping unparsable %s payload for repo %s: %v", envelope.Coverage.Format, envelope.RepoID, err)
		return VerdictReject
	}
	for _, dropErr := range dropped {
		p.logger.Warnf("repo %s: %v", envelope.RepoID, dropErr)
	}

	unlock := p.locks.lock(envelope.RepoID + "|" + envelope.Branch)
	err = p.store.ApplySnapshot(ctx, &core.Snapshot{Envelope: envelope, Ranges: rangeMap})
	unlock()
	if err != nil {
		return p.retryOrReject(envelope.RepoID, retryCount, err)
	}

	p.logger.Infof("stored coverage for repo %s branch %s commit %s (%d files)",
		envelope.RepoID, envelope.Branch, envelope.Commit, len(rangeMap))
	return VerdictAck
}

func (p *Pipeline) retryOrReject(repoID string, retryCount int, err error) Verdict {
	if retryCount >= global.MaxRetryCount {
		p.logger.Errorf("permanent failure for repo %s after %d attempts: %v", repoID, retryCount, err)
		return VerdictReject
	}
	p.logger.Warnf("transient failure for repo %s (attempt %d): %v", repoID, retryCount, err)
	return VerdictRetry
}
