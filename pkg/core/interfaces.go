package core

import "context"

// Publisher sends one envelope to the coverage topic. Publish fails with a
// TransportError on any non-2xx or non-ack outcome and otherwise returns
// success with no further delivery guarantee (fire-and-forget).
type Publisher interface {
	Publish(ctx context.Context, envelope *Envelope) error
	Close() error
}

// CoverageStore persists Report, File, Range and RepoConfig entities.
// ApplySnapshot is the wholesale-replace upsert: processing the same
// envelope twice must leave the store identical to processing it once.
type CoverageStore interface {
	// ApplySnapshot finds-or-creates the Report for the snapshot's
	// (repoID, branch), replaces the covered files' ranges wholesale and
	// marks the report completed, all within one atomic unit. Transient
	// failures surface as StoreError.
	ApplySnapshot(ctx context.Context, snap *Snapshot) error

	FindReport(ctx context.Context, repoID, branch string) (*Report, error)
	GetReport(ctx context.Context, id int64) (*Report, error)
	ListReports(ctx context.Context, repoID string) ([]Report, error)

	ListFiles(ctx context.Context, repoID, branch string) ([]File, error)
	RangesForFile(ctx context.Context, fileID int64) ([]Range, error)

	// SetBaseCommit persists the resolved baseline back onto a report.
	// Recomputation with the same inputs yields the same resolved commit,
	// so the write-back is idempotent.
	SetBaseCommit(ctx context.Context, reportID int64, baseBranch, baseCommit string) error

	GetConfig(ctx context.Context, repoID string) (*RepoConfig, error)
	SaveConfig(ctx context.Context, cfg *RepoConfig) error
}

// GitManager is the version-control collaborator boundary. The core does not
// manage clones or worktrees; it only resolves refs and reads diffs. Both
// calls carry a bounded timeout and surface BaselineUnavailable on failure.
type GitManager interface {
	// ResolveRef resolves a ref (branch tip or merge-base against it) to a
	// commit hash for the given repository.
	ResolveRef(ctx context.Context, repoID, ref, targetCommit string) (string, error)
	// Diff returns the unified diff text between two commits.
	Diff(ctx context.Context, repoID, baseCommit, targetCommit string) (string, error)
}

// DiffEngine computes the incremental coverage of one report against its
// baseline.
type DiffEngine interface {
	Compute(ctx context.Context, report *Report) (*DiffResult, error)
}

// CoverageProvider produces one coverage snapshot per agent tick. The
// per-runtime collection mechanics behind it are external to the core.
type CoverageProvider interface {
	Snapshot(ctx context.Context) (*CoverageSnapshot, error)
}

// FingerprintStore is the agent's process-local digest state, swappable
// between file-backed and in-memory implementations.
type FingerprintStore interface {
	Load() (string, error)
	Save(digest string) error
}

// Requests is the HTTP helper contract used by the bridge transport and the
// API clients.
type Requests interface {
	MakeAPIRequest(ctx context.Context, httpMethod, endpoint string, body []byte) ([]byte, error)
}
