package core

// Model definitions shared across the agent, transport, ingestion and query
// layers. The JSON tags on Envelope and its children are wire-stable.

// Coverage format tags carried in the envelope. All three dialects normalize
// into the same raw text sub-format and the same Range shape.
const (
	FormatGoc    = "goc"
	FormatJacoco = "jacoco"
	FormatPyca   = "pyca"
)

// Coverage modes declared on the first line of the raw payload.
const (
	ModeCount  = "count"
	ModeSet    = "set"
	ModeAtomic = "atomic"
)

// Report lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Repository types configured per repo.
const (
	RepoTypeCompiled    = "compiled"
	RepoTypeBytecode    = "bytecode"
	RepoTypeInterpreted = "interpreted"
)

// Diff line classifications.
const (
	DiffNewCovered       = "new_covered"
	DiffNewUncovered     = "new_uncovered"
	DiffCoverageImproved = "coverage_improved"
	DiffCoverageDegraded = "coverage_degraded"
)

// Range is a contiguous source span with a statement count and a hit count.
// Ranges for one file are non-overlapping and sorted by (StartLine, StartCol).
type Range struct {
	ID         int64 `json:"id,omitempty" db:"id"`
	FileID     int64 `json:"-" db:"file_id"`
	StartLine  int   `json:"startLine" db:"start_line"`
	StartCol   int   `json:"startCol" db:"start_col"`
	EndLine    int   `json:"endLine" db:"end_line"`
	EndCol     int   `json:"endCol" db:"end_col"`
	Statements int   `json:"statements" db:"statements"`
	Hit        int   `json:"hit" db:"hit"`
	CreatedAt  int64 `json:"created_at,omitempty" db:"created_at"`
}

// Covered reports whether the range was executed at least once.
func (r Range) Covered() bool { return r.Hit > 0 }

// ContainsLine reports whether the range spans the given line.
func (r Range) ContainsLine(line int) bool {
	return r.StartLine <= line && line <= r.EndLine
}

// RangeMap is the shared normalized shape every format parser produces:
// file path to its sorted coverage ranges.
type RangeMap map[string][]Range

// File identifies coverage data for one source file on a branch.
// Unique per (RepoID, Branch, Path).
type File struct {
	ID        int64  `json:"id" db:"id"`
	RepoID    string `json:"repo_id" db:"repo_id"`
	Branch    string `json:"branch" db:"branch"`
	Path      string `json:"file" db:"file_path"`
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// Report is one coverage submission snapshot for a (RepoID, Branch) pair.
// At most one current Report exists per pair; a new submission for the same
// branch supersedes rather than appends.
type Report struct {
	ID           int64  `json:"id" db:"id"`
	RepoID       string `json:"repo_id" db:"repo_id"`
	RepoName     string `json:"repo_name" db:"repo_name"`
	Branch       string `json:"branch" db:"branch"`
	BaseBranch   string `json:"base_branch" db:"base_branch"`
	Commit       string `json:"commit" db:"commit"`
	BaseCommit   string `json:"base_commit" db:"base_commit"`
	CIProvider   string `json:"ci_provider" db:"ci_provider"`
	CIPipelineID string `json:"ci_pipeline_id" db:"ci_pipeline_id"`
	CIJobID      string `json:"ci_job_id" db:"ci_job_id"`
	Format       string `json:"coverage_format" db:"coverage_format"`
	RawPayload   string `json:"-" db:"coverage_raw"`
	Status       string `json:"status" db:"status"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    int64  `json:"created_at" db:"created_at"`
	UpdatedAt    int64  `json:"updated_at" db:"updated_at"`
}

// RepoConfig is the per-repository policy. Mutated only through the
// administrative API; read-only to the ingestion and diff paths.
type RepoConfig struct {
	ID           int64  `json:"id" db:"id"`
	RepoID       string `json:"repo_id" db:"repo_id"`
	RepoName     string `json:"repo_name" db:"repo_name"`
	RepoURL      string `json:"repo_url" db:"repo_url"`
	RepoType     string `json:"repo_type" db:"repo_type"`
	BaseBranch   string `json:"base_branch" db:"base_branch"`
	ExcludeDirs  string `json:"exclude_dirs" db:"exclude_dirs"`
	ExcludeFiles string `json:"exclude_files" db:"exclude_files"`
	CreatedAt    int64  `json:"created_at" db:"created_at"`
	UpdatedAt    int64  `json:"updated_at" db:"updated_at"`
}

// CIMetadata is the provenance block of an envelope.
type CIMetadata struct {
	Provider   string `json:"provider"`
	PipelineID string `json:"pipeline_id"`
	JobID      string `json:"job_id"`
}

// CoverageData is the format-tagged raw payload of an envelope.
type CoverageData struct {
	Format string `json:"format" validate:"required,oneof=goc jacoco pyca"`
	Raw    string `json:"raw" validate:"required"`
}

// Envelope is the wire message every reporting agent publishes for one
// coverage snapshot.
type Envelope struct {
	Repo      string       `json:"repo" validate:"required"`
	RepoID    string       `json:"repo_id" validate:"required"`
	Branch    string       `json:"branch" validate:"required"`
	Commit    string       `json:"commit" validate:"required"`
	CI        CIMetadata   `json:"ci"`
	Coverage  CoverageData `json:"coverage" validate:"required"`
	Timestamp int64        `json:"timestamp"`
}

// Snapshot is one parsed envelope ready for the wholesale-replace upsert.
type Snapshot struct {
	Envelope Envelope
	Ranges   RangeMap
}

// Statistics summarizes full coverage for a report after exclusions.
type Statistics struct {
	TotalFiles        int     `json:"total_files"`
	TotalStatements   int     `json:"total_statements"`
	CoveredStatements int     `json:"covered_statements"`
	CoverageRate      float64 `json:"coverage_rate"`
}

// FileSummary is the per-file slice of Statistics.
type FileSummary struct {
	File              string  `json:"file"`
	TotalStatements   int     `json:"total_statements"`
	CoveredStatements int     `json:"covered_statements"`
	CoverageRate      float64 `json:"coverage_rate"`
}

// DiffLine classifies one changed line. Derived per request, never persisted.
type DiffLine struct {
	Line   int    `json:"line"`
	Status string `json:"status"`
	Hit    int    `json:"hit"`
}

// DiffFileSummary counts classifications for one file.
type DiffFileSummary struct {
	NewCovered       int `json:"new_covered"`
	NewUncovered     int `json:"new_uncovered"`
	CoverageImproved int `json:"coverage_improved"`
	CoverageDegraded int `json:"coverage_degraded"`
}

// DiffFileResult is the per-file diff coverage outcome.
type DiffFileResult struct {
	File    string          `json:"file"`
	Summary DiffFileSummary `json:"summary"`
	Lines   []DiffLine      `json:"lines"`
}

// DiffSummary aggregates the incremental coverage of one diff request.
type DiffSummary struct {
	TotalFiles              int     `json:"total_files"`
	TotalNewLines           int     `json:"total_new_lines"`
	NewCoveredLines         int     `json:"new_covered_lines"`
	NewUncoveredLines       int     `json:"new_uncovered_lines"`
	CoverageImprovedLines   int     `json:"coverage_improved_lines"`
	CoverageDegradedLines   int     `json:"coverage_degraded_lines"`
	IncrementalCoverageRate float64 `json:"incremental_coverage_rate"`
}

// DiffResult is the full diff coverage response for one report.
type DiffResult struct {
	TargetCommit string           `json:"targetCommit"`
	BaseCommit   string           `json:"baseCommit"`
	BaseBranch   string           `json:"baseBranch"`
	Files        []DiffFileResult `json:"files"`
	Summary      DiffSummary      `json:"summary"`
}

// CoverageSnapshot is what a runtime-specific provider hands the agent loop
// each tick. Either Raw carries pre-rendered range text, or Lines carries
// executed line sets still to be compressed.
type CoverageSnapshot struct {
	Format string
	Mode   string
	Raw    string
	Lines  map[string][]int
}
