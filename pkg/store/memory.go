package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
)

// MemoryStore is an in-process core.CoverageStore used for local mode and
// tests. FailNextApply injects transient StoreErrors on ApplySnapshot to
// exercise retry paths.
type MemoryStore struct {
	mu            sync.Mutex
	nextID        int64
	reports       map[string]*core.Report // keyed repoID|branch
	files         map[string]*core.File   // keyed repoID|branch|path
	ranges        map[int64][]core.Range  // keyed fileID
	configs       map[string]*core.RepoConfig
	FailNextApply int
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]*core.Report),
		files:   make(map[string]*core.File),
		ranges:  make(map[int64][]core.Range),
		configs: make(map[string]*core.RepoConfig),
	}
}

func reportKey(repoID, branch string) string { return repoID + "|" + branch }

func fileKey(repoID, branch, path string) string { return repoID + "|" + branch + "|" + path }

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// ApplySnapshot implements the wholesale-replace upsert in memory.
func (m *MemoryStore) ApplySnapshot(ctx context.Context, snap *core.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNextApply > 0 {
		m.FailNextApply--
		return &errs.StoreError{Op: "apply snapshot", Err: errs.New("injected failure")}
	}

	now := time.Now().Unix()
	env := &snap.Envelope
	key := reportKey(env.RepoID, env.Branch)

	report, ok := m.reports[key]
	if !ok {
		report = &core.Report{ID: m.id(), RepoID: env.RepoID, Branch: env.Branch, CreatedAt: now}
		m.reports[key] = report
	}
	report.RepoName = env.Repo
	report.Commit = env.Commit
	report.CIProvider = env.CI.Provider
	report.CIPipelineID = env.CI.PipelineID
	report.CIJobID = env.CI.JobID
	report.Format = env.Coverage.Format
	report.RawPayload = env.Coverage.Raw
	report.Status = core.StatusCompleted
	report.ErrorMessage = ""
	report.UpdatedAt = now

	for path, ranges := range snap.Ranges {
		fk := fileKey(env.RepoID, env.Branch, path)
		file, ok := m.files[fk]
		if !ok {
			file = &core.File{ID: m.id(), RepoID: env.RepoID, Branch: env.Branch, Path: path, CreatedAt: now}
			m.files[fk] = file
		}
		file.UpdatedAt = now

		stored := make([]core.Range, len(ranges))
		copy(stored, ranges)
		for i := range stored {
			stored[i].ID = m.id()
			stored[i].FileID = file.ID
			stored[i].CreatedAt = now
		}
		m.ranges[file.ID] = stored
	}
	return nil
}

// FindReport returns the current report for a (repoID, branch) pair.
func (m *MemoryStore) FindReport(ctx context.Context, repoID, branch string) (*core.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	report, ok := m.reports[reportKey(repoID, branch)]
	if !ok {
		return nil, errs.ErrReportNotFound
	}
	cp := *report
	return &cp, nil
}

// GetReport returns a report by primary key.
func (m *MemoryStore) GetReport(ctx context.Context, id int64) (*core.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, report := range m.reports {
		if report.ID == id {
			cp := *report
			return &cp, nil
		}
	}
	return nil, errs.ErrReportNotFound
}

// ListReports returns all reports of a repository, most recent first.
func (m *MemoryStore) ListReports(ctx context.Context, repoID string) ([]core.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reports := []core.Report{}
	for _, report := range m.reports {
		if report.RepoID == repoID {
			reports = append(reports, *report)
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].UpdatedAt > reports[j].UpdatedAt })
	return reports, nil
}

// ListFiles returns the covered files of a (repoID, branch) pair.
func (m *MemoryStore) ListFiles(ctx context.Context, repoID, branch string) ([]core.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files := []core.File{}
	for _, file := range m.files {
		if file.RepoID == repoID && file.Branch == branch {
			files = append(files, *file)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// RangesForFile returns a file's ranges sorted by position.
func (m *MemoryStore) RangesForFile(ctx context.Context, fileID int64) ([]core.Range, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.ranges[fileID]
	if !ok {
		return []core.Range{}, nil
	}
	out := make([]core.Range, len(stored))
	copy(out, stored)
	return out, nil
}

// SetBaseCommit persists the resolved baseline onto a report.
func (m *MemoryStore) SetBaseCommit(ctx context.Context, reportID int64, baseBranch, baseCommit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, report := range m.reports {
		if report.ID == reportID {
			report.BaseBranch = baseBranch
			report.BaseCommit = baseCommit
			report.UpdatedAt = time.Now().Unix()
			return nil
		}
	}
	return errs.ErrReportNotFound
}

// GetConfig returns the per-repository policy.
func (m *MemoryStore) GetConfig(ctx context.Context, repoID string) (*core.RepoConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[repoID]
	if !ok {
		return nil, errs.ErrConfigNotFound
	}
	cp := *cfg
	return &cp, nil
}

// SaveConfig inserts or updates the per-repository policy.
func (m *MemoryStore) SaveConfig(ctx context.Context, cfg *core.RepoConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	existing, ok := m.configs[cfg.RepoID]
	cp := *cfg
	if ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.ID = m.id()
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.configs[cfg.RepoID] = &cp
	return nil
}
