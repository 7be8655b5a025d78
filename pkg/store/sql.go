// Package store persists reports, files, ranges and repository configs.
package store

import (
	"context"
	"database/sql"
	"time"

	// mysql driver registration
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/lumber"
)

const (
	findReportForUpdateQuery = `SELECT id, repo_id, repo_name, branch, base_branch, commit, base_commit,
		ci_provider, ci_pipeline_id, ci_job_id, coverage_format, coverage_raw, status, error_message,
		created_at, updated_at
		FROM report WHERE repo_id = ? AND branch = ? FOR UPDATE`

	findReportQuery = `SELECT id, repo_id, repo_name, branch, base_branch, commit, base_commit,
		ci_provider, ci_pipeline_id, ci_job_id, coverage_format, coverage_raw, status, error_message,
		created_at, updated_at
		FROM report WHERE repo_id = ? AND branch = ?`

	getReportQuery = `SELECT id, repo_id, repo_name, branch, base_branch, commit, base_commit,
		ci_provider, ci_pipeline_id, ci_job_id, coverage_format, coverage_raw, status, error_message,
		created_at, updated_at
		FROM report WHERE id = ?`

	listReportsQuery = `SELECT id, repo_id, repo_name, branch, base_branch, commit, base_commit,
		ci_provider, ci_pipeline_id, ci_job_id, coverage_format, coverage_raw, status, error_message,
		created_at, updated_at
		FROM report WHERE repo_id = ? ORDER BY updated_at DESC`

	insertReportQuery = `INSERT INTO report
		(repo_id, repo_name, branch, base_branch, commit, base_commit, ci_provider, ci_pipeline_id,
		ci_job_id, coverage_format, coverage_raw, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateReportQuery = `UPDATE report SET repo_name = ?, commit = ?, ci_provider = ?, ci_pipeline_id = ?,
		ci_job_id = ?, coverage_format = ?, coverage_raw = ?, status = ?, error_message = ?, updated_at = ?
		WHERE id = ?`

	setReportStatusQuery = `UPDATE report SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`

	setBaseCommitQuery = `UPDATE report SET base_branch = ?, base_commit = ?, updated_at = ? WHERE id = ?`

	findFileQuery = `SELECT id, repo_id, branch, file_path, created_at, updated_at
		FROM file WHERE repo_id = ? AND branch = ? AND file_path = ?`

	insertFileQuery = `INSERT INTO file (repo_id, branch, file_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	touchFileQuery = `UPDATE file SET updated_at = ? WHERE id = ?`

	listFilesQuery = `SELECT id, repo_id, branch, file_path, created_at, updated_at
		FROM file WHERE repo_id = ? AND branch = ? ORDER BY file_path`

	deleteRangesQuery = `DELETE FROM coverage_range WHERE file_id = ?`

	insertRangeQuery = `INSERT INTO coverage_range
		(file_id, start_line, start_col, end_line, end_col, statements, hit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	rangesForFileQuery = `SELECT id, file_id, start_line, start_col, end_line, end_col, statements, hit, created_at
		FROM coverage_range WHERE file_id = ? ORDER BY start_line, start_col`

	getConfigQuery = `SELECT id, repo_id, repo_name, repo_url, repo_type, base_branch, exclude_dirs,
		exclude_files, created_at, updated_at
		FROM repo_config WHERE repo_id = ?`

	insertConfigQuery = `INSERT INTO repo_config
		(repo_id, repo_name, repo_url, repo_type, base_branch, exclude_dirs, exclude_files, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateConfigQuery = `UPDATE repo_config SET repo_name = ?, repo_url = ?, repo_type = ?, base_branch = ?,
		exclude_dirs = ?, exclude_files = ?, updated_at = ? WHERE repo_id = ?`
)

// SQLStore implements core.CoverageStore on a MySQL database.
type SQLStore struct {
	db     *sqlx.DB
	logger lumber.Logger
}

// Connect opens the database and verifies connectivity.
func Connect(ctx context.Context, dsn string, logger lumber.Logger) (*SQLStore, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, &errs.StoreError{Op: "connect", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, &errs.StoreError{Op: "ping", Err: err}
	}
	return NewSQLStore(db, logger), nil
}

// NewSQLStore wraps an existing database handle.
func NewSQLStore(db *sqlx.DB, logger lumber.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// ApplySnapshot replaces the coverage of a (repoID, branch) pair with the
// snapshot wholesale. Re-applying the same snapshot leaves the stored data
// unchanged apart from timestamps.
func (s *SQLStore) ApplySnapshot(ctx context.Context, snap *core.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &errs.StoreError{Op: "begin", Err: err}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Errorf("rollback failed for %s/%s: %v", snap.Envelope.RepoID, snap.Envelope.Branch, rbErr)
			}
		}
	}()

	now := time.Now().Unix()
	env := &snap.Envelope

	reportID, err := s.upsertReport(ctx, tx, env, now)
	if err != nil {
		return err
	}

	for path, ranges := range snap.Ranges {
		if err = s.replaceFileRanges(ctx, tx, env.RepoID, env.Branch, path, ranges, now); err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, setReportStatusQuery, core.StatusCompleted, "", now, reportID); err != nil {
		err = &errs.StoreError{Op: "complete report", Err: err}
		return err
	}
	if err = tx.Commit(); err != nil {
		err = &errs.StoreError{Op: "commit", Err: err}
		return err
	}
	return nil
}

func (s *SQLStore) upsertReport(ctx context.Context, tx *sqlx.Tx, env *core.Envelope, now int64) (int64, error) {
	var report core.Report
	err := tx.GetContext(ctx, &report, findReportForUpdateQuery, env.RepoID, env.Branch)
	switch {
	case err == sql.ErrNoRows:
		res, insErr := tx.ExecContext(ctx, insertReportQuery,
			env.RepoID, env.Repo, env.Branch, "", env.Commit, "",
			env.CI.Provider, env.CI.PipelineID, env.CI.JobID,
			env.Coverage.Format, env.Coverage.Raw, core.StatusProcessing, "", now, now)
		if insErr != nil {
			return 0, &errs.StoreError{Op: "insert report", Err: insErr}
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return 0, &errs.StoreError{Op: "insert report", Err: idErr}
		}
		return id, nil
	case err != nil:
		return 0, &errs.StoreError{Op: "find report", Err: err}
	}

	if _, err := tx.ExecContext(ctx, updateReportQuery,
		env.Repo, env.Commit, env.CI.Provider, env.CI.PipelineID, env.CI.JobID,
		env.Coverage.Format, env.Coverage.Raw, core.StatusProcessing, "", now, report.ID); err != nil {
		return 0, &errs.StoreError{Op: "update report", Err: err}
	}
	return report.ID, nil
}

func (s *SQLStore) replaceFileRanges(ctx context.Context, tx *sqlx.Tx,
	repoID, branch, path string, ranges []core.Range, now int64) error {
	var file core.File
	err := tx.GetContext(ctx, &file, findFileQuery, repoID, branch, path)
	switch {
	case err == sql.ErrNoRows:
		res, insErr := tx.ExecContext(ctx, insertFileQuery, repoID, branch, path, now, now)
		if insErr != nil {
			return &errs.StoreError{Op: "insert file", Err: insErr}
		}
		file.ID, insErr = res.LastInsertId()
		if insErr != nil {
			return &errs.StoreError{Op: "insert file", Err: insErr}
		}
	case err != nil:
		return &errs.StoreError{Op: "find file", Err: err}
	default:
		if _, err := tx.ExecContext(ctx, touchFileQuery, now, file.ID); err != nil {
			return &errs.StoreError{Op: "touch file", Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx, deleteRangesQuery, file.ID); err != nil {
		return &errs.StoreError{Op: "delete ranges", Err: err}
	}
	for _, r := range ranges {
		if _, err := tx.ExecContext(ctx, insertRangeQuery,
			file.ID, r.StartLine, r.StartCol, r.EndLine, r.EndCol, r.Statements, r.Hit, now); err != nil {
			return &errs.StoreError{Op: "insert range", Err: err}
		}
	}
	return nil
}

// FindReport returns the current report for a (repoID, branch) pair.
func (s *SQLStore) FindReport(ctx context.Context, repoID, branch string) (*core.Report, error) {
	var report core.Report
	if err := s.db.GetContext(ctx, &report, findReportQuery, repoID, branch); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrReportNotFound
		}
		return nil, &errs.StoreError{Op: "find report", Err: err}
	}
	return &report, nil
}

// GetReport returns a report by primary key.
func (s *SQLStore) GetReport(ctx context.Context, id int64) (*core.Report, error) {
	var report core.Report
	if err := s.db.GetContext(ctx, &report, getReportQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrReportNotFound
		}
		return nil, &errs.StoreError{Op: "get report", Err: err}
	}
	return &report, nil
}

// ListReports returns all reports of a repository, most recent first.
func (s *SQLStore) ListReports(ctx context.Context, repoID string) ([]core.Report, error) {
	reports := []core.Report{}
	if err := s.db.SelectContext(ctx, &reports, listReportsQuery, repoID); err != nil {
		return nil, &errs.StoreError{Op: "list reports", Err: err}
	}
	return reports, nil
}

// ListFiles returns the covered files of a (repoID, branch) pair.
func (s *SQLStore) ListFiles(ctx context.Context, repoID, branch string) ([]core.File, error) {
	files := []core.File{}
	if err := s.db.SelectContext(ctx, &files, listFilesQuery, repoID, branch); err != nil {
		return nil, &errs.StoreError{Op: "list files", Err: err}
	}
	return files, nil
}

// RangesForFile returns a file's ranges sorted by position.
func (s *SQLStore) RangesForFile(ctx context.Context, fileID int64) ([]core.Range, error) {
	ranges := []core.Range{}
	if err := s.db.SelectContext(ctx, &ranges, rangesForFileQuery, fileID); err != nil {
		return nil, &errs.StoreError{Op: "ranges for file", Err: err}
	}
	return ranges, nil
}

// SetBaseCommit persists the resolved baseline onto a report.
func (s *SQLStore) SetBaseCommit(ctx context.Context, reportID int64, baseBranch, baseCommit string) error {
	if _, err := s.db.ExecContext(ctx, setBaseCommitQuery, baseBranch, baseCommit, time.Now().Unix(), reportID); err != nil {
		return &errs.StoreError{Op: "set base commit", Err: err}
	}
	return nil
}

// GetConfig returns the per-repository policy.
func (s *SQLStore) GetConfig(ctx context.Context, repoID string) (*core.RepoConfig, error) {
	var cfg core.RepoConfig
	if err := s.db.GetContext(ctx, &cfg, getConfigQuery, repoID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrConfigNotFound
		}
		return nil, &errs.StoreError{Op: "get config", Err: err}
	}
	return &cfg, nil
}

// SaveConfig inserts or updates the per-repository policy.
func (s *SQLStore) SaveConfig(ctx context.Context, cfg *core.RepoConfig) error {
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, updateConfigQuery,
		cfg.RepoName, cfg.RepoURL, cfg.RepoType, cfg.BaseBranch,
		cfg.ExcludeDirs, cfg.ExcludeFiles, now, cfg.RepoID)
	if err != nil {
		return &errs.StoreError{Op: "update config", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &errs.StoreError{Op: "update config", Err: err}
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, insertConfigQuery,
		cfg.RepoID, cfg.RepoName, cfg.RepoURL, cfg.RepoType, cfg.BaseBranch,
		cfg.ExcludeDirs, cfg.ExcludeFiles, now, now); err != nil {
		return &errs.StoreError{Op: "insert config", Err: err}
	}
	return nil
}
