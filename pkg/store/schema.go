package store

import (
	"context"

	"github.com/coverhub/coverhub/pkg/errs"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS report (
		id BIGINT NOT NULL AUTO_INCREMENT,
		repo_id VARCHAR(64) NOT NULL,
		repo_name VARCHAR(512) NOT NULL DEFAULT '',
		branch VARCHAR(255) NOT NULL,
		base_branch VARCHAR(255) NOT NULL DEFAULT '',
		commit VARCHAR(64) NOT NULL DEFAULT '',
		base_commit VARCHAR(64) NOT NULL DEFAULT '',
		ci_provider VARCHAR(64) NOT NULL DEFAULT '',
		ci_pipeline_id VARCHAR(128) NOT NULL DEFAULT '',
		ci_job_id VARCHAR(128) NOT NULL DEFAULT '',
		coverage_format VARCHAR(16) NOT NULL DEFAULT '',
		coverage_raw MEDIUMTEXT,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		error_message TEXT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_report_repo_branch (repo_id, branch)
	)`,
	`CREATE TABLE IF NOT EXISTS file (
		id BIGINT NOT NULL AUTO_INCREMENT,
		repo_id VARCHAR(64) NOT NULL,
		branch VARCHAR(255) NOT NULL,
		file_path VARCHAR(1024) NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_file_repo_branch_path (repo_id, branch, file_path(255))
	)`,
	`CREATE TABLE IF NOT EXISTS coverage_range (
		id BIGINT NOT NULL AUTO_INCREMENT,
		file_id BIGINT NOT NULL,
		start_line INT NOT NULL,
		start_col INT NOT NULL,
		end_line INT NOT NULL,
		end_col INT NOT NULL,
		statements INT NOT NULL,
		hit INT NOT NULL,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		KEY idx_range_file (file_id)
	)`,
	`CREATE TABLE IF NOT EXISTS repo_config (
		id BIGINT NOT NULL AUTO_INCREMENT,
		repo_id VARCHAR(64) NOT NULL,
		repo_name VARCHAR(512) NOT NULL DEFAULT '',
		repo_url VARCHAR(1024) NOT NULL DEFAULT '',
		repo_type VARCHAR(32) NOT NULL DEFAULT '',
		base_branch VARCHAR(255) NOT NULL DEFAULT 'master',
		exclude_dirs TEXT,
		exclude_files TEXT,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_config_repo (repo_id)
	)`,
}

// Migrate creates the tables when they do not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &errs.StoreError{Op: "migrate", Err: err}
		}
	}
	return nil
}
