// Package reports serves the coverage query endpoints.
package reports

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
	"github.com/coverhub/coverhub/pkg/stats"
)

// ListHandler returns a repository's reports with their statistics.
func ListHandler(logger lumber.Logger, store core.CoverageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		repoID := c.Query("repo_id")
		if repoID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "repo_id query parameter is required"})
			return
		}
		reportList, err := store.ListReports(c.Request.Context(), repoID)
		if err != nil {
			logger.Errorf("listing reports for repo %s failed: %v", repoID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
			return
		}

		matcher := matcherFor(c.Request.Context(), store, repoID)
		items := make([]gin.H, 0, len(reportList))
		for i := range reportList {
			statistics, _, err := reportStatistics(c.Request.Context(), store, &reportList[i], matcher)
			if err != nil {
				logger.Errorf("aggregating report %d failed: %v", reportList[i].ID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
				return
			}
			items = append(items, gin.H{"report": reportList[i], "statistics": statistics})
		}
		c.JSON(http.StatusOK, gin.H{"reports": items})
	}
}

// DetailHandler returns one report with statistics and per-file summaries.
func DetailHandler(logger lumber.Logger, store core.CoverageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := fetchReport(c, logger, store)
		if !ok {
			return
		}
		matcher := matcherFor(c.Request.Context(), store, report.RepoID)
		statistics, files, err := reportStatistics(c.Request.Context(), store, report, matcher)
		if err != nil {
			logger.Errorf("aggregating report %d failed: %v", report.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"report":     report,
			"statistics": statistics,
			"files":      files,
		})
	}
}

// FilesHandler lists per-file coverage summaries. The listing is scoped by
// report_id, or by repo_id with an optional branch falling back to the
// configured base branch. Files matching the repository's exclusions are
// filtered out.
func FilesHandler(logger lumber.Logger, store core.CoverageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var repoID, branch string
		if rawID := c.Query("report_id"); rawID != "" {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "invalid report_id"})
				return
			}
			report, err := store.GetReport(c.Request.Context(), id)
			if err != nil {
				if err == errs.ErrReportNotFound {
					c.JSON(http.StatusOK, gin.H{"files": []core.FileSummary{}, "total": 0})
					return
				}
				logger.Errorf("fetching report %d failed: %v", id, err)
				c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
				return
			}
			repoID, branch = report.RepoID, report.Branch
		} else {
			repoID = c.Query("repo_id")
			if repoID == "" {
				c.JSON(http.StatusBadRequest, gin.H{"message": "repo_id or report_id query parameter is required"})
				return
			}
			branch = c.Query("branch")
			if branch == "" {
				branch = configuredBaseBranch(c.Request.Context(), store, repoID)
			}
		}

		matcher := matcherFor(c.Request.Context(), store, repoID)
		byPath, err := rangesByPath(c.Request.Context(), store, repoID, branch)
		if err != nil {
			logger.Errorf("listing files for repo %s branch %s failed: %v", repoID, branch, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
			return
		}
		_, summaries := stats.Aggregate(byPath, matcher)
		c.JSON(http.StatusOK, gin.H{"files": summaries, "total": len(summaries)})
	}
}

// DiffHandler returns the incremental coverage of one report. When the
// baseline cannot be resolved the response degrades to full coverage with
// a 424 status instead of failing outright.
func DiffHandler(logger lumber.Logger, store core.CoverageStore, engine core.DiffEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := fetchReport(c, logger, store)
		if !ok {
			return
		}
		result, err := engine.Compute(c.Request.Context(), report)
		if err != nil {
			if errs.IsBaselineUnavailable(err) {
				logger.Warnf("baseline unavailable for report %d: %v", report.ID, err)
				matcher := matcherFor(c.Request.Context(), store, report.RepoID)
				statistics, _, aggErr := reportStatistics(c.Request.Context(), store, report, matcher)
				if aggErr != nil {
					logger.Errorf("aggregating report %d failed: %v", report.ID, aggErr)
					c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
					return
				}
				c.JSON(http.StatusFailedDependency, gin.H{
					"message":    err.Error(),
					"statistics": statistics,
				})
				return
			}
			logger.Errorf("diff computation for report %d failed: %v", report.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func fetchReport(c *gin.Context, logger lumber.Logger, store core.CoverageStore) (*core.Report, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid report id"})
		return nil, false
	}
	report, err := store.GetReport(c.Request.Context(), id)
	if err != nil {
		if err == errs.ErrReportNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
			return nil, false
		}
		logger.Errorf("fetching report %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
		return nil, false
	}
	return report, true
}

func matcherFor(ctx context.Context, store core.CoverageStore, repoID string) *stats.Matcher {
	cfg, err := store.GetConfig(ctx, repoID)
	if err != nil {
		return stats.NewMatcher(nil)
	}
	return stats.NewMatcher(cfg)
}

func configuredBaseBranch(ctx context.Context, store core.CoverageStore, repoID string) string {
	cfg, err := store.GetConfig(ctx, repoID)
	if err != nil || cfg.BaseBranch == "" {
		return global.DefaultBaseBranch
	}
	return cfg.BaseBranch
}

func rangesByPath(ctx context.Context, store core.CoverageStore,
	repoID, branch string) (map[string][]core.Range, error) {
	files, err := store.ListFiles(ctx, repoID, branch)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string][]core.Range, len(files))
	for i := range files {
		rs, err := store.RangesForFile(ctx, files[i].ID)
		if err != nil {
			return nil, err
		}
		byPath[files[i].Path] = rs
	}
	return byPath, nil
}

func reportStatistics(ctx context.Context, store core.CoverageStore,
	report *core.Report, matcher *stats.Matcher) (core.Statistics, []core.FileSummary, error) {
	byPath, err := rangesByPath(ctx, store, report.RepoID, report.Branch)
	if err != nil {
		return core.Statistics{}, nil, err
	}
	statistics, summaries := stats.Aggregate(byPath, matcher)
	return statistics, summaries, nil
}
