// Package repoconfig serves the administrative per-repository policy.
package repoconfig

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/lumber"
)

// GetHandler returns the policy of one repository.
func GetHandler(logger lumber.Logger, store core.CoverageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		repoID := c.Param("repoID")
		cfg, err := store.GetConfig(c.Request.Context(), repoID)
		if err != nil {
			if err == errs.ErrConfigNotFound {
				c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
				return
			}
			logger.Errorf("fetching config for repo %s failed: %v", repoID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
			return
		}
		c.JSON(http.StatusOK, cfg)
	}
}

// PutHandler creates or replaces the policy of one repository.
func PutHandler(logger lumber.Logger, store core.CoverageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := core.RepoConfig{}
		if err := c.ShouldBindJSON(&cfg); err != nil {
			logger.Errorf("error while binding json %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		cfg.RepoID = c.Param("repoID")
		if err := store.SaveConfig(c.Request.Context(), &cfg); err != nil {
			logger.Errorf("saving config for repo %s failed: %v", cfg.RepoID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": errs.GenericErrRemark.Error()})
			return
		}
		c.JSON(http.StatusOK, cfg)
	}
}
