package api

import (
	"github.com/gin-gonic/gin"

	"github.com/coverhub/coverhub/pkg/api/health"
	"github.com/coverhub/coverhub/pkg/api/repoconfig"
	"github.com/coverhub/coverhub/pkg/api/reports"
	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/lumber"
)

// Router for the coverage query API
type Router struct {
	logger lumber.Logger
	store  core.CoverageStore
	diff   core.DiffEngine
}

// NewRouter returns instance of Router
func NewRouter(logger lumber.Logger, store core.CoverageStore, diff core.DiffEngine) Router {
	return Router{
		logger: logger,
		store:  store,
		diff:   diff,
	}
}

// Handler function will perform all route operations
func (r Router) Handler() *gin.Engine {
	r.logger.Infof("Setting up routes")
	router := gin.Default()

	router.GET("/health", health.Handler)

	v1 := router.Group("/api/v1/coverage")
	v1.GET("/reports", reports.ListHandler(r.logger, r.store))
	v1.GET("/reports/:id", reports.DetailHandler(r.logger, r.store))
	v1.GET("/reports/:id/diff", reports.DiffHandler(r.logger, r.store, r.diff))
	v1.GET("/files", reports.FilesHandler(r.logger, r.store))
	v1.GET("/config/:repoID", repoconfig.GetHandler(r.logger, r.store))
	v1.PUT("/config/:repoID", repoconfig.PutHandler(r.logger, r.store))

	return router
}
