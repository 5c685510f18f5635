package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gpx_viewer/internal/storage"
)

type HealthController struct {
	repo *storage.RouteRepository
}

func NewHealthController(repo *storage.RouteRepository) *HealthController {
	return &HealthController{repo: repo}
}

// Health reports whether the GPX folder is present and how many live
// routes it holds.
func (hc *HealthController) Health(c *gin.Context) {
	count, err := hc.repo.Count()
	if err != nil {
		requestLog(c).WithError(err).Warn("Health: failed to count routes")
		count = 0
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"gpxFolderExists": hc.repo.FolderExists(),
		"routesCount":     count,
	})
}
