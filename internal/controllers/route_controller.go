package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gpx_viewer/internal/geometry"
	"gpx_viewer/internal/middleware"
	"gpx_viewer/internal/models"
	"gpx_viewer/internal/storage"
)

// RouteController serves the route, version and export endpoints.
type RouteController struct {
	repo *storage.RouteRepository
}

func NewRouteController(repo *storage.RouteRepository) *RouteController {
	return &RouteController{repo: repo}
}

type createRouteInput struct {
	Name        string            `json:"name" binding:"required"`
	Waypoints   []models.Waypoint `json:"waypoints" binding:"required,min=2"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
}

type updateRouteInput struct {
	Waypoints     []models.Waypoint `json:"waypoints" binding:"required,min=2"`
	Name          *string           `json:"name"`
	Description   *string           `json:"description"`
	CreateVersion bool              `json:"createVersion"`
}

// requestLog tags log entries with the request id.
func requestLog(c *gin.Context) *logrus.Entry {
	return logrus.WithField("request_id", middleware.GetRequestID(c))
}

// respondError maps repository errors to HTTP statuses. Storage faults are
// logged and answered with the generic fallback message.
func respondError(c *gin.Context, op string, err error, fallback string) {
	var verr *storage.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	case errors.Is(err, storage.ErrVersionImmutable):
		c.JSON(http.StatusConflict, gin.H{"error": "Version snapshots cannot be modified"})
	default:
		requestLog(c).WithError(err).WithField("filename", c.Param("filename")).Error(op + ": " + fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// parseBounds returns the query box only when all four edges are present
// and numeric.
func parseBounds(c *gin.Context) *models.Bounds {
	var edges [4]float64
	for i, key := range []string{"north", "south", "east", "west"} {
		v, err := strconv.ParseFloat(c.Query(key), 64)
		if err != nil {
			return nil
		}
		edges[i] = v
	}
	return &models.Bounds{North: edges[0], South: edges[1], East: edges[2], West: edges[3]}
}

// ListRoutes returns every live route, optionally filtered by a bounding box.
func (rc *RouteController) ListRoutes(c *gin.Context) {
	routes, err := rc.repo.List(parseBounds(c))
	if err != nil {
		requestLog(c).WithError(err).Error("ListRoutes: failed to load routes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load routes", "routes": []models.Route{}, "total": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes, "total": len(routes)})
}

// GetRoute returns one route with its version history.
func (rc *RouteController) GetRoute(c *gin.Context) {
	route, err := rc.repo.Get(c.Param("filename"))
	if err != nil {
		if errors.Is(err, storage.ErrUnreadable) {
			requestLog(c).WithError(err).Warn("GetRoute: unreadable GPX file")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse GPX file"})
			return
		}
		respondError(c, "GetRoute", err, "Failed to load route")
		return
	}
	c.JSON(http.StatusOK, route)
}

// CreateRoute stores a new route built from the submitted waypoints.
func (rc *RouteController) CreateRoute(c *gin.Context) {
	var input createRouteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		requestLog(c).WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	route, err := rc.repo.Create(storage.NewRoute{
		Name:        input.Name,
		Waypoints:   input.Waypoints,
		RouteType:   input.Type,
		Description: input.Description,
	})
	if err != nil {
		respondError(c, "CreateRoute", err, "Could not save route to server")
		return
	}
	c.JSON(http.StatusCreated, route)
}

// UpdateRoute replaces a route's geometry and patches name and description.
// With createVersion set, the pre-update state is snapshotted first.
func (rc *RouteController) UpdateRoute(c *gin.Context) {
	filename := c.Param("filename")
	if _, err := rc.repo.FilePath(filename); err != nil {
		respondError(c, "UpdateRoute", err, "Failed to update route")
		return
	}

	var input updateRouteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		requestLog(c).WithError(err).Warn("UpdateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	if input.CreateVersion {
		if _, err := rc.snapshot(filename); err != nil {
			respondError(c, "UpdateRoute", err, "Failed to create version backup")
			return
		}
	}

	route, err := rc.repo.Update(filename, input.Waypoints, input.Name, input.Description)
	if err != nil {
		respondError(c, "UpdateRoute", err, "Failed to update route")
		return
	}
	c.JSON(http.StatusOK, route)
}

// DeleteRoute removes a route and its version snapshots.
func (rc *RouteController) DeleteRoute(c *gin.Context) {
	filename := c.Param("filename")
	if err := rc.repo.Delete(filename); err != nil {
		respondError(c, "DeleteRoute", err, "Failed to delete route")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Route %s deleted", filename)})
}

// ToggleFavorite flips the favorite flag of a route.
func (rc *RouteController) ToggleFavorite(c *gin.Context) {
	state, err := rc.repo.ToggleFavorite(c.Param("filename"))
	if err != nil {
		respondError(c, "ToggleFavorite", err, "Failed to update route")
		return
	}
	c.JSON(http.StatusOK, state)
}

// ListVersions returns the snapshots of a route, newest first.
func (rc *RouteController) ListVersions(c *gin.Context) {
	versions, err := rc.repo.ListVersions(c.Param("filename"))
	if err != nil {
		respondError(c, "ListVersions", err, "Failed to load versions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// CreateVersion snapshots the current state of a route.
func (rc *RouteController) CreateVersion(c *gin.Context) {
	versionFile, err := rc.snapshot(c.Param("filename"))
	if err != nil {
		respondError(c, "CreateVersion", err, "Failed to create version backup")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"filename": versionFile})
}

func (rc *RouteController) snapshot(filename string) (string, error) {
	current, err := rc.repo.Get(filename)
	if err != nil {
		return "", err
	}
	return rc.repo.SnapshotVersion(filename, current)
}

// DownloadGPX streams the stored GPX file as an attachment.
func (rc *RouteController) DownloadGPX(c *gin.Context) {
	filename := c.Param("filename")
	p, err := rc.repo.FilePath(filename)
	if err != nil {
		respondError(c, "DownloadGPX", err, "Failed to load route")
		return
	}
	c.Header("Content-Type", "application/gpx+xml")
	c.FileAttachment(p, filename)
}

// GetGeoJSON renders a route as a GeoJSON FeatureCollection.
func (rc *RouteController) GetGeoJSON(c *gin.Context) {
	route, err := rc.repo.Get(c.Param("filename"))
	if err != nil {
		if errors.Is(err, storage.ErrUnreadable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse GPX file"})
			return
		}
		respondError(c, "GetGeoJSON", err, "Failed to load route")
		return
	}
	c.JSON(http.StatusOK, geometry.ToFeatureCollection(route))
}
