package routes

import (
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gpx_viewer/internal/controllers"
	"gpx_viewer/internal/middleware"
	"gpx_viewer/internal/storage"
)

// Deps holds the collaborators the HTTP layer is built on.
type Deps struct {
	Repo     *storage.RouteRepository
	Geocoder controllers.Geocoder
}

// SetupRouter assembles the gin engine with request ids, access logging,
// panic recovery and every API group.
func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(ginlog.SetLogger(
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/api/health"}),
		ginlog.WithLogger(func(c *gin.Context, l zerolog.Logger) zerolog.Logger {
			return l.With().Str("request_id", middleware.GetRequestID(c)).Logger()
		}),
	))
	r.Use(gin.Recovery())

	RouteRoutes(r, controllers.NewRouteController(deps.Repo))
	GeocodeRoutes(r, controllers.NewGeocodeController(deps.Geocoder))
	HealthRoutes(r, controllers.NewHealthController(deps.Repo))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	return r
}
