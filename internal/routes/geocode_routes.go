package routes

import (
	"github.com/gin-gonic/gin"

	"gpx_viewer/internal/controllers"
)

func GeocodeRoutes(r *gin.Engine, gc *controllers.GeocodeController) {
	geocode := r.Group("/api/geocode")
	{
		geocode.GET("", gc.Search)
		geocode.GET("/reverse", gc.Reverse)
	}
}

func HealthRoutes(r *gin.Engine, hc *controllers.HealthController) {
	r.GET("/api/health", hc.Health)
}
