package routes

import (
	"github.com/gin-gonic/gin"

	"gpx_viewer/internal/controllers"
)

func RouteRoutes(r *gin.Engine, rc *controllers.RouteController) {
	api := r.Group("/api")
	{
		api.GET("/routes", rc.ListRoutes)
		api.POST("/routes", rc.CreateRoute)

		api.GET("/route/:filename", rc.GetRoute)
		api.PUT("/route/:filename", rc.UpdateRoute)
		api.DELETE("/route/:filename", rc.DeleteRoute)
		api.POST("/route/:filename/favorite", rc.ToggleFavorite)

		api.GET("/route/:filename/versions", rc.ListVersions)
		api.POST("/route/:filename/versions", rc.CreateVersion) // snapshot current state

		api.GET("/route/:filename/gpx", rc.DownloadGPX)
		api.GET("/route/:filename/geojson", rc.GetGeoJSON)
	}
}
