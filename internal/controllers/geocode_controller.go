package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gpx_viewer/internal/geocoding"
)

// Geocoder resolves place names and coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) []geocoding.Result
	Reverse(ctx context.Context, lat, lon float64) *geocoding.Result
}

type GeocodeController struct {
	geocoder Geocoder
}

func NewGeocodeController(g Geocoder) *GeocodeController {
	return &GeocodeController{geocoder: g}
}

// Search forwards ?q= to the geocoder. Lookup failures yield an empty list.
func (gc *GeocodeController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": gc.geocoder.Geocode(c.Request.Context(), query)})
}

// Reverse looks up the place at ?lat=&lon=. A miss yields a null result.
func (gc *GeocodeController) Reverse(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid 'lat' and 'lon' query parameters are required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": gc.geocoder.Reverse(c.Request.Context(), lat, lon)})
}
