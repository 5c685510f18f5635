package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gpx_viewer/internal/config"
	"gpx_viewer/internal/geocoding"
	"gpx_viewer/internal/logger"
	"gpx_viewer/internal/middleware"
	"gpx_viewer/internal/routes"
	"gpx_viewer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	if err := logger.Setup(logger.Options{File: cfg.LogFile, Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}
	gin.SetMode(cfg.GinMode)

	repo, err := storage.NewRouteRepository(cfg.GPXFolder, cfg.MetadataFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open route storage")
	}

	geocoder := geocoding.NewClient(geocoding.Options{
		BaseURL:   cfg.GeocoderURL,
		UserAgent: cfg.GeocoderUserAgent,
		Timeout:   cfg.GeocoderTimeout,
		Limit:     cfg.GeocoderLimit,
	}, logrus.StandardLogger())

	r := routes.SetupRouter(routes.Deps{Repo: repo, Geocoder: geocoder})

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	logrus.WithFields(logrus.Fields{
		"addr":       cfg.Addr,
		"gpx_folder": cfg.GPXFolder,
		"metadata":   cfg.MetadataFile,
	}).Info("Server running")
	logrus.Fatal(http.ListenAndServe(cfg.Addr, handler))
}
