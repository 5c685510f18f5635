package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gpx_viewer/internal/geocoding"
	"gpx_viewer/internal/middleware"
	"gpx_viewer/internal/models"
	"gpx_viewer/internal/storage"
)

type fakeGeocoder struct {
	queries []string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, query string) []geocoding.Result {
	f.queries = append(f.queries, query)
	return []geocoding.Result{{Lat: 46.95, Lon: 7.45, DisplayName: "Bern, Schweiz"}}
}

func (f *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) *geocoding.Result {
	if lat == 0 && lon == 0 {
		return nil
	}
	return &geocoding.Result{Lat: lat, Lon: lon, DisplayName: "Somewhere"}
}

type testServer struct {
	router   *gin.Engine
	repo     *storage.RouteRepository
	geocoder *fakeGeocoder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	log, _ := test.NewNullLogger()
	repo, err := storage.NewRouteRepository(filepath.Join(dir, "gpx"), filepath.Join(dir, "metadata.json"), storage.WithLogger(log))
	require.NoError(t, err)

	geocoder := &fakeGeocoder{}
	return &testServer{
		router:   SetupRouter(Deps{Repo: repo, Geocoder: geocoder}),
		repo:     repo,
		geocoder: geocoder,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func (s *testServer) create(t *testing.T, name string) models.Route {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/routes", gin.H{
		"name":      name,
		"waypoints": [][]float64{{46.0, 7.0}, {46.1, 7.1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var route models.Route
	decode(t, rec, &route)
	return route
}

func TestCreateAndGetRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/routes", gin.H{
		"name":        "Morning Ride",
		"type":        "gravel",
		"description": "Before work",
		"waypoints":   []interface{}{[]interface{}{46.0, 7.0, "Home"}, gin.H{"lat": 46.1, "lng": 7.1, "name": "Office"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var created models.Route
	decode(t, rec, &created)
	assert.Regexp(t, `^morning_ride_[0-9a-f]{8}\.gpx$`, created.Filename)
	assert.Equal(t, "gravel", created.RouteType)
	assert.Equal(t, "Home", created.Waypoints[0].Label)
	assert.Equal(t, "Office", created.Waypoints[1].Label)

	rec = s.do(t, http.MethodGet, "/api/route/"+created.Filename, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]interface{}
	decode(t, rec, &raw)
	assert.Equal(t, "Morning Ride", raw["name"])
	assert.Equal(t, "Before work", raw["description"])
	assert.Equal(t, false, raw["isFavorite"])
	assert.Equal(t, []interface{}{46.0, 7.0, "Home"}, raw["waypoints"].([]interface{})[0])
	assert.Contains(t, raw["stats"], "distanceKm")
}

func TestCreateRouteRejects(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]gin.H{
		"missing name": {"waypoints": [][]float64{{1, 2}, {3, 4}}},
		"blank name":   {"name": "   ", "waypoints": [][]float64{{1, 2}, {3, 4}}},
		"one waypoint": {"name": "X", "waypoints": [][]float64{{1, 2}}},
		"no waypoints": {"name": "X"},
		"bad waypoint": {"name": "X", "waypoints": []interface{}{"north", "south"}},
		"wrong type":   {"name": 12, "waypoints": [][]float64{{1, 2}, {3, 4}}},
	}
	for name, body := range cases {
		rec := s.do(t, http.MethodPost, "/api/routes", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)

		var resp map[string]string
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp["error"], name)
	}

	count, err := s.repo.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetRouteErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/route/missing.gpx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/route/..%2Fmetadata.json", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.WriteFile(filepath.Join(s.repo.Dir(), "broken.gpx"), []byte("<gpx"), 0o644))
	rec = s.do(t, http.MethodGet, "/api/route/broken.gpx", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to parse GPX file"}`, rec.Body.String())
}

func TestListRoutes(t *testing.T) {
	s := newTestServer(t)
	s.create(t, "Alps")

	rec := s.do(t, http.MethodPost, "/api/routes", gin.H{
		"name":      "Far away",
		"waypoints": [][]float64{{-33.9, 18.4}, {-33.8, 18.5}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Routes []models.Route `json:"routes"`
		Total  int            `json:"total"`
	}

	rec = s.do(t, http.MethodGet, "/api/routes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Total)

	rec = s.do(t, http.MethodGet, "/api/routes?north=47&south=45&east=8&west=6", nil)
	decode(t, rec, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Alps", resp.Routes[0].Name)

	// partial bounds are ignored
	rec = s.do(t, http.MethodGet, "/api/routes?north=47&south=45", nil)
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Total)
}

func TestListRoutesEmpty(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/routes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"routes": [], "total": 0}`, rec.Body.String())
}

func TestUpdateRoute(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Before")

	rec := s.do(t, http.MethodPut, "/api/route/"+route.Filename, gin.H{
		"name":      "After",
		"waypoints": [][]float64{{46.0, 7.0}, {46.2, 7.2}, {46.3, 7.3}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Route
	decode(t, rec, &updated)
	assert.Equal(t, "After", updated.Name)
	assert.Len(t, updated.Tracks[0], 3)
	assert.Empty(t, updated.Versions)

	rec = s.do(t, http.MethodPut, "/api/route/missing.gpx", gin.H{"waypoints": [][]float64{{1, 2}, {3, 4}}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/route/"+route.Filename, gin.H{"waypoints": [][]float64{{1, 2}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/route/"+route.Filename, gin.H{"name": "", "waypoints": [][]float64{{1, 2}, {3, 4}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRouteWithVersion(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Versioned")

	rec := s.do(t, http.MethodPut, "/api/route/"+route.Filename, gin.H{
		"waypoints":     [][]float64{{45.0, 6.0}, {45.5, 6.5}},
		"createVersion": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Route
	decode(t, rec, &updated)
	require.Len(t, updated.Versions, 1)
	assert.Equal(t, 1, updated.VersionCount)

	// the snapshot holds the pre-update geometry
	rec = s.do(t, http.MethodGet, "/api/route/"+updated.Versions[0].Filename, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var version models.Route
	decode(t, rec, &version)
	assert.Equal(t, route.Tracks, version.Tracks)
	assert.True(t, version.IsVersion)

	// versions are read-only
	rec = s.do(t, http.MethodPut, "/api/route/"+version.Filename, gin.H{"waypoints": [][]float64{{1, 2}, {3, 4}}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/route/"+version.Filename+"/favorite", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVersionsEndpoints(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Snapshots")

	rec := s.do(t, http.MethodPost, "/api/route/"+route.Filename+"/versions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	decode(t, rec, &created)
	assert.Regexp(t, `_v_\d{8}_\d{6}(_\d+)?\.gpx$`, created["filename"])

	rec = s.do(t, http.MethodGet, "/api/route/"+route.Filename+"/versions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Versions []models.VersionSnapshot `json:"versions"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Versions, 1)
	assert.Equal(t, created["filename"], resp.Versions[0].Filename)
	assert.Equal(t, route.Filename, resp.Versions[0].OriginalFile)

	rec = s.do(t, http.MethodGet, "/api/route/unknown.gpx/versions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"versions": []}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/route/unknown.gpx/versions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// versions stay out of the list
	rec = s.do(t, http.MethodGet, "/api/routes", nil)
	var list struct {
		Routes []models.Route `json:"routes"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Routes, 1)
	assert.Equal(t, 1, list.Routes[0].VersionCount)
}

func TestDeleteRoute(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Doomed")
	rec := s.do(t, http.MethodPost, "/api/route/"+route.Filename+"/versions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/route/"+route.Filename, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Route `+route.Filename+` deleted"}`, rec.Body.String())

	entries, err := os.ReadDir(s.repo.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, s.repo.Metadata().ReadAll())

	rec = s.do(t, http.MethodDelete, "/api/route/"+route.Filename, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleFavorite(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Loved")

	rec := s.do(t, http.MethodPost, "/api/route/"+route.Filename+"/favorite", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"filename": "`+route.Filename+`", "isFavorite": true}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/route/"+route.Filename+"/favorite", nil)
	assert.JSONEq(t, `{"filename": "`+route.Filename+`", "isFavorite": false}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/route/missing.gpx/favorite", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadGPX(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Export")

	rec := s.do(t, http.MethodGet, "/api/route/"+route.Filename+"/gpx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gpx+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), route.Filename)
	assert.Contains(t, rec.Body.String(), "<gpx")

	rec = s.do(t, http.MethodGet, "/api/route/missing.gpx/gpx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetGeoJSON(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Shape")

	rec := s.do(t, http.MethodGet, "/api/route/"+route.Filename+"/geojson", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	decode(t, rec, &fc)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Point", fc.Features[1].Geometry.Type)
}

func TestGeocode(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/geocode?q=Bern", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []geocoding.Result `json:"results"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Bern, Schweiz", resp.Results[0].DisplayName)
	assert.Equal(t, []string{"Bern"}, s.geocoder.queries)

	rec = s.do(t, http.MethodGet, "/api/geocode?q=%20%20", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/geocode", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReverseGeocode(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/geocode/reverse?lat=46.5&lon=7.25", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]*geocoding.Result
	decode(t, rec, &resp)
	require.NotNil(t, resp["result"])
	assert.Equal(t, "Somewhere", resp["result"].DisplayName)

	rec = s.do(t, http.MethodGet, "/api/geocode/reverse?lat=0&lon=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result": null}`, rec.Body.String())

	for _, q := range []string{"lat=abc&lon=1", "lat=1", "lat=91&lon=0", "lat=0&lon=181"} {
		rec = s.do(t, http.MethodGet, "/api/geocode/reverse?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	route := s.create(t, "Healthy")
	rec := s.do(t, http.MethodPost, "/api/route/"+route.Filename+"/versions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "healthy", "gpxFolderExists": true, "routesCount": 1}`, rec.Body.String())
}

func TestUnknownEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "Endpoint not found"}`, rec.Body.String())
}
