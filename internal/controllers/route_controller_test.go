package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"gpx_viewer/internal/models"
	"gpx_viewer/internal/storage"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, rec
}

func TestParseBounds(t *testing.T) {
	cases := []struct {
		query string
		want  *models.Bounds
	}{
		{"north=10&south=0&east=20&west=5", &models.Bounds{North: 10, South: 0, East: 20, West: 5}},
		{"north=-1.5&south=-3&east=0&west=-0.5", &models.Bounds{North: -1.5, South: -3, East: 0, West: -0.5}},
		{"north=10&south=0&east=20", nil},
		{"north=10&south=0&east=20&west=", nil},
		{"north=ten&south=0&east=20&west=5", nil},
		{"", nil},
	}
	for _, tc := range cases {
		c, _ := testContext("/api/routes?" + tc.query)
		assert.Equal(t, tc.want, parseBounds(c), tc.query)
	}
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		code int
		body string
	}{
		{&storage.ValidationError{Field: "name", Reason: "route name cannot be empty"}, http.StatusBadRequest, `{"error": "invalid name: route name cannot be empty"}`},
		{storage.ErrNotFound, http.StatusNotFound, `{"error": "File not found"}`},
		{fmt.Errorf("lookup: %w", storage.ErrNotFound), http.StatusNotFound, `{"error": "File not found"}`},
		{storage.ErrVersionImmutable, http.StatusConflict, `{"error": "Version snapshots cannot be modified"}`},
		{errors.New("disk on fire"), http.StatusInternalServerError, `{"error": "Failed to update route"}`},
	}
	for _, tc := range cases {
		c, rec := testContext("/api/route/x.gpx")
		respondError(c, "Test", tc.err, "Failed to update route")
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.JSONEq(t, tc.body, rec.Body.String())
	}
}
