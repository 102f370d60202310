package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func postJSON(t *testing.T, handler gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func TestQuote_RejectsUnknownVehicleType(t *testing.T) {
	h := NewBookingHandler(nil, nil, nil)
	w := postJSON(t, h.Quote, `{
		"pickup": {"lat": 40.7128, "lng": -74.0060},
		"destination": {"lat": 40.7306, "lng": -73.9352},
		"vehicle_type": "rickshaw"
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "vehicle_type must be one of")
	assert.Contains(t, w.Body.String(), "standard")
}

func TestQuote_IncludesDurationEstimate(t *testing.T) {
	h := NewBookingHandler(nil, nil, nil)
	w := postJSON(t, h.Quote, `{
		"pickup": {"lat": 40.7128, "lng": -74.0060},
		"destination": {"lat": 40.7306, "lng": -73.9352},
		"vehicle_type": "standard"
	}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"distance_km":6.3`)
	assert.Contains(t, w.Body.String(), `"duration_min":13`)
}

func TestCreate_RejectsUnknownVehicleType(t *testing.T) {
	h := NewBookingHandler(nil, nil, nil)
	w := postJSON(t, h.Create, `{
		"pickup": {"lat": 40.7128, "lng": -74.0060},
		"destination": {"lat": 40.7306, "lng": -73.9352},
		"vehicle_type": "hoverboard",
		"passengers": 1,
		"payment_method": "card"
	}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "vehicle_type must be one of")
}
