package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideway/internal/http/middleware"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/matching"
	"rideway/internal/types"
)

type DriverHandler struct {
	bookings *booking.Service
	matching *matching.Service
}

func NewDriverHandler(bookings *booking.Service, matchingSvc *matching.Service) *DriverHandler {
	return &DriverHandler{bookings: bookings, matching: matchingSvc}
}

// ListAvailable returns open bookings near the driver, nearest first.
func (h *DriverHandler) ListAvailable(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil || !validCoordinates(lat, lng) {
		writeError(c, http.StatusBadRequest, "invalid coordinates")
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	offers, err := h.matching.AvailableBookings(c.Request.Context(), middleware.Caller(c),
		types.Point{Lat: lat, Lng: lng}, radius, limit)
	if err != nil {
		writeMatchingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offers": offers})
}

func (h *DriverHandler) Accept(c *gin.Context) {
	b, err := h.bookings.Assign(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *DriverHandler) ListRides(c *gin.Context) {
	limit, offset := pagination(c)
	out, err := h.bookings.ListForDriver(c.Request.Context(), middleware.Caller(c), booking.ListFilter{
		Status: booking.Status(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"bookings": out})
}

type locationReq struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	BookingID string  `json:"booking_id"`
}

// UpdateLocation refreshes the driver's position in the matching index
// and, when a booking is underway, appends to its route trace.
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !validCoordinates(req.Lat, req.Lng) {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}
	pos := types.Point{Lat: req.Lat, Lng: req.Lng}
	ident := middleware.Caller(c)

	if err := h.matching.GoOnline(c.Request.Context(), ident, pos); err != nil {
		writeMatchingError(c, err)
		return
	}
	if req.BookingID != "" {
		if err := h.bookings.AppendLocation(c.Request.Context(), ident, types.ID(req.BookingID), pos); err != nil {
			writeBookingError(c, err)
			return
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"online": true})
}

func (h *DriverHandler) GoOffline(c *gin.Context) {
	if err := h.matching.GoOffline(c.Request.Context(), middleware.Caller(c)); err != nil {
		writeMatchingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"online": false})
}

func (h *DriverHandler) Earnings(c *gin.Context) {
	period := c.DefaultQuery("period", "month")
	e, since, err := h.bookings.EarningsFor(c.Request.Context(), middleware.Caller(c), period)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"period": period, "since": since, "earnings": e})
}

// NearbyDrivers reports online drivers around a point, for the rider's
// pre-booking screen.
func (h *DriverHandler) NearbyDrivers(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil || !validCoordinates(lat, lng) {
		writeError(c, http.StatusBadRequest, "invalid coordinates")
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	out, err := h.matching.NearbyDrivers(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radius, limit)
	if err != nil {
		writeMatchingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": out})
}
