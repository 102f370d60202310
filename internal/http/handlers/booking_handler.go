package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rideway/internal/http/middleware"
	"rideway/internal/logger"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/geo"
	"rideway/internal/modules/payment"
	"rideway/internal/modules/pricing"
	"rideway/internal/types"
)

type BookingHandler struct {
	bookings *booking.Service
	payments *payment.Service
	log      logger.Logger
}

func NewBookingHandler(bookings *booking.Service, payments *payment.Service, log logger.Logger) *BookingHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &BookingHandler{bookings: bookings, payments: payments, log: log}
}

type stopReq struct {
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code"`
	Country      string  `json:"country"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	Instructions string  `json:"instructions"`
}

func (r stopReq) toStop() booking.Stop {
	return booking.Stop{
		Address:      r.Address,
		City:         r.City,
		State:        r.State,
		ZipCode:      r.ZipCode,
		Country:      r.Country,
		Coordinates:  types.Point{Lat: r.Lat, Lng: r.Lng},
		Instructions: r.Instructions,
	}
}

type createBookingReq struct {
	Pickup          stopReq   `json:"pickup"`
	Destination     stopReq   `json:"destination"`
	ScheduledTime   time.Time `json:"scheduled_time"`
	VehicleType     string    `json:"vehicle_type"`
	Passengers      int       `json:"passengers"`
	SpecialRequests string    `json:"special_requests"`
	PaymentMethod   string    `json:"payment_method"`
	SurgeMultiplier float64   `json:"surge_multiplier"`
	AppVersion      string    `json:"app_version"`
	Platform        string    `json:"platform"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !validCoordinates(req.Pickup.Lat, req.Pickup.Lng) || !validCoordinates(req.Destination.Lat, req.Destination.Lng) {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}
	if !pricing.ValidVehicleType(req.VehicleType) {
		writeError(c, http.StatusBadRequest, "vehicle_type must be one of: "+strings.Join(pricing.VehicleTypes(), ", "))
		return
	}

	b, err := h.bookings.Create(c.Request.Context(), middleware.Caller(c), booking.CreateCommand{
		Pickup:          req.Pickup.toStop(),
		Destination:     req.Destination.toStop(),
		ScheduledTime:   req.ScheduledTime,
		VehicleType:     req.VehicleType,
		Passengers:      req.Passengers,
		SpecialRequests: req.SpecialRequests,
		PaymentMethod:   req.PaymentMethod,
		SurgeMultiplier: req.SurgeMultiplier,
		Metadata: booking.Metadata{
			AppVersion: req.AppVersion,
			Platform:   req.Platform,
			IPAddress:  c.ClientIP(),
		},
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, b)
}

type quoteReq struct {
	Pickup      types.Point `json:"pickup"`
	Destination types.Point `json:"destination"`
	VehicleType string      `json:"vehicle_type"`
	Surge       float64     `json:"surge_multiplier"`
}

// Quote prices a trip without creating anything.
func (h *BookingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !validCoordinates(req.Pickup.Lat, req.Pickup.Lng) || !validCoordinates(req.Destination.Lat, req.Destination.Lng) {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}
	if !pricing.ValidVehicleType(req.VehicleType) {
		writeError(c, http.StatusBadRequest, "vehicle_type must be one of: "+strings.Join(pricing.VehicleTypes(), ", "))
		return
	}
	distance := geo.DistanceKm(req.Pickup, req.Destination)
	fare, err := pricing.Quote(distance, req.VehicleType, req.Surge)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(c, http.StatusOK, fare)
}

func (h *BookingHandler) List(c *gin.Context) {
	limit, offset := pagination(c)
	out, err := h.bookings.ListForRider(c.Request.Context(), middleware.Caller(c), booking.ListFilter{
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

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id")))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

type advanceReq struct {
	Status            string   `json:"status"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
	ActualDistanceKm  *float64 `json:"actual_distance_km"`
	ActualDurationMin *float64 `json:"actual_duration_min"`
	Reason            string   `json:"reason"`
}

func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := booking.AdvanceCommand{
		BookingID:         types.ID(c.Param("id")),
		Status:            booking.Status(req.Status),
		ActualDistanceKm:  req.ActualDistanceKm,
		ActualDurationMin: req.ActualDurationMin,
		Reason:            req.Reason,
	}
	if req.Lat != nil && req.Lng != nil {
		cmd.Location = &types.Point{Lat: *req.Lat, Lng: *req.Lng}
	}

	b, err := h.bookings.Advance(c.Request.Context(), middleware.Caller(c), cmd)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	// fare collection rides on completion; a declined card must not undo
	// the completed ride, so the charge outcome lands on the payment row
	if b.Status == booking.StatusCompleted && h.payments != nil {
		if _, err := h.payments.ChargeBooking(c.Request.Context(), b); err != nil {
			h.log.Warn("fare charge failed", logger.String("booking_id", string(b.ID)), logger.Error(err))
		}
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), middleware.Caller(c), booking.CancelCommand{
		BookingID: types.ID(c.Param("id")),
		Reason:    req.Reason,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BookingHandler) Rate(c *gin.Context) {
	var req struct {
		Stars   int    `json:"stars"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.bookings.Rate(c.Request.Context(), middleware.Caller(c), booking.RateCommand{
		BookingID: types.ID(c.Param("id")),
		Stars:     req.Stars,
		Comment:   req.Comment,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// Transactions lists the payment ledger for one booking the caller may see.
func (h *BookingHandler) Transactions(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if _, err := h.bookings.Get(c.Request.Context(), middleware.Caller(c), id); err != nil {
		writeBookingError(c, err)
		return
	}
	out, err := h.payments.BookingTransactions(c.Request.Context(), id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"transactions": out})
}
