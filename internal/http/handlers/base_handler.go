// Package handlers maps HTTP requests onto the module services.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideway/internal/modules/booking"
	"rideway/internal/modules/matching"
	"rideway/internal/modules/notification"
	"rideway/internal/modules/payment"
	"rideway/internal/modules/user"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeBookingError(c *gin.Context, err error) {
	switch err {
	case booking.ErrBadRequest:
		writeError(c, http.StatusBadRequest, err.Error())
	case booking.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case booking.ErrAccessDenied:
		writeError(c, http.StatusForbidden, err.Error())
	case booking.ErrInvalidState, booking.ErrConflict, booking.ErrAlreadyRated:
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeUserError(c *gin.Context, err error) {
	switch err {
	case user.ErrBadRequest:
		writeError(c, http.StatusBadRequest, err.Error())
	case user.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case user.ErrEmailTaken, user.ErrPhoneTaken:
		writeError(c, http.StatusConflict, err.Error())
	case user.ErrInvalidCredentials, user.ErrInvalidToken:
		writeError(c, http.StatusUnauthorized, err.Error())
	case user.ErrAccountLocked, user.ErrAccountDisabled:
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writePaymentError(c *gin.Context, err error) {
	switch err {
	case booking.ErrNotFound, payment.ErrMethodNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case payment.ErrAccessDenied:
		writeError(c, http.StatusForbidden, err.Error())
	case payment.ErrAlreadyPaid:
		writeError(c, http.StatusConflict, err.Error())
	case payment.ErrGatewayDeclined:
		writeError(c, http.StatusPaymentRequired, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeMatchingError(c *gin.Context, err error) {
	switch err {
	case matching.ErrAccessDenied:
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeNotificationError(c *gin.Context, err error) {
	switch err {
	case notification.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// pagination reads limit/offset query params, clamped to sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
