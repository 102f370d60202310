package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideway/internal/http/middleware"
	"rideway/internal/modules/user"
	"rideway/internal/types"
)

type UserHandler struct {
	users *user.Service
}

func NewUserHandler(users *user.Service) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), middleware.Caller(c).UserID)
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

// Stats reports the ride counters plus derived membership age.
func (h *UserHandler) Stats(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), middleware.Caller(c).UserID)
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"stats":        u.Stats,
		"member_since": u.CreatedAt,
		"member_days":  u.MemberDays(time.Now()),
	})
}

type updateProfileReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), middleware.Caller(c), user.UpdateProfileCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

func (h *UserHandler) UpdatePreferences(c *gin.Context) {
	var p user.Preferences
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.users.UpdatePreferences(c.Request.Context(), middleware.Caller(c), p); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), middleware.Caller(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"changed": true})
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		writeError(c, http.StatusBadRequest, "missing avatar url")
		return
	}
	if err := h.users.SetAvatar(c.Request.Context(), middleware.Caller(c), req.URL); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"avatar_url": req.URL})
}

func (h *UserHandler) UpdateDriverInfo(c *gin.Context) {
	var d user.DriverInfo
	if err := c.ShouldBindJSON(&d); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.users.UpdateDriverInfo(c.Request.Context(), middleware.Caller(c), d); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

func (h *UserHandler) Deactivate(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.users.Deactivate(c.Request.Context(), middleware.Caller(c), req.Password); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deactivated": true})
}

// Saved addresses.

func (h *UserHandler) ListAddresses(c *gin.Context) {
	out, err := h.users.ListAddresses(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"addresses": out})
}

func (h *UserHandler) AddAddress(c *gin.Context) {
	var a user.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	added, err := h.users.AddAddress(c.Request.Context(), middleware.Caller(c), a)
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, added)
}

func (h *UserHandler) UpdateAddress(c *gin.Context) {
	var a user.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a.ID = types.ID(c.Param("id"))
	updated, err := h.users.UpdateAddress(c.Request.Context(), middleware.Caller(c), a)
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, updated)
}

func (h *UserHandler) DeleteAddress(c *gin.Context) {
	if err := h.users.DeleteAddress(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id"))); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *UserHandler) SetDefaultAddress(c *gin.Context) {
	if err := h.users.SetDefaultAddress(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id"))); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"default": c.Param("id")})
}

// Stored payment methods.

func (h *UserHandler) ListPaymentMethods(c *gin.Context) {
	out, err := h.users.ListPaymentMethods(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"payment_methods": out})
}

func (h *UserHandler) AddPaymentMethod(c *gin.Context) {
	var m user.PaymentMethod
	if err := c.ShouldBindJSON(&m); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	added, err := h.users.AddPaymentMethod(c.Request.Context(), middleware.Caller(c), m)
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, added)
}

func (h *UserHandler) UpdatePaymentMethod(c *gin.Context) {
	var m user.PaymentMethod
	if err := c.ShouldBindJSON(&m); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	m.ID = types.ID(c.Param("id"))
	updated, err := h.users.UpdatePaymentMethod(c.Request.Context(), middleware.Caller(c), m)
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, updated)
}

func (h *UserHandler) DeletePaymentMethod(c *gin.Context) {
	if err := h.users.DeletePaymentMethod(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id"))); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *UserHandler) SetDefaultPaymentMethod(c *gin.Context) {
	if err := h.users.SetDefaultPaymentMethod(c.Request.Context(), middleware.Caller(c), types.ID(c.Param("id"))); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"default": c.Param("id")})
}
