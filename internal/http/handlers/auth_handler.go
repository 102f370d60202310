package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideway/internal/modules/user"
)

type AuthHandler struct {
	users *user.Service
}

func NewAuthHandler(users *user.Service) *AuthHandler {
	return &AuthHandler{users: users}
}

type registerReq struct {
	Email     string           `json:"email"`
	Password  string           `json:"password"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Phone     string           `json:"phone"`
	Role      string           `json:"role"`
	Driver    *user.DriverInfo `json:"driver"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := h.users.Register(c.Request.Context(), user.RegisterCommand{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
		Driver:    req.Driver,
	})
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sess)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess)
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.users.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"verified": true})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeUserError(c, err)
		return
	}
	// always 200 so the endpoint cannot be used to probe for accounts
	writeJSON(c, http.StatusOK, gin.H{"sent": true})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"reset": true})
}
