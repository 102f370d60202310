// Package http registers the API routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideway/internal/auth"
	"rideway/internal/http/handlers"
	"rideway/internal/http/middleware"
	"rideway/internal/logger"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/matching"
	"rideway/internal/modules/notification"
	"rideway/internal/modules/payment"
	"rideway/internal/modules/user"
)

type RouterDeps struct {
	Tokens        *auth.Manager
	Users         *user.Service
	Bookings      *booking.Service
	Payments      *payment.Service
	Matching      *matching.Service
	Notifications *notification.Service
	Log           logger.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	authHandler := handlers.NewAuthHandler(deps.Users)
	public := r.Group("/api/auth")
	{
		public.POST("/register", authHandler.Register)
		public.POST("/login", authHandler.Login)
		public.POST("/verify-email", authHandler.VerifyEmail)
		public.POST("/forgot-password", authHandler.ForgotPassword)
		public.POST("/reset-password", authHandler.ResetPassword)
	}

	api := r.Group("/api", middleware.Auth(deps.Tokens))

	userHandler := handlers.NewUserHandler(deps.Users)
	users := api.Group("/users/me")
	{
		users.GET("", userHandler.Me)
		users.GET("/stats", userHandler.Stats)
		users.PUT("", userHandler.UpdateProfile)
		users.DELETE("", userHandler.Deactivate)
		users.PUT("/preferences", userHandler.UpdatePreferences)
		users.PUT("/password", userHandler.ChangePassword)
		users.PUT("/avatar", userHandler.SetAvatar)
		users.PUT("/vehicle", userHandler.UpdateDriverInfo)

		users.GET("/addresses", userHandler.ListAddresses)
		users.POST("/addresses", userHandler.AddAddress)
		users.PUT("/addresses/:id", userHandler.UpdateAddress)
		users.DELETE("/addresses/:id", userHandler.DeleteAddress)
		users.PUT("/addresses/:id/default", userHandler.SetDefaultAddress)

		users.GET("/payment-methods", userHandler.ListPaymentMethods)
		users.POST("/payment-methods", userHandler.AddPaymentMethod)
		users.PUT("/payment-methods/:id", userHandler.UpdatePaymentMethod)
		users.DELETE("/payment-methods/:id", userHandler.DeletePaymentMethod)
		users.PUT("/payment-methods/:id/default", userHandler.SetDefaultPaymentMethod)
	}

	bookingHandler := handlers.NewBookingHandler(deps.Bookings, deps.Payments, deps.Log)
	bookings := api.Group("/bookings")
	{
		bookings.POST("", bookingHandler.Create)
		bookings.POST("/quote", bookingHandler.Quote)
		bookings.GET("", bookingHandler.List)
		bookings.GET("/:id", bookingHandler.Get)
		bookings.PUT("/:id/status", bookingHandler.UpdateStatus)
		bookings.POST("/:id/cancel", bookingHandler.Cancel)
		bookings.POST("/:id/rate", bookingHandler.Rate)
		bookings.GET("/:id/transactions", bookingHandler.Transactions)
	}

	driverHandler := handlers.NewDriverHandler(deps.Bookings, deps.Matching)
	drivers := api.Group("/drivers")
	{
		drivers.GET("/nearby", driverHandler.NearbyDrivers)

		own := drivers.Group("", middleware.RequireRole(auth.RoleDriver))
		own.GET("/bookings", driverHandler.ListAvailable)
		own.POST("/bookings/:id/accept", driverHandler.Accept)
		own.GET("/rides", driverHandler.ListRides)
		own.PUT("/location", driverHandler.UpdateLocation)
		own.DELETE("/location", driverHandler.GoOffline)
		own.GET("/earnings", driverHandler.Earnings)
	}

	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	payments := api.Group("/payments")
	{
		payments.GET("", paymentHandler.Transactions)
		payments.POST("/process", paymentHandler.Process)
	}

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	notifications := api.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("", middleware.RequireRole(auth.RoleAdmin), notificationHandler.Send)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
		notifications.DELETE("/:id", notificationHandler.Delete)
	}

	return r
}
