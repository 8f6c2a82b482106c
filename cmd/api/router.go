package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rentflow-backend/internal/shared/middleware"
	"rentflow-backend/pkg/container"
	"rentflow-backend/pkg/jwt"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupEsewaRoutes(v1, c)
		setupAdminPaymentRoutes(v1, c)
		setupNotificationRoutes(v1, c)
	}

	return router
}

// ========================================
// ESEWA ROUTES
// ========================================
func setupEsewaRoutes(v1 *gin.RouterGroup, c *container.Container) {
	esewa := v1.Group("/esewa")

	// Gateway redirects land here without a bearer token
	{
		esewa.GET("/complete-payment", c.PaymentHandler.CompletePayment)
		esewa.POST("/payment-failed", c.PaymentHandler.PaymentFailed)
	}

	authed := esewa.Group("")
	authed.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		authed.POST("/initialize-agreement-payment",
			middleware.RequireRoles(jwt.RoleRenter, jwt.RoleAdmin),
			c.PaymentHandler.InitializeAgreementPayment,
		)
		authed.GET("/agreement-payment-status/:agreementId", c.PaymentHandler.GetAgreementPaymentStatus)
		authed.GET("/agreement-payments/:agreementId", c.PaymentHandler.ListAgreementPayments)
		authed.POST("/agreement-payments/:agreementId/statement", c.PaymentHandler.RequestStatement)
		authed.GET("/agreement-payments/:agreementId/statements/:exportId", c.PaymentHandler.GetStatementURL)
	}
}

// ========================================
// ADMIN PAYMENT ROUTES
// ========================================
func setupAdminPaymentRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin/payments")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.RequireRoles(jwt.RoleAdmin))
	{
		admin.POST("/reconcile", c.PaymentHandler.ReconcileStalePayments)
	}
}

// ========================================
// NOTIFICATION ROUTES
// ========================================
func setupNotificationRoutes(v1 *gin.RouterGroup, c *container.Container) {
	notifications := v1.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		notifications.GET("", c.NotificationHandler.ListNotifications)
		notifications.PATCH("/:id/read", c.NotificationHandler.MarkAsRead)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// Check database
		dbStatus := "ok"
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else if err := appCtx.DB.HealthCheck(ctx); err != nil {
			dbStatus = fmt.Sprintf("error: %v", err)
			health["status"] = "degraded"
		}

		// Check redis
		redisStatus := "ok"
		if appCtx.Redis == nil {
			redisStatus = "disconnected"
		} else if err := appCtx.Redis.HealthCheck(ctx); err != nil {
			redisStatus = fmt.Sprintf("error: %v", err)
		}

		// Check object storage
		storageStatus := "ok"
		if err := appCtx.Storage.HealthCheck(ctx); err != nil {
			storageStatus = fmt.Sprintf("error: %v", err)
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
			"storage":  storageStatus,
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}
