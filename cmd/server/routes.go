package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"pay-router.backend/internal/interfaces/http/handlers"
	"pay-router.backend/internal/interfaces/http/middleware"
	"pay-router.backend/pkg/metrics"
)

const (
	serviceName    = "pay-router-backend"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	transactionHandler *handlers.TransactionHandler
	retryChainHandler  *handlers.RetryChainHandler
	acquirerHandler    *handlers.AcquirerHandler
	chargebackHandler  *handlers.ChargebackHandler
	idempotency        gin.HandlerFunc
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+middleware.IdempotencyHeader+", "+middleware.RequestIDHeader)
		c.Header("Access-Control-Expose-Headers", middleware.RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine, rec *metrics.Recorder) {
	r.GET("/metrics", gin.WrapH(rec.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	idempotency := d.idempotency
	if idempotency == nil {
		idempotency = func(c *gin.Context) { c.Next() }
	}

	v1 := r.Group("/api/v1")
	{
		// Transactions
		v1.POST("/transactions", idempotency, d.transactionHandler.SubmitTransaction)

		// Retry chain configuration
		chains := v1.Group("/retry-chains")
		{
			chains.GET("/:method", d.retryChainHandler.GetActiveChain)
			chains.GET("/:method/steps", d.retryChainHandler.ListSteps)
			chains.POST("/:method/steps", d.retryChainHandler.AddStep)
			chains.PUT("/:method/order", d.retryChainHandler.Reorder)
		}
		steps := v1.Group("/retry-steps")
		{
			steps.PATCH("/:id/active", d.retryChainHandler.SetStepActive)
			steps.DELETE("/:id", d.retryChainHandler.RemoveStep)
		}

		// Acquirer health
		acq := v1.Group("/acquirers")
		{
			acq.GET("/health", d.acquirerHandler.HealthOverview)
			acq.GET("/:acquirer/health", d.acquirerHandler.HealthSummary)
			acq.GET("/:acquirer/circuit", d.acquirerHandler.CircuitState)
		}
		v1.GET("/events", d.acquirerHandler.RecentEvents)

		// Chargebacks
		chargebacks := v1.Group("/chargebacks")
		{
			chargebacks.POST("", d.chargebackHandler.RecordChargeback)
			chargebacks.GET("", d.chargebackHandler.ListChargebacks)
			chargebacks.GET("/:id", d.chargebackHandler.GetChargeback)
			chargebacks.PATCH("/:id/status", d.chargebackHandler.UpdateChargebackStatus)
		}
	}
}
