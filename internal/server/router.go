package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/secondbrain/plaid-proxy/internal/config"
	"github.com/secondbrain/plaid-proxy/internal/server/handler"
	"github.com/secondbrain/plaid-proxy/internal/server/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	cfg *config.Config,
	r *gin.Engine,
	batchHandler *handler.BatchHandler,
	plaidHandler *handler.PlaidHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// The Obsidian plugin calls from an app:// origin, so CORS stays open.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.CorrelationIDHeader}
	r.Use(cors.New(corsConfig))

	// Provider pass-through endpoints
	plaid := r.Group("/plaid")
	{
		plaid.POST("/link-token", plaidHandler.CreateLinkToken)
		plaid.POST("/exchange-token", plaidHandler.ExchangeToken)
		plaid.POST("/accounts", plaidHandler.GetAccounts)
		plaid.POST("/transactions", plaidHandler.GetTransactions)
		plaid.GET("/link", plaidHandler.LinkPage)
	}

	// Batch ingestion and tracking endpoints
	v1 := r.Group("/api/v1")
	{
		batches := v1.Group("/batches")
		{
			batches.POST("", batchHandler.Create)
			batches.GET("", batchHandler.List)
			batches.GET("/:id", batchHandler.GetByID)
			batches.GET("/:id/transactions", batchHandler.ListTransactions)
			batches.POST("/:id/processed", batchHandler.MarkProcessed)
		}
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    cfg.Application.Name,
			"message": "Plaid proxy server is running",
		})
	})

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Connectivity probes used by the plugin's settings screen
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Server is working"})
	})
	r.GET("/test/plaid", plaidHandler.TestConnection)
}
