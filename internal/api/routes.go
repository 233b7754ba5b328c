package api

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardvault/backend/internal/api/handlers"
	"github.com/cardvault/backend/internal/catalog"
	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/services"
	"github.com/cardvault/backend/internal/store"
)

func SetupRouter(st *store.Store, resolver *store.PriceResolver, cat *catalog.Service, sharing *services.SharingService, impexp *services.ImportExportService, priceWorker *services.PriceWorker, valueWorker *services.ValueWorker) *gin.Engine {
	router := gin.Default()
	router.Use(metricsMiddleware())

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Share-Password"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	// Initialize handlers
	collectionHandler := handlers.NewCollectionHandler(st, cat)
	groupHandler := handlers.NewGroupHandler(st, valueWorker)
	shareHandler := handlers.NewShareHandler(sharing)
	impexpHandler := handlers.NewImportExportHandler(impexp)
	cardHandler := handlers.NewCardHandler(cat, resolver, priceWorker)

	// API routes
	api := router.Group("/api")
	{
		// Card routes
		cards := api.Group("/cards")
		{
			cards.GET("/search", cardHandler.SearchCards)
			cards.GET("/:id", cardHandler.GetCard)
			cards.POST("/:id/refresh-price", cardHandler.RefreshCardPrice)
		}

		// Collection routes
		collection := api.Group("/collection")
		{
			collection.GET("", collectionHandler.GetCollection)
			collection.POST("/items", collectionHandler.AddItem)
			collection.DELETE("/items", collectionHandler.RemoveItem)
			collection.GET("/items/quantity", collectionHandler.GetQuantity)
		}

		// Group routes
		groups := api.Group("/groups")
		{
			groups.GET("", groupHandler.ListGroups)
			groups.POST("", groupHandler.CreateGroup)
			groups.PUT("/:name", groupHandler.RenameGroup)
			groups.DELETE("/:name", groupHandler.DeleteGroup)
			groups.GET("/:name/value", groupHandler.GetGroupValue)
			groups.GET("/:name/value/history", groupHandler.GetValueHistory)
			groups.GET("/:name/export", impexpHandler.ExportGroup)
		}

		// Import
		api.POST("/import", impexpHandler.ImportDocument)

		// Share management
		shares := api.Group("/shares")
		{
			shares.POST("", shareHandler.CreateShare)
			shares.GET("", shareHandler.ListShares)
		}

		// Price routes
		api.GET("/prices/status", cardHandler.GetPriceStatus)
	}

	// Public share links - opaque token, no embedded metadata
	router.GET("/shared/:id", shareHandler.AccessShare)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// metricsMiddleware records request counts and latency per route.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
