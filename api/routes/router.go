// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"tourly/internal/capacity"
	"tourly/internal/pricing"
	"tourly/internal/shared/config"
	"tourly/internal/shared/database"
	"tourly/pkg/cache"
	"tourly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"log/slog"
)

// Router holds all route dependencies
type Router struct {
	config          *config.Config
	db              *database.DB
	cacheService    cache.Service
	capacityService capacity.Service // For dependency injection into pricing
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB) *Router {
	return &Router{
		config: cfg,
		db:     db,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// Shared cache service backed by the app Redis connection
	if r.db.Redis != nil {
		r.cacheService = cache.NewService(r.db.GetRedisClient())
	}

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Capacity routes must come first: pricing reads through the
		// capacity service
		r.setupCapacityRoutes(api)
		r.setupPricingRoutes(api)
	}
}

// CapacityService exposes the wired capacity service so the server can
// attach the background sweeper to it.
func (r *Router) CapacityService() capacity.Service {
	return r.capacityService
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "tourly-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "tourly-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})

	// Prometheus scrape endpoint
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// setupCapacityRoutes configures capacity ledger routes
func (r *Router) setupCapacityRoutes(rg *gin.RouterGroup) {
	capacityRepo := capacity.NewRepository(r.db.GetPostgreSQL())
	capacityService := capacity.NewService(capacityRepo, r.config.Capacity.HoldTTL, r.config.Capacity.SweepBatchSize)

	if r.cacheService != nil {
		capacityService.SetCacheService(r.cacheService)
	}

	if r.config.Kafka.Enabled {
		producerConfig := capacity.DefaultKafkaProducerConfig()
		producerConfig.Brokers = r.config.Kafka.Brokers
		producerConfig.Topic = r.config.Kafka.Topic
		producer, err := capacity.NewKafkaEventProducer(producerConfig)
		if err != nil {
			logger.GetDefault().Error("failed to initialize capacity event producer",
				slog.String("error", err.Error()),
			)
		} else {
			capacityService.SetEventProducer(producer)
		}
	}

	// Store capacity service for dependency injection
	r.capacityService = capacityService

	capacityController := capacity.NewController(capacityService)
	capacity.SetupCapacityRoutes(rg, capacityController)
}

// setupPricingRoutes configures price calculator routes
func (r *Router) setupPricingRoutes(rg *gin.RouterGroup) {
	pricingRepo := pricing.NewRepository(r.db.GetPostgreSQL())
	pricingService := pricing.NewService(pricingRepo, r.capacityService, &pricing.Config{
		Currency:             r.config.Pricing.Currency,
		TaxRatePercent:       r.config.Pricing.TaxRatePercent,
		GroupDiscountPercent: r.config.Pricing.GroupDiscountPercent,
		GroupMinAmount:       r.config.Pricing.GroupMinAmount,
		QuoteCacheTTL:        r.config.Pricing.QuoteCacheTTL,
	})

	if r.cacheService != nil {
		pricingService.SetCacheService(r.cacheService)
	}

	pricingController := pricing.NewController(pricingService)
	pricing.SetupPricingRoutes(rg, pricingController)
}
