package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"skincare-advisor/internal/api/handlers/health"
	recommendHandler "skincare-advisor/internal/api/handlers/recommend"
	"skincare-advisor/internal/api/middleware"
	"skincare-advisor/internal/core/ai/cache"
	aiService "skincare-advisor/internal/core/ai/service"
	"skincare-advisor/internal/core/recommendation"
	"skincare-advisor/internal/core/run"
	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/infrastructure/store"
	"skincare-advisor/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// request deadline covers the whole pipeline including the model call
	timeoutDuration = 120 * time.Second
	// request body cap (1MB); profiles and analyses are small
	maxBodySize = 1 << 20
)

// SetupRouter wires middleware, services and routes
func SetupRouter(cfg *config.Config, db *sql.DB, cacheManager *cache.CacheManager, statusStore *run.Store) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("model", cfg.OpenRouter.Model),
		zap.Duration("timeout", timeoutDuration),
	)

	generator, err := aiService.NewService(cfg, cacheManager)
	if err != nil || generator == nil {
		common.LogError("Failed to initialize AI service", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize AI service: %w", err)
	}

	catalogStore := store.NewCatalogStore(db)
	recommendationSink := store.NewRecommendationStore(db)

	recommendationSvc := recommendation.NewService(
		cfg.Recommendation,
		catalogStore,
		generator,
		recommendationSink,
		statusStore,
	)

	// per-request deadline plus context injection
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Set("config", cfg)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeRequestTimeout,
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	{
		handler := recommendHandler.NewHandler(recommendationSvc, statusStore)

		recGroup := api.Group("/recommendation")
		{
			// a generative call is expensive; duplicate submissions
			// within the dedup window are rejected
			recGroup.POST("", middleware.Deduplication(cfg), handler.HandleRecommend)
			recGroup.GET("/runs/:id", handler.HandleRunStatus)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
