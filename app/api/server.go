package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string, rateLimit int) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, rateLimit)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, rateLimit int) {
	// Public documents
	r.GET("/sitemap.xml", handler.GetSitemapIndex)
	r.GET("/sitemaps/:name", handler.GetSitemap)

	r.GET("/health", handler.GetHealth)

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(rateLimitMiddleware(rateLimit))
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/status", handler.APIGetStatus)
			api.GET("/report", handler.APIGetReport)
			api.POST("/generation/start", handler.APIStartGeneration)
			api.POST("/generation/halt", handler.APIHaltGeneration)
			api.POST("/generation/reset", handler.APIResetGeneration)
			api.POST("/generation/tick", handler.APITickGeneration)
			api.POST("/incremental", handler.APIRunIncremental)
			api.POST("/sitemaps/:name/regenerate", handler.APIRegenerateSitemap)
			api.PUT("/cron", handler.APIUpdateCron)

			api.PUT("/content/:id", handler.APIUpsertContent)
			api.DELETE("/content/:id", handler.APIDeleteContent)
			api.PUT("/terms/:id", handler.APIUpsertTerm)
			api.PUT("/authors/:id", handler.APIUpsertAuthor)
		}
		slog.Info("API endpoints enabled with authentication", "rate_limit", rateLimit)
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"index":   "/sitemap.xml",
			"sitemap": "/sitemaps/<key>.xml",
			"health":  "/health",
		}

		if apiAccessKey != "" {
			endpoints["status"] = "/api/status (requires X-API-Key header)"
			endpoints["report"] = "/api/report (requires X-API-Key header)"
			endpoints["generation"] = "/api/generation/{start,halt,reset,tick} (POST, requires X-API-Key header)"
			endpoints["incremental"] = "/api/incremental (POST, requires X-API-Key header)"
			endpoints["cron"] = "/api/cron (PUT, requires X-API-Key header)"
			endpoints["content"] = "/api/content/<id> (PUT/DELETE, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "Sitemap Comb",
			"description": "Incremental per-day sitemap generation",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
