// internal/api/router.go
package api

import (
	"os"
	"time"

	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds what the router needs.
type RouterConfig struct {
	Handler     *Handler
	Auth        *Authenticator
	RateLimiter *RateLimiter
	Metrics     *utils.APIMetrics
	Logger      *utils.Logger
	StaticDir   string
	// RateLimit is requests per minute per IP; 0 disables it.
	RateLimit int
}

// NewRouter sets up the HTTP routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = utils.NopLogger()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = NewRateLimiter()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(logger, cfg.Metrics))
	r.Use(corsMiddleware())
	r.Use(cfg.Auth.Middleware())

	h := cfg.Handler

	// static files (editor and reader pages)
	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			r.Static("/static", cfg.StaticDir)
		}
	}

	r.GET("/health", h.Health)

	// websocket
	r.GET("/ws/novel/:id", h.NovelWebSocket)

	// ===============================
	// API group
	// ===============================
	api := r.Group("/api")
	api.Use(limiter.Middleware(cfg.RateLimit, time.Minute))
	{
		// editor persistence
		api.GET("/novel/:id", h.GetNovel)
		api.POST("/save_novel/:id", h.SaveNovel)
		api.POST("/publish_novel/:id", h.PublishNovel)

		// reader
		api.GET("/view/:id", h.ViewNovel)

		// novel management
		api.GET("/novels", h.ListNovels)
		api.POST("/novels", RequireAuthor(), h.CreateNovel)
		api.DELETE("/novel/:id", RequireAuthor(), h.DeleteNovel)

		api.POST("/auth/token", h.IssueToken)
		api.GET("/metrics", h.GetMetrics)
	}

	return r
}
