package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RouterConfig wires the handler and the access logger.
type RouterConfig struct {
	Articles *ArticleHandler
	Logger   *slog.Logger
}

// NewRouter builds the gin engine with permissive CORS, request ids and panic recovery.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestID(), accessLog(cfg.Logger), recovery(cfg.Logger))

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:   []string{"Content-Length", requestIDHeader},
		MaxAge:          12 * time.Hour,
	}))

	h := cfg.Articles
	router.GET("/", h.Index)

	articles := router.Group("/articles")
	{
		articles.GET("", h.List)
		articles.GET("/latest", h.Latest)
		articles.GET("/:id", h.Get)
		articles.GET("/:id/related", h.Related)
		articles.POST("", h.Create)
		articles.POST("/enhance", h.Enhance)
		articles.PUT("/:id", h.Update)
		articles.DELETE("/:id", h.Delete)
	}

	router.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Route not found")
	})

	return router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if logger != nil {
			logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		}
		respondError(c, http.StatusInternalServerError, errors.New("something went wrong"))
	})
}
