package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/derekprior/diamonds/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// NewRouter wires the schedule API under /v1.
func NewRouter(p Planner, logger *logging.Logger) *gin.Engine {
	if logger == nil {
		logger = logging.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h := NewScheduleHandler(p, logger)
	v1 := r.Group("/v1")
	{
		v1.GET("/slots", h.Slots)
		v1.GET("/matchups/unplaced", h.Unplaced)
		v1.GET("/progress", h.Progress)
		v1.GET("/export", h.Export)

		games := v1.Group("/games")
		games.GET("", h.Games)
		games.POST("", h.Place)
		games.POST("/preview", h.Preview)
		games.PATCH("/:id/duration", h.Resize)
		games.PATCH("/:id/slot", h.Move)
		games.DELETE("/:id", h.Remove)
	}
	return r
}

// RequestID tags each request with the caller's X-Request-ID, or a new one,
// and carries it into the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func AccessLog(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
