package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"facewatch/internal/api/handlers"
	"facewatch/internal/api/middleware"
	"facewatch/internal/storage"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Engine  handlers.StatusProvider
	Storage storage.Storage // Optional: event routes are only registered with a journal
	Token   string          // Bearer token for /v1, empty disables auth
	Logger  *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler(time.Now())
	router.GET("/health", healthHandler.GetHealth)

	v1 := router.Group("/v1")
	v1.Use(middleware.BearerAuth(config.Token))
	{
		var counter handlers.EventCounter
		if config.Storage != nil {
			counter = config.Storage
		}
		statusHandler := handlers.NewStatusHandler(config.Engine, counter, config.Logger)
		v1.GET("/status", statusHandler.GetStatus)
		v1.GET("/stats", statusHandler.GetStats)

		if config.Storage != nil {
			eventsHandler := handlers.NewEventsHandler(config.Storage, config.Logger)
			v1.GET("/events", eventsHandler.ListEvents)
		}
	}

	return router
}
