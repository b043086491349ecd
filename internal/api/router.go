package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/api/handlers"
	"github.com/ohs25-2-misoten/agaru-up-api/internal/api/middleware"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/auth"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// Dependencies wires the router. JWT and RateLimiter are optional.
type Dependencies struct {
	Catalog        handlers.CatalogService
	Lookup         handlers.LookupService
	Reports        handlers.ReportService
	Ping           func(ctx context.Context) error
	JWT            *auth.JWTService
	RateLimiter    *middleware.IPRateLimiter
	Location       *time.Location
	MaxUploadBytes int64
	Log            logger.Logger
}

// NewRouter creates the HTTP handler.
func NewRouter(deps Dependencies) http.Handler {
	router := gin.New()
	router.MaxMultipartMemory = 32 << 20

	router.Use(middleware.Trace())
	router.Use(middleware.AccessLog(deps.Log))
	router.Use(middleware.Recovery(deps.Log))
	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				deps.Log.ErrorContext(c.Request.Context(), "health check: %v", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	videosHandler := handlers.NewVideosHandler(deps.Catalog, deps.Location, deps.Log)
	lookupHandler := handlers.NewLookupHandler(deps.Lookup, deps.Log)
	reportHandler := handlers.NewReportHandler(deps.Reports, deps.Location, deps.MaxUploadBytes, deps.Log)

	videos := router.Group("/videos")
	{
		videos.GET("", videosHandler.List)
		videos.POST("/bulk", videosHandler.Bulk)
		videos.GET("/:movieId", videosHandler.Get)
	}

	router.GET("/tags", lookupHandler.Tags)
	router.GET("/cameras/:id", lookupHandler.Camera)

	var reportChain []gin.HandlerFunc
	if deps.RateLimiter != nil {
		reportChain = append(reportChain, deps.RateLimiter.Handler())
	}
	if deps.JWT != nil {
		reportChain = append(reportChain, middleware.Auth(deps.JWT))
	}
	reportChain = append(reportChain, reportHandler.Create)
	router.POST("/report", reportChain...)

	return router
}
