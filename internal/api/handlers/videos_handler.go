package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// CatalogService is what VideosHandler needs from the catalog.
type CatalogService interface {
	List(ctx context.Context, query entities.VideoQuery) ([]entities.Video, error)
	BulkFetch(ctx context.Context, ids []string) ([]entities.Video, error)
	Get(ctx context.Context, movieID string) (*entities.Video, error)
}

// VideosHandler serves the video catalog.
type VideosHandler struct {
	catalog CatalogService
	loc     *time.Location
	log     logger.Logger
}

// NewVideosHandler creates a VideosHandler rendering dates in loc.
func NewVideosHandler(catalog CatalogService, loc *time.Location, log logger.Logger) *VideosHandler {
	return &VideosHandler{catalog: catalog, loc: loc, log: log}
}

// List handles GET /videos?q=&tags=&limit=.
func (h *VideosHandler) List(c *gin.Context) {
	limit := entities.DefaultListLimit
	if raw, ok := c.GetQuery("limit"); ok && raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = parsed
	}

	query := entities.VideoQuery{
		Q:     c.Query("q"),
		Tags:  c.QueryArray("tags"),
		Limit: limit,
	}

	videos, err := h.catalog.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entities.NewVideoResponses(videos, h.loc))
}

// Bulk handles POST /videos/bulk.
func (h *VideosHandler) Bulk(c *gin.Context) {
	var req entities.BulkVideosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"videos\": [movieId, ...]}")
		return
	}

	videos, err := h.catalog.BulkFetch(c.Request.Context(), req.Videos)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entities.NewVideoResponses(videos, h.loc))
}

// Get handles GET /videos/:movieId.
func (h *VideosHandler) Get(c *gin.Context) {
	video, err := h.catalog.Get(c.Request.Context(), c.Param("movieId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entities.NewVideoResponse(*video, h.loc))
}
