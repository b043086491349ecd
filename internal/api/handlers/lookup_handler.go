package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/domain/entities"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// LookupService is what LookupHandler needs.
type LookupService interface {
	ListTags(ctx context.Context) ([]string, error)
	GetCamera(ctx context.Context, id string) (*entities.Camera, error)
}

// LookupHandler serves tags and cameras.
type LookupHandler struct {
	lookup LookupService
	log    logger.Logger
}

// NewLookupHandler creates a LookupHandler.
func NewLookupHandler(lookup LookupService, log logger.Logger) *LookupHandler {
	return &LookupHandler{lookup: lookup, log: log}
}

// Tags handles GET /tags.
func (h *LookupHandler) Tags(c *gin.Context) {
	tags, err := h.lookup.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// Camera handles GET /cameras/:id.
func (h *LookupHandler) Camera(c *gin.Context) {
	camera, err := h.lookup.GetCamera(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entities.NewCameraResponse(*camera))
}
