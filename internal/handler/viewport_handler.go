package handler

import (
	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/response"
	"github.com/gin-gonic/gin"
)

// ViewportHandler handles the persisted map viewport.
type ViewportHandler struct {
	service *application.ViewportService
}

// NewViewportHandler creates a new ViewportHandler.
func NewViewportHandler(service *application.ViewportService) *ViewportHandler {
	return &ViewportHandler{service: service}
}

// RegisterRoutes registers the settings routes.
func (h *ViewportHandler) RegisterRoutes(r *gin.RouterGroup) {
	settings := r.Group("/api/v1/settings")
	{
		settings.GET("/viewport", h.GetViewport)
		settings.PUT("/viewport", h.UpdateViewport)
	}
}

// GetViewport handles GET /api/v1/settings/viewport.
func (h *ViewportHandler) GetViewport(c *gin.Context) {
	result, err := h.service.GetViewport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateViewport handles PUT /api/v1/settings/viewport.
func (h *ViewportHandler) UpdateViewport(c *gin.Context) {
	var req application.UpdateViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateViewport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
