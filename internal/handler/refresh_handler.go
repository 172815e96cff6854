package handler

import (
	"strconv"

	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/response"
	"github.com/gin-gonic/gin"
)

// RefreshHandler handles HTTP requests that drive photo synchronization.
type RefreshHandler struct {
	sync *application.PhotoSyncService
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(sync *application.PhotoSyncService) *RefreshHandler {
	return &RefreshHandler{sync: sync}
}

// RegisterRoutes registers the refresh routes.
func (h *RefreshHandler) RegisterRoutes(r *gin.RouterGroup) {
	locations := r.Group("/api/v1/locations")
	{
		locations.POST("/:id/refresh", h.StartRefresh)
		locations.GET("/:id/refresh", h.GetRefresh)
	}
}

// StartRefresh handles POST /api/v1/locations/:id/refresh. It answers 202 once the new
// placeholders are stored, or 200 with the final summary when wait=true.
func (h *RefreshHandler) StartRefresh(c *gin.Context) {
	locationID, ok := parseID(c, "location")
	if !ok {
		return
	}
	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))

	r, err := h.sync.Refresh(c.Request.Context(), locationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !wait {
		response.Accepted(c, r.Summary())
		return
	}

	summary, err := r.Wait(c.Request.Context())
	if err != nil {
		response.Accepted(c, summary)
		return
	}
	response.Success(c, summary)
}

// GetRefresh handles GET /api/v1/locations/:id/refresh.
func (h *RefreshHandler) GetRefresh(c *gin.Context) {
	locationID, ok := parseID(c, "location")
	if !ok {
		return
	}

	summary, found := h.sync.Status(locationID)
	if !found {
		response.NotFound(c, "no refresh recorded for location "+locationID.String())
		return
	}
	response.Success(c, summary)
}
