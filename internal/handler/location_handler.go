package handler

import (
	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LocationHandler handles HTTP requests for pin operations.
type LocationHandler struct {
	service *application.LocationService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(service *application.LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

// RegisterRoutes registers all location routes on the given router group.
func (h *LocationHandler) RegisterRoutes(r *gin.RouterGroup) {
	locations := r.Group("/api/v1/locations")
	{
		locations.POST("", h.CreateLocation)
		locations.GET("", h.ListLocations)
		locations.GET("/:id", h.GetLocation)
		locations.DELETE("/:id", h.DeleteLocation)
	}
}

// CreateLocation handles POST /api/v1/locations.
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req application.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateLocation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListLocations handles GET /api/v1/locations.
func (h *LocationHandler) ListLocations(c *gin.Context) {
	result, err := h.service.ListLocations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetLocation handles GET /api/v1/locations/:id.
func (h *LocationHandler) GetLocation(c *gin.Context) {
	locationID, ok := parseID(c, "location")
	if !ok {
		return
	}

	result, err := h.service.GetLocation(c.Request.Context(), locationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteLocation handles DELETE /api/v1/locations/:id.
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	locationID, ok := parseID(c, "location")
	if !ok {
		return
	}

	if err := h.service.DeleteLocation(c.Request.Context(), locationID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func parseID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid "+entity+" ID")
		return uuid.Nil, false
	}
	return id, true
}
