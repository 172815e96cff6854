package handler

import (
	"net/http"
	"strconv"

	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/response"
	"github.com/gin-gonic/gin"
)

// PhotoHandler handles HTTP requests for album operations.
type PhotoHandler struct {
	service *application.PhotoService
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(service *application.PhotoService) *PhotoHandler {
	return &PhotoHandler{service: service}
}

// RegisterRoutes registers all photo routes.
func (h *PhotoHandler) RegisterRoutes(r *gin.RouterGroup) {
	albums := r.Group("/api/v1/locations")
	{
		albums.GET("/:id/photos", h.GetAlbum)
		albums.DELETE("/:id/photos", h.RemovePhotos)
	}
	r.GET("/api/v1/photos/:id/image", h.GetImage)
}

// GetAlbum handles GET /api/v1/locations/:id/photos.
func (h *PhotoHandler) GetAlbum(c *gin.Context) {
	locationID, ok := parseID(c, "location")
	if !ok {
		return
	}
	autoRefresh, _ := strconv.ParseBool(c.DefaultQuery("auto_refresh", "false"))

	result, err := h.service.GetAlbum(c.Request.Context(), locationID, autoRefresh)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RemovePhotos handles DELETE /api/v1/locations/:id/photos.
func (h *PhotoHandler) RemovePhotos(c *gin.Context) {
	locationID, ok := parseID(c, "location")
	if !ok {
		return
	}

	var req application.RemovePhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	removed, err := h.service.RemovePhotos(c.Request.Context(), locationID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"removed": removed})
}

// GetImage handles GET /api/v1/photos/:id/image.
func (h *PhotoHandler) GetImage(c *gin.Context) {
	photoID, ok := parseID(c, "photo")
	if !ok {
		return
	}

	width := 0
	if raw := c.Query("width"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "width must be an integer")
			return
		}
		width = w
	}

	img, err := h.service.GetImage(c.Request.Context(), photoID, width)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
