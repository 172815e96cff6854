// Package response writes the service's JSON envelopes.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-album/internal/provider/flickr"
	"github.com/gin-gonic/gin"
)

// Body is the envelope of every JSON response.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Body{Success: true, Data: data})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, "NOT_FOUND", message)
}

// Fail writes an error envelope and aborts the handler chain.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// Error maps err onto a status code and writes it.
func Error(c *gin.Context, err error) {
	status, code := Classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "internal server error"
	}
	Fail(c, status, code, message)
}

// Classify returns the HTTP status and error code for err.
func Classify(err error) (int, string) {
	var (
		providerErr *flickr.ProviderError
		networkErr  *flickr.NetworkError
	)
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case domain.IsValidation(err):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case domain.IsConflict(err):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, application.ErrRefreshSuperseded):
		return http.StatusConflict, "REFRESH_SUPERSEDED"
	case errors.Is(err, application.ErrServiceClosed), errors.Is(err, application.ErrLoopStopped):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	case errors.As(err, &providerErr):
		return http.StatusBadGateway, "PROVIDER_ERROR"
	case errors.As(err, &networkErr):
		return http.StatusGatewayTimeout, "PROVIDER_UNREACHABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
