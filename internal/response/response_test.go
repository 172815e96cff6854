package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-album/internal/application"
	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-album/internal/provider/flickr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domain.NewNotFoundError("Location", "x"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", domain.NewValidationError("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", domain.NewConflictError("dup"), http.StatusConflict, "CONFLICT"},
		{"superseded", fmt.Errorf("wrap: %w", application.ErrRefreshSuperseded), http.StatusConflict, "REFRESH_SUPERSEDED"},
		{"closed", application.ErrServiceClosed, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"loop stopped", application.ErrLoopStopped, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"provider", &flickr.ProviderError{StatusCode: 500, Reason: "bad status"}, http.StatusBadGateway, "PROVIDER_ERROR"},
		{"network", &flickr.NetworkError{Op: "search", Err: errors.New("dial")}, http.StatusGatewayTimeout, "PROVIDER_UNREACHABLE"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, errors.New("secret dsn"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "internal server error", body.Error.Message)
	assert.Len(t, c.Errors, 1)
}

func TestError_ReportsDomainMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, domain.NewValidationError("latitude out of range"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"VALIDATION_ERROR","message":"latitude out of range"}}`,
		w.Body.String())
}

func TestSuccessEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Created(c, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, w.Body.String())
}
