package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Kilat-Pet-Delivery/service-album/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCodeOf_UnwrapsChain(t *testing.T) {
	err := fmt.Errorf("save location: %w", domain.NewConflictError("duplicate"))

	assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	assert.True(t, domain.IsConflict(err))
	assert.False(t, domain.IsNotFound(err))
	assert.Equal(t, "duplicate", err.(interface{ Unwrap() error }).Unwrap().Error())
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, domain.ErrorCode(""), domain.CodeOf(errors.New("boom")))
	assert.False(t, domain.IsValidation(nil))
}

func TestNewNotFoundError_Message(t *testing.T) {
	err := domain.NewNotFoundError("Location", "42")
	assert.Equal(t, "Location not found: 42", err.Error())
	assert.True(t, domain.IsNotFound(err))
}
