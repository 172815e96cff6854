package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestNew(t *testing.T) {
	prod, err := New("production")
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zapcore.DebugLevel))

	dev, err := New("development")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	named, err := NewNamed("prod", "service-album")
	require.NoError(t, err)
	assert.NotNil(t, named)
}

func TestGormAdapter_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewGormAdapter(zap.New(core), 50*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	adapter.Trace(ctx, time.Now(), sql, errors.New("boom"))
	adapter.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	adapter.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	adapter.Trace(ctx, time.Now(), sql, nil)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "query failed", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "query", entries[1].Message, "record not found is not an error")
	assert.Equal(t, "slow query", entries[2].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[3].Level)
}

func TestGormAdapter_SkipsSQLWhenDebugDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	adapter := NewGormAdapter(zap.New(core), 0)

	called := false
	adapter.Trace(context.Background(), time.Now().Add(-time.Hour), func() (string, int64) {
		called = true
		return "", 0
	}, nil)

	assert.False(t, called)
	assert.Zero(t, logs.Len())
}
