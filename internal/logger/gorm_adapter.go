package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes GORM's logging through zap. SQL traces go to debug, slow queries
// to warn and failed queries to error. Record-not-found is not an error here.
type GormAdapter struct {
	log           *zap.Logger
	slowThreshold time.Duration
}

// NewGormAdapter creates a GORM logger. A zero slowThreshold disables slow query warnings.
func NewGormAdapter(log *zap.Logger, slowThreshold time.Duration) *GormAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &GormAdapter{
		log:           log.Named("gorm").WithOptions(zap.AddCallerSkip(3)),
		slowThreshold: slowThreshold,
	}
}

// LogMode is a no-op; levels are controlled by the zap logger.
func (a *GormAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormAdapter) Info(_ context.Context, msg string, data ...interface{}) {
	a.log.Debug(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Warn(_ context.Context, msg string, data ...interface{}) {
	a.log.Warn(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Error(_ context.Context, msg string, data ...interface{}) {
	a.log.Error(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		a.log.Error("query failed",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		)
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		sql, rows := fc()
		a.log.Warn("slow query",
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", a.slowThreshold),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		)
	default:
		if ce := a.log.Check(zap.DebugLevel, "query"); ce != nil {
			sql, rows := fc()
			ce.Write(zap.Duration("elapsed", elapsed), zap.Int64("rows", rows), zap.String("sql", sql))
		}
	}
}
