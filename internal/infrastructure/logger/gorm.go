package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQuery is the statement duration logged as slow
const DefaultSlowQuery = 200 * time.Millisecond

// GormLogger sends gorm's statement log to zap. Record-not-found results
// are routine on conditional writes and never log as failures.
type GormLogger struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGormLogger logs under base named "gorm" at level
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{log: base.Named("gorm"), level: level, slow: DefaultSlowQuery}
}

// SlowAfter returns a copy that flags statements slower than d. Zero turns
// slow reporting off.
func (l *GormLogger) SlowAfter(d time.Duration) *GormLogger {
	cp := *l
	cp.slow = d
	return &cp
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	For(ctx, l.log).Sugar().Logf(lvl, msg, data...)
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

// Trace classifies one statement as failed, slow or routine and logs it if
// the configured level admits that class.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)

	var (
		need gormlogger.LogLevel
		lvl  zapcore.Level
		msg  string
	)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		need, lvl, msg = gormlogger.Error, zapcore.ErrorLevel, "SQL failed"
	case l.slow > 0 && elapsed > l.slow:
		need, lvl, msg = gormlogger.Warn, zapcore.WarnLevel, "Slow SQL"
	default:
		need, lvl, msg = gormlogger.Info, zapcore.DebugLevel, "SQL"
	}
	if l.level < need {
		return
	}
	ce := l.log.Check(lvl, msg)
	if ce == nil {
		return
	}

	sql, rows := fc()
	fields := append(Fields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	switch lvl {
	case zapcore.ErrorLevel:
		fields = append(fields, zap.Error(err))
	case zapcore.WarnLevel:
		fields = append(fields, zap.Duration("threshold", l.slow))
	}
	ce.Write(fields...)
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel reads a config level name; unknown names mean warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[level]; ok {
		return l
	}
	return gormlogger.Warn
}
