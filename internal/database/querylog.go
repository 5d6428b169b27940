package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// QueryLogger routes GORM statements to slog. Misses and duplicate keys are
// not errors for the store: a missing row is an absent path and a duplicate
// key is a lost create race that the transaction retry absorbs.
type QueryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewQueryLogger returns a QueryLogger at warn level.
func NewQueryLogger(l *slog.Logger) *QueryLogger {
	return &QueryLogger{log: l, level: logger.Warn, slow: slowQuery}
}

// Level reports the current GORM log level.
func (q *QueryLogger) Level() logger.LogLevel { return q.level }

func (q *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *QueryLogger) Info(ctx context.Context, msg string, data ...any) {
	q.printf(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (q *QueryLogger) Warn(ctx context.Context, msg string, data ...any) {
	q.printf(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (q *QueryLogger) Error(ctx context.Context, msg string, data ...any) {
	q.printf(ctx, logger.Error, slog.LevelError, msg, data)
}

func (q *QueryLogger) printf(ctx context.Context, floor logger.LogLevel, lvl slog.Level, msg string, data []any) {
	if q.level < floor {
		return
	}
	q.log.Log(ctx, lvl, fmt.Sprintf(msg, data...))
}

func expected(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey)
}

// Trace logs failed statements at error, slow ones at warn and, at info
// level, everything else.
func (q *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl slog.Level
		msg string
	)
	switch {
	case err != nil && !expected(err) && q.level >= logger.Error:
		lvl, msg = slog.LevelError, "sql statement failed"
	case q.slow > 0 && elapsed > q.slow && q.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "slow sql statement"
	case q.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "sql statement"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if err != nil && lvl == slog.LevelError {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	q.log.LogAttrs(ctx, lvl, msg, attrs...)
}
