package mapi

import (
	"log/slog"
	"sync/atomic"
)

// connNo hands out a process-wide, ever-increasing id for each Connection's
// logger, so interleaved log lines from a pool stay attributable.
var connNo atomic.Uint64

// defaultLogger is used whenever a caller doesn't supply one.
var defaultLogger = slog.Default()

// newConnLogger returns a logger scoped to one connection, tagged with its
// ordinal and (when set) the owning pool's Name.
func newConnLogger(base *slog.Logger, poolName string) *slog.Logger {
	if base == nil {
		base = defaultLogger
	}
	logger := base.With(slog.Uint64("conn", connNo.Add(1)))
	if poolName != "" {
		logger = logger.With(slog.String("pool", poolName))
	}
	return logger
}
