package darkroom

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/darkroom/internal/cpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for darkroom and its backends.
// By default nothing is logged. Pass nil to restore the silent default.
//
// Log levels used by darkroom:
//   - [slog.LevelDebug]: uploads, target allocation, render timings
//   - [slog.LevelInfo]: device selection, pipeline and editor lifecycle
//   - [slog.LevelWarn]: colour-science fallbacks, software fallback
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	cpu.SetLogger(l)
	setGPULogger(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
