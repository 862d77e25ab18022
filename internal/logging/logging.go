// Package logging provides the compositing core's shared logger seam.
// Output is silent by default; a driver (cmd/slcompose or an embedding
// test harness) opts in with SetLogger. Modeled directly on
// gogpu-gg's package-level SetLogger/Logger/nopHandler pattern.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

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

// SetLogger configures the logger used by every scheduler and the
// simulation harness. Pass nil to restore silent default behavior.
//
// Log levels used by this module:
//   - [slog.LevelInfo]: compose start/finish in the simulation harness
//
// The schedulers themselves do not log.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
