package freska

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/freska/graph"
	"github.com/gogpu/freska/nodes"
	"github.com/gogpu/freska/render"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for freska and its sub-packages
// (graph, nodes, render). By default freska produces no log output.
//
// Pass nil to restore the silent default.
//
// Log levels used by freska:
//   - [slog.LevelDebug]: node and link lifecycle, program creation
//   - [slog.LevelInfo]: capture start and stop, backend selection
//   - [slog.LevelWarn]: capture read failures, release errors, backend fallback
//   - [slog.LevelError]: draws and uploads that fail for a frame
//
// Example:
//
//	freska.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	graph.SetLogger(l)
	nodes.SetLogger(l)
	render.SetLogger(l)
}

// Logger returns the current logger used by freska.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
