package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/converter"
)

// FileDiscoveredMsg signals that a file was selected for processing.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a file's processing status.
// For finished files Message carries the measured counts, e.g. "crlf: 3, lf: 0".
type FileStatusUpdateMsg struct {
	Path     string
	Status   converter.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg signals the completion of the entire run.
type RunCompleteMsg struct{ Report converter.Report }

// CLIHooks implements converter.Hooks, forwarding library events to the TUI,
// the progress bar or the logger.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	progressBar    ProgressBar
	errOut         io.Writer
	mu             sync.Mutex // guards progressBar
}

// TUIProgram is the part of *tea.Program the hooks use.
type TUIProgram interface {
	Send(msg interface{})
}

// ProgressBar is the part of *progressbar.ProgressBar the hooks use.
type ProgressBar interface {
	Add(num int) error
	Describe(description string)
	Close() error
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg interface{}) {}

// NewCLIHooks creates the hooks for one run. tuiProg and progBar may be nil.
// Without a TUI, a progress bar or verbose logging, only failures are logged.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar) *CLIHooks {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	return &CLIHooks{
		logger:         logger.With(slog.String("component", "hooks")),
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
		errOut:         os.Stderr,
	}
}

// SetErrOutput redirects the newline written after the progress bar closes.
func (h *CLIHooks) SetErrOutput(w io.Writer) {
	h.errOut = w
}

// OnFileDiscovered handles a file selected by the discoverer.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("File discovered", "path", path)
	}
	return nil
}

// OnFileStatusUpdate handles a status change. It is called concurrently by workers.
func (h *CLIHooks) OnFileStatusUpdate(path string, status converter.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Message:  message,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		logLevel := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			logKey := "message"
			if status == converter.StatusFailed {
				logKey = "error"
			}
			attrs = append(attrs, slog.String(logKey, message))
		}
		switch status {
		case converter.StatusSuccess, converter.StatusUnchanged, converter.StatusCached, converter.StatusSkipped:
			logLevel = slog.LevelInfo
		case converter.StatusFailed:
			logLevel = slog.LevelError
			logMsg = "File processing failed"
		}
		h.logger.Log(context.Background(), logLevel, logMsg, attrs...)
		return nil
	}

	if h.progressBar != nil {
		h.mu.Lock()
		if status.IsFinal() {
			_ = h.progressBar.Add(1)
			h.progressBar.Describe(filepath.Base(path))
		}
		h.mu.Unlock()
	}

	if status == converter.StatusFailed {
		h.logger.Error("File processing failed", "path", path, "error", message)
	}
	return nil
}

// OnRunComplete sends the report to the TUI or closes the progress bar.
func (h *CLIHooks) OnRunComplete(report converter.Report) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	if h.progressBar != nil {
		h.mu.Lock()
		_ = h.progressBar.Close()
		h.mu.Unlock()
		_, _ = fmt.Fprintln(h.errOut)
	}
	if h.verboseEnabled {
		h.logger.Debug("Run complete",
			slog.Int("files", report.Summary.TotalFiles),
			slog.Int("errors", report.Summary.ErrorCount),
			slog.Float64("durationSeconds", report.Summary.DurationSeconds))
	}
	return nil
}

var _ converter.Hooks = (*CLIHooks)(nil)
