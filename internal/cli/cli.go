package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/PaddyThePaddy/crlf/internal/cli/git"
	"github.com/PaddyThePaddy/crlf/internal/cli/hooks"
	"github.com/PaddyThePaddy/crlf/internal/cli/ui"
	"github.com/PaddyThePaddy/crlf/pkg/converter"
)

// ErrFilesFailed is returned when the run finished but at least one file failed.
var ErrFilesFailed = errors.New("one or more files failed")

// Streams are the writers a run reports to. Results go to Out; progress,
// the TUI and logs go to Err.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// DefaultStreams returns stdout and stderr.
func DefaultStreams() Streams {
	return Streams{Out: os.Stdout, Err: os.Stderr}
}

// Run wires the CLI front-ends onto the converter library, executes the run
// and prints the results.
func Run(ctx context.Context, opts converter.Options, logger *slog.Logger, streams Streams) error {
	if opts.SourceMode == converter.SourceGit && opts.FileLister == nil {
		opts.FileLister = git.NewFileLister(opts.Logger)
	}

	stderrIsTTY := isTerminal(streams.Err)
	tuiEnabled := opts.TuiEnabled && stderrIsTTY
	if opts.TuiEnabled && !stderrIsTTY {
		logger.Debug("TUI requested but stderr is not a terminal; disabling")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	var programDone chan error
	var progBar hooks.ProgressBar
	switch {
	case tuiEnabled:
		program = tea.NewProgram(ui.NewModel(opts.AppVersion, opts.Action),
			tea.WithOutput(streams.Err),
			tea.WithContext(runCtx))
		programDone = make(chan error, 1)
		go func() {
			_, err := program.Run()
			// Quitting the TUI stops the run.
			cancel()
			programDone <- err
		}()
	case stderrIsTTY && !opts.Verbose:
		progBar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(streams.Err),
			progressbar.OptionSetDescription(string(opts.Action)),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
	}

	var tuiProgram hooks.TUIProgram
	if program != nil {
		tuiProgram = &programSender{program: program}
	}
	cliHooks := hooks.NewCLIHooks(logger, tuiEnabled, opts.Verbose, tuiProgram, progBar)
	cliHooks.SetErrOutput(streams.Err)
	opts.EventHooks = cliHooks

	report, runErr := converter.Run(runCtx, opts)

	if programDone != nil {
		if tuiErr := <-programDone; tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
			logger.Warn("TUI exited with error", slog.String("error", tuiErr.Error()))
		}
	}

	if report.Summary.SchemaVersion == "" {
		// The run never started; there is nothing to print.
		return runErr
	}
	if err := writeReport(streams.Out, report, opts.OutputFormat); err != nil {
		logger.Error("Failed to write report", slog.String("error", err.Error()))
		if runErr == nil {
			runErr = err
		}
	}
	if opts.OutputFormat == converter.OutputFormatText {
		// Skipped files get no result line; make them visible on stderr.
		_ = writeSkippedSummary(streams.Err, report)
	}

	if runErr != nil {
		return runErr
	}
	if report.Summary.ErrorCount > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrFilesFailed, report.Summary.ErrorCount, report.Summary.TotalFiles)
	}
	return nil
}

// programSender adapts *tea.Program to hooks.TUIProgram.
type programSender struct {
	program *tea.Program
}

func (s *programSender) Send(msg interface{}) {
	s.program.Send(msg)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
