package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/PaddyThePaddy/crlf/internal/cli/ui"
	"github.com/PaddyThePaddy/crlf/pkg/converter"
	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
)

// textPrinter writes the per-file lines of the text output format. Colors are
// applied only when the renderer's writer is a color-capable terminal.
type textPrinter struct {
	w        io.Writer
	renderer *lipgloss.Renderer
}

func newTextPrinter(w io.Writer) *textPrinter {
	return &textPrinter{w: w, renderer: lipgloss.NewRenderer(w)}
}

func (p *textPrinter) style(ending string) lipgloss.Style {
	return ui.EndingStyle(p.renderer, ending)
}

// indicator returns "C", "L" or "X" (mixed or no line endings).
func indicator(stats lineending.Stats) (string, string) {
	if ending, ok := stats.Classify(); ok {
		switch ending {
		case lineending.CRLF:
			return "C", converter.EndingCRLF
		case lineending.LF:
			return "L", converter.EndingLF
		}
	}
	return "X", converter.EndingMixed
}

// printMeasurement writes "<C|L|X>, crlf: %4d, lf: %4d, <path>".
func (p *textPrinter) printMeasurement(f converter.FileResult) error {
	ind, ending := indicator(f.Stats())
	_, err := fmt.Fprintf(p.w, "%s, %s, %s, %s\n",
		p.style(ending).Render(ind),
		p.style(converter.EndingCRLF).Render(fmt.Sprintf("crlf: %4d", f.CRLF)),
		p.style(converter.EndingLF).Render(fmt.Sprintf("lf: %4d", f.LF)),
		f.Path)
	return err
}

// printConversion writes "set <path> to <target>".
func (p *textPrinter) printConversion(f converter.FileResult, dryRun bool) error {
	line := fmt.Sprintf("set %s to %s", f.Path, p.style(f.Target).Render(f.Target))
	if dryRun && f.Changed {
		line += " (dry run)"
	}
	_, err := fmt.Fprintln(p.w, line)
	return err
}

// writeText prints one line per measured or converted file, in path order.
func writeText(w io.Writer, report converter.Report) error {
	p := newTextPrinter(w)
	for _, f := range report.Files {
		var err error
		if report.Summary.Action.IsConversion() {
			err = p.printConversion(f, report.Summary.DryRun)
		} else {
			err = p.printMeasurement(f)
		}
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// writeSkippedSummary writes one line counting skipped files by reason, e.g.
// "skipped 2 files (binary_file: 1, vendored: 1)". Nothing is written when no
// file was skipped.
func writeSkippedSummary(w io.Writer, report converter.Report) error {
	if len(report.Skipped) == 0 {
		return nil
	}
	byReason := make(map[string]int)
	for _, s := range report.Skipped {
		byReason[s.Reason]++
	}
	reasons := make([]string, 0, len(byReason))
	for reason := range byReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	parts := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		parts = append(parts, fmt.Sprintf("%s: %d", reason, byReason[reason]))
	}
	noun := "files"
	if len(report.Skipped) == 1 {
		noun = "file"
	}
	_, err := fmt.Fprintf(w, "skipped %d %s (%s)\n", len(report.Skipped), noun, strings.Join(parts, ", "))
	return err
}

// writeReport renders report in the configured output format.
func writeReport(w io.Writer, report converter.Report, format converter.OutputFormat) error {
	if format == converter.OutputFormatText || format == "" {
		return writeText(w, report)
	}
	return converter.EncodeReport(w, report, format)
}
