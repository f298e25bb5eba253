package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/PaddyThePaddy/crlf/pkg/converter"
)

// View renders header, file list, an optional fatal error and the summary footer.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return phaseInitializing
	}

	headerLeft := fmt.Sprintf("crlf v%s · %s", m.version, m.action)
	headerRight := m.phaseMessage
	if m.phaseMessage == phaseComplete {
		headerRight = phaseComplete + " (q to exit)"
	} else if m.phaseMessage != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := HeaderStyle.Width(m.width).Render(spread(m.width-HeaderStyle.GetHorizontalFrameSize(), headerLeft, headerRight))

	footer := FooterStyle.Width(m.width).Render(spread(m.width-FooterStyle.GetHorizontalFrameSize(), m.summaryLine(), "q: quit"))

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		errorView,
		footer,
	)
}

func (m *Model) summaryLine() string {
	elapsed := m.summary.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(m.summary.StartTime)
	}
	parts := []string{fmt.Sprintf("Files: %d", m.summary.TotalFilesScanned)}
	if m.action.IsConversion() {
		parts = append(parts,
			fmt.Sprintf("Changed: %d", m.summary.ChangedCount),
			fmt.Sprintf("Unchanged: %d", m.summary.UnchangedCount))
	} else {
		parts = append(parts,
			fmt.Sprintf("Measured: %d", m.summary.MeasuredCount),
			fmt.Sprintf("Cached: %d", m.summary.CachedCount))
	}
	if m.phaseMessage == phaseComplete {
		parts = append(parts, fmt.Sprintf("CRLF: %d LF: %d Mixed: %d",
			m.summary.CRLFFiles, m.summary.LFFiles, m.summary.MixedFiles))
	}
	parts = append(parts,
		fmt.Sprintf("Skipped: %d", m.summary.SkippedCount),
		fmt.Sprintf("Failed: %d", m.summary.ErrorCount),
		fmt.Sprintf("Elapsed: %s", elapsed.Round(time.Millisecond)))
	return strings.Join(parts, " | ")
}

// spread places left and right at the edges of a line of the given width.
func spread(width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap <= 0 {
		return left + " " + right
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right)
}

// FilterValue implements list.Item.
func (i listItem) FilterValue() string { return i.path }

// Title implements list.DefaultItem.
func (i listItem) Title() string { return i.path }

// Description implements list.DefaultItem.
func (i listItem) Description() string {
	style, icon := statusStyle(i.status)
	statusStr := style.Render(fmt.Sprintf("[%s]", icon))

	var details []string
	if i.ending != "" {
		details = append(details, EndingStyle(nil, i.ending).Render(i.ending))
	}
	switch i.status {
	case converter.StatusFailed:
		details = append(details, i.message)
	case converter.StatusSkipped:
		reason, _, _ := strings.Cut(i.message, ":")
		details = append(details, strings.TrimSpace(reason))
	case converter.StatusSuccess, converter.StatusUnchanged, converter.StatusCached:
		if i.message != "" {
			details = append(details, i.message)
		}
		if d := formatDuration(i.duration); d != "" {
			details = append(details, d)
		}
	}
	if len(details) == 0 {
		return statusStr
	}
	return statusStr + " " + strings.Join(details, " ")
}

// formatDuration formats a processing time for display; zero renders as "".
func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return ""
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
