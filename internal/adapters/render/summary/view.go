package summary

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 24

type RenderOptions struct {
	Now time.Time
}

func renderRunView(run domain.RunSummary, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Run Summary"),
		renderRun(run, opts, s),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderHistoryView(runs []domain.RunSummary, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Run History"),
		s.header.Render(fmt.Sprintf("runs: %d", len(runs))),
	}

	if len(runs) == 0 {
		lines = append(lines, s.empty.Render("No runs recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, run := range runs {
		lines = append(lines, s.section.Render(renderRun(run, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderRun(run domain.RunSummary, opts RenderOptions, s styles) string {
	parts := []string{
		s.run.Render(fmt.Sprintf("%s -> %s (%s)", run.Topic, run.Sink, run.ID)),
		s.detail.Render(fmt.Sprintf("schema: %s  format: %s", orNA(run.Schema), orNA(run.Format))),
		deliveryLine(run, s),
		s.detail.Render(timingLine(run, opts)),
	}

	if run.Err != "" {
		parts = append(parts, s.failure.Render("error: "+run.Err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func deliveryLine(run domain.RunSummary, s styles) string {
	counts := fmt.Sprintf("%d/%d delivered", run.Delivered, run.Produced)
	if run.Failed > 0 {
		counts += fmt.Sprintf(", %d failed", run.Failed)
	}
	if pending := run.Pending(); pending > 0 {
		counts += fmt.Sprintf(", %d pending", pending)
	}
	if run.Requested != run.Produced {
		counts += fmt.Sprintf(" (requested %d)", run.Requested)
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderProgressBar(run, barWidth, s),
		" ",
		s.detail.Render(counts),
	)
}

func renderProgressBar(run domain.RunSummary, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	delivered, failed := 0, 0
	if run.Produced > 0 {
		delivered = cells(run.Delivered, run.Produced, width)
		failed = cells(run.Failed, run.Produced, width)
	}
	if delivered+failed > width {
		failed = width - delivered
	}
	empty := width - delivered - failed

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", delivered)),
		s.barFailed.Render(strings.Repeat("x", failed)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func cells(part, total, width int) int {
	n := int(math.Round(float64(width) * float64(part) / float64(total)))
	return max(0, min(n, width))
}

func timingLine(run domain.RunSummary, opts RenderOptions) string {
	started := "started " + formatStarted(run.StartedAt, opts.Now)
	if d := run.Duration(); d > 0 {
		return fmt.Sprintf("%s, took %s", started, d.Round(time.Millisecond))
	}
	return started
}

func formatStarted(startedAt, now time.Time) string {
	if startedAt.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return startedAt.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := startedAt.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return startedAt.Format("15:04:05")
	}

	return startedAt.Format("15:04 on 02 Jan")
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "n/a"
	}
	return value
}
