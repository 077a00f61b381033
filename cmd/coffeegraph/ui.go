// # cmd/coffeegraph/ui.go
package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/core/errors"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// printError writes one styled line per failure. Aggregated exporter
// failures are split so every one is visible.
func printError(w io.Writer, err error) {
	for _, e := range failures(err) {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("[coffeegraph error: %s]", e.Error())))
	}
}

func failures(err error) []error {
	var agg *errors.AggregateError
	if stderrors.As(err, &agg) && len(agg.Errs) > 0 {
		return agg.Errs
	}
	return []error{err}
}

// formatSummary renders a short status block for watch mode and verbose runs.
func formatSummary(b *app.Build) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("coffeegraph"))
	sb.WriteString(" ")
	sb.WriteString(successStyle.Render(fmt.Sprintf("%d file(s) ordered", len(b.FileOrder))))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(fmt.Sprintf(
		"globals=%d nodes=%d edges=%d unresolved=%d in %s",
		b.Stats.Globals, b.Stats.Nodes, b.Stats.Edges, b.Stats.Unresolved, b.Duration.Round(time.Millisecond),
	)))
	return sb.String()
}

func formatChain(chain []string) string {
	return strings.Join(chain, "\n  -> ")
}
