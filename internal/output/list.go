// # internal/output/list.go
package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"coffeegraph/internal/core/app"
)

// ListExporter prints the ordered file list, space separated on one line or
// one file per line.
type ListExporter struct {
	W       io.Writer
	PerLine bool
}

func (l *ListExporter) Export(_ context.Context, b *app.Build) error {
	_, err := io.WriteString(l.W, formatList(b.FileOrder, l.PerLine))
	return err
}

func formatList(files []string, perLine bool) string {
	if len(files) == 0 {
		return ""
	}
	if perLine {
		return strings.Join(files, "\n") + "\n"
	}
	return fmt.Sprintln(strings.Join(files, " "))
}
