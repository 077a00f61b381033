package output

import (
	"context"
	"errors"

	"coffeegraph/internal/core/app"

	"github.com/atotto/clipboard"
)

var errClipboardUnsupported = errors.New("clipboard is not supported on this platform")

// ClipboardExporter copies the ordered file list to the system clipboard.
type ClipboardExporter struct {
	PerLine bool
	write   func(string) error
}

func NewClipboardExporter(perLine bool) *ClipboardExporter {
	return &ClipboardExporter{PerLine: perLine}
}

func (c *ClipboardExporter) Export(_ context.Context, b *app.Build) error {
	write := c.write
	if write == nil {
		if clipboard.Unsupported {
			return errClipboardUnsupported
		}
		write = clipboard.WriteAll
	}
	return write(formatList(b.FileOrder, c.PerLine))
}
