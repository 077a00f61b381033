package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/shared/util"
)

// JoinExporter writes every source file into Path in dependency order. With
// CompileCommand set, each file is piped through the command instead (the
// file path is appended as last argument and stdout is collected).
type JoinExporter struct {
	Path           string
	CompileCommand string
	// Log receives progress lines; nil discards them.
	Log io.Writer
}

func (j *JoinExporter) Export(ctx context.Context, b *app.Build) error {
	if strings.TrimSpace(j.Path) == "" {
		return fmt.Errorf("join output path is empty")
	}
	logw := j.Log
	if logw == nil {
		logw = io.Discard
	}

	var argv []string
	if j.CompileCommand != "" {
		argv = strings.Fields(j.CompileCommand)
	}

	var buf bytes.Buffer
	if len(argv) > 0 {
		fmt.Fprintf(&buf, "// Compiled with %s\n\n", j.CompileCommand)
	}
	for _, file := range b.FileOrder {
		var (
			content []byte
			err     error
		)
		if len(argv) > 0 {
			fmt.Fprintf(logw, "Compiling: %s\n", file)
			content, err = compile(ctx, argv, file)
		} else {
			content, err = os.ReadFile(file)
		}
		if err != nil {
			return err
		}
		buf.Write(bytes.TrimRight(content, "\n"))
		buf.WriteString("\n\n")
	}

	if err := util.WriteFileWithDirs(j.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", j.Path, err)
	}
	fmt.Fprintf(logw, "Wrote %d file(s) -> %s\n", len(b.FileOrder), j.Path)
	return nil
}

func compile(ctx context.Context, argv []string, file string) ([]byte, error) {
	args := append(append([]string(nil), argv[1:]...), file)
	cmd := exec.CommandContext(ctx, argv[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w: %s", file, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
