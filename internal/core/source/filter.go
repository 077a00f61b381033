// # internal/core/source/filter.go
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"coffeegraph/internal/shared/util"

	"github.com/gobwas/glob"
)

// Filter decides which directories are walked and which files are sources.
type Filter struct {
	extensions   map[string]bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func NewFilter(extensions, excludeDirs, excludeFiles []string) (*Filter, error) {
	f := &Filter{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = true
	}
	if len(f.extensions) == 0 {
		f.extensions[".coffee"] = true
	}

	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		f.excludeDirs = append(f.excludeDirs, g)
	}
	for _, p := range excludeFiles {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		f.excludeFiles = append(f.excludeFiles, g)
	}
	return f, nil
}

// SkipDir reports whether the directory at path must not be descended into.
func (f *Filter) SkipDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range f.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Excluded reports whether path matches an exclude_files pattern, either by
// base name or by its slash-separated path.
func (f *Filter) Excluded(path string) bool {
	base := filepath.Base(path)
	normalized := util.NormalizePatternPath(path)
	for _, g := range f.excludeFiles {
		if g.Match(base) || g.Match(normalized) {
			return true
		}
	}
	return false
}

// Accept reports whether path has a source extension and is not excluded.
func (f *Filter) Accept(path string) bool {
	if !f.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	return !f.Excluded(path)
}
