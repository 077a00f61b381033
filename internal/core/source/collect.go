package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"coffeegraph/internal/shared/util"
)

// Collect expands paths into canonical source files. Directories are walked
// recursively through the filter; files named explicitly are kept unless an
// exclude pattern matches them. The result keeps walk order and holds each
// file once.
func Collect(paths []string, filter *Filter) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			if filter.Excluded(root) {
				continue
			}
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && filter.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if filter.Accept(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	canonical := make([]string, 0, len(files))
	for _, f := range files {
		p, err := util.CanonicalPath(f)
		if err != nil {
			return nil, err
		}
		canonical = append(canonical, p)
	}
	return util.Unique(canonical), nil
}
