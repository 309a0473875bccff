package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tphakala/audiophile/internal/logger"
)

// Scan lists the files under dir whose extension is in exts, sorted by
// path. Subdirectories are visited only when recursive is set. Unreadable
// subdirectories are skipped; an unreadable dir is an error.
func Scan(ctx context.Context, dir string, exts []string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			GetLogger().Debug("skipping unreadable path", logger.String("path", path), logger.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// FileName returns the base name of path without its extension.
func FileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
