// Package discovery walks a root directory to find git working copies.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMetadataDir marks a git working-copy root.
const DefaultMetadataDir = ".git"

// ErrNotDirectory is returned when the walk root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Options configures the discovery walk.
type Options struct {
	Exclude     []string // doublestar patterns matched against absolute paths
	MetadataDir string   // defaults to DefaultMetadataDir
}

// Walk returns the absolute paths, sorted, of every directory under root
// (root included) that contains a metadata directory. It does not descend
// into metadata directories or excluded paths, but it does descend below a
// working-copy root so nested clones are found. Symlinked directories are
// not followed. Unreadable subdirectories are skipped; only a missing or
// unreadable root is an error.
func Walk(ctx context.Context, root string, opts Options) ([]string, error) {
	meta := opts.MetadataDir
	if meta == "" {
		meta = DefaultMetadataDir
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		if info, lerr := os.Lstat(absRoot); lerr == nil && info.Mode()&os.ModeSymlink != 0 {
			absRoot = resolved
		}
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover %s: %w", root, ErrNotDirectory)
	}

	var found []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == absRoot {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == meta {
			return fs.SkipDir
		}
		if path != absRoot && MatchesExclude(path, opts.Exclude) {
			return fs.SkipDir
		}
		if isWorkingCopy(path, meta) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

// MatchesExclude checks whether a path matches any of the given exclude
// glob patterns.
func MatchesExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashPath := filepath.ToSlash(path)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		match, err := doublestar.Match(pattern, slashPath)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}

func isWorkingCopy(dir, meta string) bool {
	info, err := os.Stat(filepath.Join(dir, meta))
	return err == nil && info.IsDir()
}
