package watch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/samber/lo"
)

// VisitFunc is called by Walk for each directory found.
type VisitFunc func(dir string) error

type walkOptions struct {
	ignore []glob.Glob
}

// WalkOption configures Walk.
type WalkOption func(*walkOptions)

// WithIgnore skips any directory below the root whose base name or
// root-relative slash path matches one of the patterns. Skipped directories
// are neither visited nor descended into.
func WithIgnore(patterns ...glob.Glob) WalkOption {
	return func(o *walkOptions) {
		o.ignore = append(o.ignore, patterns...)
	}
}

// CompileIgnore compiles glob patterns for use with WithIgnore.
func CompileIgnore(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Walk calls visit for root and then for every directory beneath it,
// pre-order, in directory listing order. Symlinks are not followed. If root
// is not a directory Walk does nothing. A listing failure aborts the walk
// with an *EnumerationError; an error from visit aborts it unchanged.
func Walk(root string, visit VisitFunc, opts ...WalkOption) error {
	var o walkOptions
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil //nolint:nilerr // a missing or non-directory root is not an error
	}

	return walkDir(root, root, visit, &o)
}

func walkDir(root, dir string, visit VisitFunc, o *walkOptions) error {
	if err := visit(dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return &EnumerationError{Path: dir, Err: err}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if o.skip(root, child) {
			continue
		}
		if err := walkDir(root, child, visit, o); err != nil {
			return err
		}
	}

	return nil
}

func (o *walkOptions) skip(root, dir string) bool {
	if len(o.ignore) == 0 {
		return false
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = dir
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(dir)

	return lo.ContainsBy(o.ignore, func(g glob.Glob) bool {
		return g.Match(base) || g.Match(rel)
	})
}
