// Package fileops implements file mutations scoped to a project root.
//
// Every path handed to a Workspace is resolved against the root; a path that
// escapes it is rejected with domain.ErrValidation before any I/O happens.
package fileops

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/afero"
)

// DefaultMaxFileSize caps reads and writes.
const DefaultMaxFileSize int64 = 5 << 20

// IgnoredDirs are skipped by recursive walks in addition to dot-directories.
var IgnoredDirs = map[string]bool{
	"node_modules": true,
	"build":        true,
	"dist":         true,
}

// Workspace is a root-scoped view over a file system.
type Workspace struct {
	fs          afero.Fs
	root        string
	maxFileSize int64
	logger      *slog.Logger
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithFs swaps the backing file system, e.g. afero.NewMemMapFs() in tests.
func WithFs(fs afero.Fs) Option {
	return func(w *Workspace) { w.fs = fs }
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.maxFileSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// New creates a Workspace rooted at root, which must be absolute once cleaned.
func New(root string, opts ...Option) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: project root is required", domain.ErrValidation)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	w := &Workspace{
		fs:          afero.NewOsFs(),
		root:        abs,
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the absolute project root.
func (w *Workspace) Root() string { return w.root }

// Fs exposes the backing file system.
func (w *Workspace) Fs() afero.Fs { return w.fs }

// Resolve maps a project-relative (or absolute, in-root) path to an absolute path.
func (w *Workspace) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: path is required", domain.ErrValidation)
	}
	p := filepath.FromSlash(path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(w.root, p)
	}
	p = filepath.Clean(p)

	if !within(w.root, p) {
		return "", fmt.Errorf("%w: path %q escapes the project root", domain.ErrValidation, path)
	}
	if _, ok := w.fs.(*afero.OsFs); ok {
		inside, err := w.withinReal(p)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		if !inside {
			return "", fmt.Errorf("%w: path %q links outside the project root", domain.ErrValidation, path)
		}
	}
	return p, nil
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// withinReal repeats the containment check after following symlinks on
// both the root and target.
func (w *Workspace) withinReal(p string) (bool, error) {
	root, err := realPath(w.root)
	if err != nil {
		return false, err
	}
	target, err := realPath(p)
	if err != nil {
		return false, err
	}
	return within(root, target), nil
}

// realPath evaluates symlinks on the nearest existing ancestor of p and
// re-attaches the part that does not exist yet. Dangling links are followed
// by hand so a write cannot create their target outside the root.
func realPath(p string) (string, error) {
	current := p
	var missing []string
	for hops := 0; ; {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		if _, lerr := os.Lstat(current); lerr == nil {
			dest, err := os.Readlink(current)
			if err != nil {
				return "", err
			}
			if hops++; hops > 40 {
				return "", fmt.Errorf("too many links in %s", p)
			}
			if !filepath.IsAbs(dest) {
				dest = filepath.Join(filepath.Dir(current), dest)
			}
			current = dest
			continue
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		missing = append(missing, filepath.Base(current))
		current = parent
	}
}

// Rel returns the slash-separated project-relative form of an absolute path.
func (w *Workspace) Rel(abs string) string {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// Exists reports whether path resolves to an existing entry.
func (w *Workspace) Exists(path string) bool {
	abs, err := w.Resolve(path)
	if err != nil {
		return false
	}
	_, err = w.fs.Stat(abs)
	return err == nil
}

func (w *Workspace) stat(path string) (string, os.FileInfo, error) {
	abs, err := w.Resolve(path)
	if err != nil {
		return "", nil, err
	}
	info, err := w.fs.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil, w.notFound(path)
		}
		return abs, nil, err
	}
	return abs, info, nil
}

func (w *Workspace) mustBeAbsent(path string) (string, error) {
	abs, err := w.Resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := w.fs.Stat(abs); err == nil {
		return "", fmt.Errorf("%w: destination %q already exists", domain.ErrConflict, path)
	}
	return abs, nil
}

// notFound builds an ErrNotFound carrying up to three close matches.
func (w *Workspace) notFound(path string) error {
	var candidates []string
	_ = w.Walk(".", func(rel string, info os.FileInfo) error {
		if len(candidates) >= 5000 {
			return filepath.SkipAll
		}
		candidates = append(candidates, rel)
		return nil
	})

	matches := fuzzy.Find(filepath.ToSlash(path), candidates)
	if len(matches) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	var hints []string
	for i, m := range matches {
		if i == 3 {
			break
		}
		hints = append(hints, m.Str)
	}
	return fmt.Errorf("%w: %s (did you mean: %s?)", domain.ErrNotFound, path, strings.Join(hints, ", "))
}

// Walk visits every entry under dir in lexical order, skipping dot-directories
// and IgnoredDirs. fn receives project-relative slash paths.
func (w *Workspace) Walk(dir string, fn func(rel string, info os.FileInfo) error) error {
	abs, err := w.Resolve(dir)
	if err != nil {
		return err
	}
	err = afero.Walk(w.fs, abs, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == abs {
			return nil
		}
		if info.IsDir() && skipDir(info.Name()) {
			return filepath.SkipDir
		}
		return fn(w.Rel(p), info)
	})
	if err == filepath.SkipAll {
		return nil
	}
	return err
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || IgnoredDirs[name]
}
