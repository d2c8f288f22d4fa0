package fileops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/pkg/diff"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/spf13/afero"
)

// WriteStats describes a completed write.
type WriteStats struct {
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Lines   int    `json:"lines"`
	Created bool   `json:"created"`
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

const (
	EntryFile      = "file"
	EntryDirectory = "directory"
)

// Read returns the content of a file.
func (w *Workspace) Read(path string) (string, error) {
	abs, info, err := w.stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrValidation, path)
	}
	if info.Size() > w.maxFileSize {
		return "", fmt.Errorf("%w: %s is %d bytes (max %d)", domain.ErrLimitExceeded, path, info.Size(), w.maxFileSize)
	}
	data, err := afero.ReadFile(w.fs, abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Write fully overwrites path, creating parent directories as needed.
func (w *Workspace) Write(path, content string) (WriteStats, error) {
	abs, err := w.Resolve(path)
	if err != nil {
		return WriteStats{}, err
	}
	if abs == w.root {
		return WriteStats{}, fmt.Errorf("%w: cannot write to the project root", domain.ErrValidation)
	}
	if int64(len(content)) > w.maxFileSize {
		return WriteStats{}, fmt.Errorf("%w: content is %d bytes (max %d)", domain.ErrLimitExceeded, len(content), w.maxFileSize)
	}
	info, statErr := w.fs.Stat(abs)
	if statErr == nil && info.IsDir() {
		return WriteStats{}, fmt.Errorf("%w: %s is a directory", domain.ErrConflict, path)
	}

	if err := w.fs.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return WriteStats{}, fmt.Errorf("create parent of %s: %w", path, err)
	}
	if err := afero.WriteFile(w.fs, abs, []byte(content), 0o644); err != nil {
		return WriteStats{}, fmt.Errorf("write %s: %w", path, err)
	}
	w.logger.Debug("file written", "path", path, "bytes", len(content))
	return WriteStats{
		Path:    w.Rel(abs),
		Bytes:   len(content),
		Lines:   countLines(content),
		Created: os.IsNotExist(statErr),
	}, nil
}

// Append adds content to the end of path, creating it if missing.
func (w *Workspace) Append(path, content string) (WriteStats, error) {
	existing, err := w.readOptional(path)
	if err != nil {
		return WriteStats{}, err
	}
	return w.Write(path, existing+content)
}

// Prepend adds content to the start of path, creating it if missing.
func (w *Workspace) Prepend(path, content string) (WriteStats, error) {
	existing, err := w.readOptional(path)
	if err != nil {
		return WriteStats{}, err
	}
	return w.Write(path, content+existing)
}

func (w *Workspace) readOptional(path string) (string, error) {
	if !w.Exists(path) {
		if _, err := w.Resolve(path); err != nil {
			return "", err
		}
		return "", nil
	}
	return w.Read(path)
}

// Delete removes a file, or a directory recursively. It reports whether the
// target was a directory.
func (w *Workspace) Delete(path string) (bool, error) {
	abs, info, err := w.stat(path)
	if err != nil {
		return false, err
	}
	if abs == w.root {
		return false, fmt.Errorf("%w: refusing to delete the project root", domain.ErrValidation)
	}
	if err := w.fs.RemoveAll(abs); err != nil {
		return false, fmt.Errorf("delete %s: %w", path, err)
	}
	w.logger.Debug("path deleted", "path", path, "dir", info.IsDir())
	return info.IsDir(), nil
}

// Rename moves oldPath to newPath. The source must exist and the destination must not.
func (w *Workspace) Rename(oldPath, newPath string) error {
	src, _, err := w.stat(oldPath)
	if err != nil {
		return err
	}
	dst, err := w.mustBeAbsent(newPath)
	if err != nil {
		return err
	}
	if src == w.root {
		return fmt.Errorf("%w: cannot move the project root", domain.ErrValidation)
	}
	if err := w.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", newPath, err)
	}
	if err := w.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("rename %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Move is Rename under its tool name.
func (w *Workspace) Move(src, dst string) error {
	return w.Rename(src, dst)
}

// Copy duplicates a file or directory tree.
func (w *Workspace) Copy(srcPath, dstPath string) error {
	src, info, err := w.stat(srcPath)
	if err != nil {
		return err
	}
	dst, err := w.mustBeAbsent(dstPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.copyFile(src, dst, info.Mode())
	}
	if strings.HasPrefix(dst+string(filepath.Separator), src+string(filepath.Separator)) {
		return fmt.Errorf("%w: cannot copy %s into itself", domain.ErrValidation, srcPath)
	}
	return afero.Walk(w.fs, src, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return w.fs.MkdirAll(target, 0o755)
		}
		return w.copyFile(p, target, fi.Mode())
	})
}

func (w *Workspace) copyFile(src, dst string, mode os.FileMode) error {
	if err := w.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := w.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := w.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// EditLines deletes deleteCount lines starting at the 1-based startLine and
// inserts lines in their place.
func (w *Workspace) EditLines(path string, startLine, deleteCount int, insert []string) (WriteStats, error) {
	content, err := w.Read(path)
	if err != nil {
		return WriteStats{}, err
	}
	lines := diff.Split(content)
	if startLine < 1 || startLine > len(lines)+1 {
		return WriteStats{}, fmt.Errorf("%w: start line %d outside 1..%d", domain.ErrValidation, startLine, len(lines)+1)
	}
	idx := startLine - 1
	if deleteCount < 0 || idx+deleteCount > len(lines) {
		return WriteStats{}, fmt.Errorf("%w: cannot delete %d lines from line %d", domain.ErrValidation, deleteCount, startLine)
	}

	out := make([]string, 0, len(lines)-deleteCount+len(insert))
	out = append(out, lines[:idx]...)
	out = append(out, insert...)
	out = append(out, lines[idx+deleteCount:]...)
	return w.Write(path, diff.Join(out))
}

// ReplaceOnce substitutes the single occurrence of search.
func (w *Workspace) ReplaceOnce(path, search, replace string) (WriteStats, error) {
	return w.ReplaceBlocks(path, []Block{{Search: search, Replace: replace}})
}

// ReplaceBlocks applies every block in order against the evolving content.
// Each search text must occur exactly once; on any failure the file is left untouched.
func (w *Workspace) ReplaceBlocks(path string, blocks []Block) (WriteStats, error) {
	content, err := w.Read(path)
	if err != nil {
		return WriteStats{}, err
	}
	updated, err := ApplyBlocks(content, blocks)
	if err != nil {
		return WriteStats{}, fmt.Errorf("%s: %w", path, err)
	}
	return w.Write(path, updated)
}

// Patch applies a unified diff to path.
func (w *Workspace) Patch(path, patch string) (WriteStats, error) {
	content, err := w.Read(path)
	if err != nil {
		return WriteStats{}, err
	}
	updated, err := diff.Patch(content, patch)
	if err != nil {
		return WriteStats{}, fmt.Errorf("%s: %w", path, err)
	}
	return w.Write(path, updated)
}

// List returns the entries of dir. Recursive listings skip ignored directories.
func (w *Workspace) List(dir string, recursive bool) ([]Entry, error) {
	abs, info, err := w.stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrValidation, dir)
	}

	var entries []Entry
	if recursive {
		err = w.Walk(dir, func(rel string, fi os.FileInfo) error {
			entries = append(entries, toEntry(rel, fi))
			return nil
		})
		return entries, err
	}

	infos, err := afero.ReadDir(w.fs, abs)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	for _, fi := range infos {
		entries = append(entries, toEntry(w.Rel(filepath.Join(abs, fi.Name())), fi))
	}
	return entries, nil
}

func toEntry(rel string, fi os.FileInfo) Entry {
	e := Entry{Name: fi.Name(), Path: rel, Type: EntryFile, Size: fi.Size()}
	if fi.IsDir() {
		e.Type = EntryDirectory
		e.Size = 0
	}
	return e
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
