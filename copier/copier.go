// ABOUTME: Mirror copy of single files into <dest>/<source-root-name>/<relative path>.
// ABOUTME: Files are written to a temp name and renamed so an interrupted copy never looks complete.
package copier

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when the source path is not below its root.
var ErrOutsideRoot = errors.New("source path outside source root")

// Result describes one completed copy.
type Result struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
	Bytes  int64  `json:"bytes"`
}

// Executor copies one file, recreating its path relative to sourceRoot under
// destRoot.
type Executor interface {
	CopyOne(sourceRoot, sourcePath, destRoot string) (Result, error)
}

// Mirror is the filesystem Executor. It preserves file mode and modification
// time.
type Mirror struct{}

var _ Executor = Mirror{}

// Destination returns where sourcePath lands under destRoot without copying.
func Destination(sourceRoot, sourcePath, destRoot string) (string, error) {
	root := filepath.Clean(sourceRoot)
	rel, err := filepath.Rel(root, filepath.Clean(sourcePath))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, sourcePath)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, sourcePath)
	}
	return filepath.Join(destRoot, rootName(root), rel), nil
}

// CopyOne copies sourcePath into destRoot, creating parent directories.
func (Mirror) CopyOne(sourceRoot, sourcePath, destRoot string) (Result, error) {
	dest, err := Destination(sourceRoot, sourcePath, destRoot)
	if err != nil {
		return Result{}, err
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, fmt.Errorf("copy %s: not a regular file", sourcePath)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Result{}, fmt.Errorf("create destination dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".ark-copy-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, src)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("copy bytes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("set mode: %w", err)
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("set times: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return Result{}, fmt.Errorf("rename into place: %w", err)
	}
	return Result{Source: sourcePath, Dest: dest, Bytes: n}, nil
}

// rootName is the directory name the root is mirrored under. Filesystem roots
// such as "/" or "C:\" have no base name and map to "root".
func rootName(root string) string {
	base := filepath.Base(root)
	if base == string(filepath.Separator) || base == "." || strings.HasSuffix(base, ":") || base == "" {
		return "root"
	}
	return base
}
