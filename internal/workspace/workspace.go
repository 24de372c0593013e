// internal/workspace/workspace.go
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"groot/internal/errors"

	"go.uber.org/zap"
)

// DirName is the repository directory at the root of a working tree.
const DirName = ".groot"

// FindRoot searches for the working tree root by looking for the ".groot"
// directory in startDir and its parents.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotInitialized(fmt.Sprintf("no %s directory found from %s", DirName, startDir), nil)
}

// Workspace is the working tree around a repository directory.
type Workspace struct {
	Root   string
	Logger *zap.Logger
}

func New(root string, logger *zap.Logger) *Workspace {
	return &Workspace{Root: root, Logger: logger}
}

// Dir is the repository directory inside the tree.
func (w *Workspace) Dir() string {
	return filepath.Join(w.Root, DirName)
}

// Rel turns a user supplied path (absolute, or relative to the current
// directory) into a slash separated path relative to the root.
func (w *Workspace) Rel(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.FileRead(path, err)
	}

	rel, err := filepath.Rel(w.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ValidationError(fmt.Sprintf("%s is outside the working tree %s", path, w.Root))
	}

	rel = filepath.ToSlash(rel)
	if w.shouldIgnore(rel) {
		return "", errors.ValidationError(fmt.Sprintf("%s is inside the repository directory", path))
	}
	return rel, nil
}

// ReadFile reads a tree-relative path.
func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	content, err := os.ReadFile(w.Abs(rel))
	if err != nil {
		return nil, errors.FileRead(rel, err)
	}
	return content, nil
}

// Abs maps a tree-relative path back onto the filesystem.
func (w *Workspace) Abs(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

// Expand resolves user paths to tree-relative file paths. Directories are
// walked recursively, skipping the repository directory. Each file appears
// once, in the order first seen.
func (w *Workspace) Expand(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, errors.ValidationError("no paths specified")
	}

	var files []string
	processed := make(map[string]bool)

	for _, path := range paths {
		rel, err := w.Rel(path)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(w.Abs(rel))
		if err != nil {
			return nil, errors.FileRead(rel, err)
		}

		if !info.IsDir() {
			if !processed[rel] {
				processed[rel] = true
				files = append(files, rel)
			}
			continue
		}

		err = filepath.WalkDir(w.Abs(rel), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return errors.FileRead(p, err)
			}

			fileRel, err := filepath.Rel(w.Root, p)
			if err != nil {
				return err
			}
			fileRel = filepath.ToSlash(fileRel)

			if d.IsDir() {
				if fileRel != "." && w.shouldIgnore(fileRel) {
					return fs.SkipDir
				}
				return nil
			}
			if processed[fileRel] || w.shouldIgnore(fileRel) {
				return nil
			}

			processed[fileRel] = true
			files = append(files, fileRel)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	w.Logger.Debug("expanded paths",
		zap.Strings("args", paths),
		zap.Int("files", len(files)))
	return files, nil
}

// shouldIgnore reports whether a slash separated tree path lies inside a
// repository directory.
func (w *Workspace) shouldIgnore(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		switch part {
		case DirName, ".git":
			return true
		}
	}
	return false
}
