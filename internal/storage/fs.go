package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"github.com/starford/fsdocs/internal/apperr"
)

// TempPrefix starts the name of every in-flight atomic write.
const TempPrefix = ".fsdocs-tmp-"

// FS implements Provider on top of an afero filesystem.
type FS struct {
	fs afero.Fs
}

// NewFS wraps an afero filesystem.
func NewFS(fsys afero.Fs) *FS {
	return &FS{fs: fsys}
}

// NewOSFS returns a provider backed by the local file system.
func NewOSFS() *FS {
	return NewFS(afero.NewOsFs())
}

// EnsureDir creates path and its parents. It fails with
// apperr.ErrNotDirectory when path or its closest existing ancestor is a
// regular file; MemMapFs would otherwise create directories beneath it.
func (f *FS) EnsureDir(path string) error {
	if err := f.checkDirChain(path); err != nil {
		return err
	}
	if err := f.fs.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (f *FS) Exists(path string) (bool, error) {
	info, err := f.stat(path)
	return info != nil, err
}

// IsDir reports whether path is a directory. A missing path is not one.
func (f *FS) IsDir(path string) (bool, error) {
	info, err := f.stat(path)
	return info != nil && info.IsDir(), err
}

// stat returns nil info when nothing is at path, including when a parent
// is a regular file.
func (f *FS) stat(path string) (os.FileInfo, error) {
	info, err := f.fs.Stat(path)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return nil, nil
	default:
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}
}

// checkDirChain walks up from path to the first entry that exists and
// requires it to be a directory.
func (f *FS) checkDirChain(path string) error {
	p := filepath.Clean(path)
	for {
		info, err := f.stat(p)
		if err != nil {
			return err
		}
		if info != nil {
			if !info.IsDir() {
				return fmt.Errorf("storage: mkdir %s: %s: %w", path, p, apperr.ErrNotDirectory)
			}
			return nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return nil
		}
		p = parent
	}
}

// ReadText returns the file content as a string.
func (f *FS) ReadText(path string) (string, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteText atomically writes content: tmp file → fsync → rename.
// A directory at path is never replaced; afero's MemMapFs would overwrite it.
func (f *FS) WriteText(path string, content string) error {
	isDir, err := f.IsDir(path)
	if err != nil {
		return err
	}
	if isDir {
		return fmt.Errorf("storage: write %s: %w", path, apperr.ErrIsDirectory)
	}

	dir := filepath.Dir(path)
	if err := f.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := afero.TempFile(f.fs, dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = f.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := f.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// CreateExclusive creates an empty file, failing if path already exists.
func (f *FS) CreateExclusive(path string) error {
	if err := f.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	file, err := f.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("storage: create %s: %w", path, fs.ErrExist)
		}
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", path, err)
	}
	return nil
}

// RemoveFile deletes a regular file.
func (f *FS) RemoveFile(path string) error {
	if err := f.fs.Remove(path); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// RemoveEmptyDir deletes a directory that has no entries. Emptiness is
// checked up front; afero's MemMapFs removes non-empty directories.
func (f *FS) RemoveEmptyDir(path string) error {
	entries, err := f.ListEntries(path)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("storage: delete %s: %w", path, apperr.ErrDirectoryNotEmpty)
	}
	if err := f.fs.Remove(path); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// ListEntries returns the names directly inside path, sorted.
func (f *FS) ListEntries(path string) ([]string, error) {
	infos, err := afero.ReadDir(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", path, err)
	}
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.Name())
	}
	return out, nil
}
