// Package storage defines the byte-storage capability the document store is
// built on.
package storage

// Provider is the interface for document file operations. All paths are
// absolute; confinement is enforced by the caller.
type Provider interface {
	// EnsureDir creates path and any missing parents. Idempotent. Fails with
	// apperr.ErrNotDirectory if a regular file is in the way.
	EnsureDir(path string) error
	// Exists reports whether anything exists at path.
	Exists(path string) (bool, error)
	// IsDir reports whether path is a directory; false if nothing is there.
	IsDir(path string) (bool, error)
	// ReadText returns the content of the file at path.
	ReadText(path string) (string, error)
	// WriteText atomically writes content to path, creating parent
	// directories. Fails with apperr.ErrIsDirectory if path is a directory.
	WriteText(path string, content string) error
	// CreateExclusive creates an empty file at path, failing with fs.ErrExist
	// if anything is already there.
	CreateExclusive(path string) error
	// RemoveFile removes the file at path.
	RemoveFile(path string) error
	// RemoveEmptyDir removes the directory at path; it fails if the
	// directory has entries.
	RemoveEmptyDir(path string) error
	// ListEntries returns the sorted names directly inside path.
	ListEntries(path string) ([]string, error)
}
