// Package apperr defines the error kinds reported by the document store.
package apperr

import "errors"

var (
	ErrInvalidRootPath         = errors.New("invalid root path")
	ErrPathPolicyViolation     = errors.New("path policy violation")
	ErrUnsupportedFileType     = errors.New("file type not supported")
	ErrFileNotFound            = errors.New("file not found")
	ErrDirectoryNotEmpty       = errors.New("directory not empty")
	ErrNameResolutionExhausted = errors.New("name resolution exhausted")
	ErrInvalidBaseName         = errors.New("invalid base name")
	ErrInvalidContent          = errors.New("invalid content")
	ErrNotDirectory            = errors.New("not a directory")
	ErrIsDirectory             = errors.New("is a directory")
)
