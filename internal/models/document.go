// Package models defines the value types handed back by the document store.
package models

import (
	"fmt"
	"time"

	"github.com/starford/fsdocs/internal/format"
)

// Document is the result of reading a path. A directory target yields its
// listing in Entries instead of Content.
type Document struct {
	Path     string   `json:"path"`
	IsDir    bool     `json:"is_dir"`
	Content  string   `json:"content,omitempty"`
	Entries  []string `json:"entries,omitempty"`
	Checksum string   `json:"checksum,omitempty"`
}

// JSON decodes the document content into v.
func (d *Document) JSON(v any) error {
	if d.IsDir {
		return fmt.Errorf("models: %s is a directory", d.Path)
	}
	return format.DecodeJSON(d.Content, v)
}

// Records parses the document content as CSV.
func (d *Document) Records() ([][]string, error) {
	if d.IsDir {
		return nil, fmt.Errorf("models: %s is a directory", d.Path)
	}
	return format.DecodeCSV(d.Content)
}

// Markdown splits the document content into frontmatter and body.
func (d *Document) Markdown() (*format.Markdown, error) {
	if d.IsDir {
		return nil, fmt.Errorf("models: %s is a directory", d.Path)
	}
	return format.ParseMarkdown(d.Content), nil
}

// Event kinds reported by the watcher.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event describes a change to a document under the store root.
type Event struct {
	Kind string    `json:"kind"`
	Path string    `json:"path"`
	Time time.Time `json:"time"`
}
