// Package format knows the supported document types and turns caller content
// into the text written to disk.
package format

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/fsdocs/internal/apperr"
)

// Supported extensions, with the leading dot.
const (
	ExtMarkdown = ".md"
	ExtJSON     = ".json"
	ExtText     = ".txt"
	ExtCSV      = ".csv"
)

var supported = []string{ExtMarkdown, ExtJSON, ExtText, ExtCSV}

// Extensions returns the supported extensions.
func Extensions() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// Supported reports whether ext is one of the supported extensions.
// Matching is exact and case-sensitive.
func Supported(ext string) bool {
	for _, s := range supported {
		if s == ext {
			return true
		}
	}
	return false
}

// CheckExtension returns ErrUnsupportedFileType for anything Supported rejects.
func CheckExtension(ext string) error {
	if !Supported(ext) {
		return fmt.Errorf("%w: %q", apperr.ErrUnsupportedFileType, ext)
	}
	return nil
}

// Encode converts content to the text stored for a document with extension ext.
//
// Strings and byte slices are written verbatim. For .json any other value is
// JSON-encoded; .csv accepts [][]string records; .md accepts Markdown. All
// remaining values use their fmt textual representation.
func Encode(ext string, content any) (string, error) {
	if err := CheckExtension(ext); err != nil {
		return "", err
	}

	switch v := content.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	}

	switch ext {
	case ExtJSON:
		data, err := json.Marshal(content)
		if err != nil {
			return "", fmt.Errorf("%w: %v", apperr.ErrInvalidContent, err)
		}
		return string(data), nil
	case ExtCSV:
		if records, ok := content.([][]string); ok {
			return encodeCSV(records)
		}
	case ExtMarkdown:
		switch v := content.(type) {
		case Markdown:
			return v.Render()
		case *Markdown:
			if v != nil {
				return v.Render()
			}
			return "", nil
		}
	}

	return fmt.Sprint(content), nil
}

func encodeCSV(records [][]string) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidContent, err)
	}
	return b.String(), nil
}

// DecodeJSON unmarshals text into v.
func DecodeJSON(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("format: decode json: %w", err)
	}
	return nil
}

// DecodeCSV parses text into records. Rows may have differing field counts.
func DecodeCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("format: decode csv: %w", err)
	}
	return records, nil
}
