// Package testutil provides shared test helpers for setting up document roots.
package testutil

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/starford/fsdocs/internal/storage"
)

// MemRoot is the root directory used by in-memory test stores.
const MemRoot = "/tmp/store"

// MemStorage creates an in-memory storage with MemRoot already present.
// The backing afero.Fs is returned for direct inspection.
func MemStorage(t *testing.T) (*storage.FS, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	if err := mem.MkdirAll(MemRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	return storage.NewFS(mem), mem
}

// DiskStorage creates a temporary directory backed by the OS file system.
func DiskStorage(t *testing.T) (string, *storage.FS) {
	t.Helper()
	return t.TempDir(), storage.NewOSFS()
}
