package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/fsdocs/internal/docstore"
	"github.com/starford/fsdocs/internal/models"
	"github.com/starford/fsdocs/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(ev models.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev.Kind+":"+ev.Path)
	r.mu.Unlock()
}

func (r *recorder) has(want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == want {
			return true
		}
	}
	return false
}

func (r *recorder) count(want string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == want {
			n++
		}
	}
	return n
}

// watcherTestEnv starts a watcher on a fresh store root.
func watcherTestEnv(t *testing.T) (string, *docstore.Store, *recorder) {
	t.Helper()
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "seeded.txt"), []byte("already here"), 0o644)

	store, err := docstore.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	go Run(ctx, store.Storage(), root, logger, rec.record)

	time.Sleep(100 * time.Millisecond)
	return root, store, rec
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_CreateUpdateDelete(t *testing.T) {
	_, store, rec := watcherTestEnv(t)
	ctx := context.Background()

	p, err := store.Create(ctx, ".", "new", ".md", "# New", false)
	if err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:new.md")
	}, "create not reported")

	if _, err := store.Update(ctx, p, "# Changed"); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("updated:new.md")
	}, "update not reported")

	if _, err := store.Delete(ctx, p); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("deleted:new.md")
	}, "delete not reported")
}

func TestWatcher_SeededFileUpdated(t *testing.T) {
	_, store, rec := watcherTestEnv(t)
	if _, err := store.Update(context.Background(), "seeded.txt", "changed"); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("updated:seeded.txt")
	}, "update of pre-existing file not reported")
	if rec.has("created:seeded.txt") {
		t.Error("pre-existing file reported as created")
	}
}

func TestWatcher_UnchangedWriteSuppressed(t *testing.T) {
	_, store, rec := watcherTestEnv(t)
	ctx := context.Background()
	if _, err := store.Update(ctx, "seeded.txt", "already here"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, ".", "marker", ".txt", "m", false); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:marker.txt")
	}, "marker not reported")
	if n := rec.count("updated:seeded.txt"); n != 0 {
		t.Errorf("unchanged write reported %d times", n)
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	_, store, rec := watcherTestEnv(t)
	if _, err := store.Create(context.Background(), "sub/deep", "nested", ".json", map[string]int{"a": 1}, false); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:" + filepath.Join("sub", "deep", "nested.json"))
	}, "document in new directory not reported")
}

func TestWatcher_IgnoresForeignFiles(t *testing.T) {
	root, _, rec := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(root, "script.js"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "after.csv"), []byte("1,2"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:after.csv")
	}, "csv not reported")
	if rec.has("created:script.js") {
		t.Error("unsupported file reported")
	}
}

// countingProvider counts reads that go through the storage layer.
type countingProvider struct {
	storage.Provider
	reads atomic.Int64
}

func (c *countingProvider) ReadText(path string) (string, error) {
	c.reads.Add(1)
	return c.Provider.ReadText(path)
}

func TestWatcher_ReadsThroughProvider(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "seeded.txt"), []byte("already here"), 0o644)
	store, err := docstore.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	counter := &countingProvider{Provider: store.Storage()}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rec := &recorder{}
	go Run(ctx, counter, root, logger, rec.record)
	time.Sleep(100 * time.Millisecond)

	if _, err := store.Create(context.Background(), ".", "fresh", ".txt", "new", false); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("created:fresh.txt")
	}, "create not reported")
	if n := counter.reads.Load(); n < 2 {
		t.Errorf("provider reads = %d, want seed and event reads", n)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	err := Run(context.Background(), storage.NewOSFS(), filepath.Join(t.TempDir(), "absent"), logger, nil)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestTracked(t *testing.T) {
	cases := map[string]bool{
		"/r/a.md":                   true,
		"/r/a.json":                 true,
		"/r/a.js":                   false,
		"/r/.fsdocs-tmp-123":        false,
		"/r/.fsdocs-tmp-123.txt":    false,
		"/r/dir/nested/records.csv": true,
	}
	for p, want := range cases {
		if got := tracked(p); got != want {
			t.Errorf("tracked(%q) = %v, want %v", p, got, want)
		}
	}
}
