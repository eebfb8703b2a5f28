package naming

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/fsdocs/internal/apperr"
	"github.com/starford/fsdocs/internal/storage"
	"github.com/starford/fsdocs/internal/testutil"
)

const dir = testutil.MemRoot

func memStorage(t *testing.T) *storage.FS {
	t.Helper()
	s, _ := testutil.MemStorage(t)
	return s
}

func touch(t *testing.T, s storage.Provider, name string) {
	t.Helper()
	if err := s.WriteText(filepath.Join(dir, name), "x"); err != nil {
		t.Fatalf("WriteText %s: %v", name, err)
	}
}

func TestCandidate(t *testing.T) {
	if got := Candidate(dir, "doc", ".txt", 0); got != "/tmp/store/doc.txt" {
		t.Errorf("n=0: %q", got)
	}
	if got := Candidate(dir, "doc", ".txt", 12); got != "/tmp/store/doc_12.txt" {
		t.Errorf("n=12: %q", got)
	}
}

func TestValidateBaseName(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "a/b", "../up"} {
		if err := ValidateBaseName(bad); !errors.Is(err, apperr.ErrInvalidBaseName) {
			t.Errorf("ValidateBaseName(%q) = %v", bad, err)
		}
	}
	for _, good := range []string{"my-test", "report.v2", "_", "a b"} {
		if err := ValidateBaseName(good); err != nil {
			t.Errorf("ValidateBaseName(%q) = %v", good, err)
		}
	}
}

func TestResolve_FreeName(t *testing.T) {
	for _, strategy := range []Strategy{Probe, Exclusive} {
		t.Run(strategy.String(), func(t *testing.T) {
			r := &Resolver{Storage: memStorage(t), Strategy: strategy}
			got, err := r.Resolve(context.Background(), dir, "tempfile", ".txt", false)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != "/tmp/store/tempfile.txt" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestResolve_ReplaceKeepsName(t *testing.T) {
	for _, strategy := range []Strategy{Probe, Exclusive} {
		t.Run(strategy.String(), func(t *testing.T) {
			s := memStorage(t)
			touch(t, s, "tempfile.txt")
			r := &Resolver{Storage: s, Strategy: strategy}
			got, err := r.Resolve(context.Background(), dir, "tempfile", ".txt", true)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != "/tmp/store/tempfile.txt" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestResolve_IncrementsAndReusesGap(t *testing.T) {
	for _, strategy := range []Strategy{Probe, Exclusive} {
		t.Run(strategy.String(), func(t *testing.T) {
			s := memStorage(t)
			r := &Resolver{Storage: s, Strategy: strategy}
			ctx := context.Background()

			want := []string{"my-test.json", "my-test_1.json", "my-test_2.json", "my-test_3.json"}
			for _, w := range want {
				got, err := r.Resolve(ctx, dir, "my-test", ".json", false)
				if err != nil {
					t.Fatalf("Resolve: %v", err)
				}
				if filepath.Base(got) != w {
					t.Fatalf("got %q, want %q", filepath.Base(got), w)
				}
				if strategy == Probe {
					touch(t, s, w)
				}
			}

			if err := s.RemoveFile(filepath.Join(dir, "my-test_1.json")); err != nil {
				t.Fatal(err)
			}
			got, err := r.Resolve(ctx, dir, "my-test", ".json", false)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if filepath.Base(got) != "my-test_1.json" {
				t.Errorf("gap not reused: %q", got)
			}
		})
	}
}

func TestResolve_ExtensionsIndependent(t *testing.T) {
	s := memStorage(t)
	touch(t, s, "doc.txt")
	r := &Resolver{Storage: s}
	got, _ := r.Resolve(context.Background(), dir, "doc", ".md", false)
	if filepath.Base(got) != "doc.md" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_ExclusiveExhausted(t *testing.T) {
	s := memStorage(t)
	touch(t, s, "full.txt")
	touch(t, s, "full_1.txt")
	touch(t, s, "full_2.txt")

	r := &Resolver{Storage: s, Strategy: Exclusive, MaxSuffix: 2}
	_, err := r.Resolve(context.Background(), dir, "full", ".txt", false)
	if !errors.Is(err, apperr.ErrNameResolutionExhausted) {
		t.Fatalf("err = %v, want ErrNameResolutionExhausted", err)
	}
}

func TestResolve_ProbeBounded(t *testing.T) {
	s := memStorage(t)
	touch(t, s, "full.txt")
	touch(t, s, "full_1.txt")

	r := &Resolver{Storage: s, MaxSuffix: 1}
	_, err := r.Resolve(context.Background(), dir, "full", ".txt", false)
	if !errors.Is(err, apperr.ErrNameResolutionExhausted) {
		t.Fatalf("err = %v, want ErrNameResolutionExhausted", err)
	}
}

func TestResolve_InvalidBase(t *testing.T) {
	r := &Resolver{Storage: memStorage(t)}
	_, err := r.Resolve(context.Background(), dir, "../escape", ".txt", false)
	if !errors.Is(err, apperr.ErrInvalidBaseName) {
		t.Errorf("err = %v, want ErrInvalidBaseName", err)
	}
}

func TestResolve_Cancelled(t *testing.T) {
	s := memStorage(t)
	touch(t, s, "busy.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Resolver{Storage: s}
	if _, err := r.Resolve(ctx, dir, "busy", ".txt", false); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestResolve_ExclusiveConcurrentDistinct(t *testing.T) {
	// MemMapFs does not make O_EXCL atomic, so this runs on disk.
	root, disk := testutil.DiskStorage(t)
	r := &Resolver{Storage: disk, Strategy: Exclusive}

	const workers = 8
	var wg sync.WaitGroup
	paths := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths[i], errs[i] = r.Resolve(context.Background(), root, "race", ".txt", false)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	for i, p := range paths {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if _, dup := seen[p]; dup {
			t.Errorf("duplicate path %q", p)
		}
		seen[p] = struct{}{}
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": Probe, "probe": Probe, "exclusive": Exclusive} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("random"); err == nil {
		t.Error("expected error")
	}
}
