// Package naming computes collision-free file names for new documents.
package naming

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/fsdocs/internal/apperr"
	"github.com/starford/fsdocs/internal/storage"
)

// Strategy selects how a free name is found.
type Strategy int

const (
	// Probe checks existence of name, name_1, name_2, ... and takes the first
	// gap. A concurrent writer may claim the same name between probe and write.
	Probe Strategy = iota
	// Exclusive claims each candidate with an exclusive create, leaving an
	// empty reservation file behind for the caller to overwrite.
	Exclusive
)

// DefaultMaxSuffix bounds the Exclusive strategy when no limit is set.
const DefaultMaxSuffix = 10000

func (s Strategy) String() string {
	switch s {
	case Probe:
		return "probe"
	case Exclusive:
		return "exclusive"
	default:
		return "strategy(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStrategy maps a config value onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "probe":
		return Probe, nil
	case "exclusive":
		return Exclusive, nil
	default:
		return 0, fmt.Errorf("naming: unknown strategy %q", s)
	}
}

// ValidateBaseName rejects names that are empty or would leave the target
// directory.
func ValidateBaseName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", apperr.ErrInvalidBaseName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", apperr.ErrInvalidBaseName, name)
	case strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("%w: contains path separator: %q", apperr.ErrInvalidBaseName, name)
	}
	return nil
}

// Candidate returns dir/base+ext for n == 0 and dir/base_n+ext otherwise.
func Candidate(dir, base, ext string, n int) string {
	if n == 0 {
		return filepath.Join(dir, base+ext)
	}
	return filepath.Join(dir, base+"_"+strconv.Itoa(n)+ext)
}

// Resolver finds the on-disk path for a new or replaced document.
type Resolver struct {
	Storage  storage.Provider
	Strategy Strategy
	// MaxSuffix is the highest numeric suffix tried. Zero leaves Probe
	// unbounded and gives Exclusive DefaultMaxSuffix.
	MaxSuffix int
}

// Resolve returns the path to write for base+ext inside dir. With replace the
// plain name is returned as-is; otherwise the result did not exist when it
// was chosen.
func (r *Resolver) Resolve(ctx context.Context, dir, base, ext string, replace bool) (string, error) {
	if err := ValidateBaseName(base); err != nil {
		return "", err
	}
	if replace {
		return Candidate(dir, base, ext, 0), nil
	}
	switch r.Strategy {
	case Exclusive:
		return r.exclusive(ctx, dir, base, ext)
	default:
		return r.probe(ctx, dir, base, ext)
	}
}

func (r *Resolver) probe(ctx context.Context, dir, base, ext string) (string, error) {
	for n := 0; r.MaxSuffix <= 0 || n <= r.MaxSuffix; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := Candidate(dir, base, ext, n)
		exists, err := r.Storage.Exists(p)
		if err != nil {
			return "", err
		}
		if !exists {
			return p, nil
		}
	}
	return "", exhausted(dir, base, ext, r.MaxSuffix)
}

func (r *Resolver) exclusive(ctx context.Context, dir, base, ext string) (string, error) {
	limit := r.MaxSuffix
	if limit <= 0 {
		limit = DefaultMaxSuffix
	}
	for n := 0; n <= limit; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := Candidate(dir, base, ext, n)
		err := r.Storage.CreateExclusive(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", exhausted(dir, base, ext, limit)
}

func exhausted(dir, base, ext string, limit int) error {
	return fmt.Errorf("%w: %s after suffix %d", apperr.ErrNameResolutionExhausted,
		filepath.Join(dir, base+ext), limit)
}
