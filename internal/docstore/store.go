// Package docstore is the document store: create, read, update, delete and
// list text documents under a confined root.
package docstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/fsdocs/internal/apperr"
	"github.com/starford/fsdocs/internal/checksum"
	"github.com/starford/fsdocs/internal/format"
	"github.com/starford/fsdocs/internal/models"
	"github.com/starford/fsdocs/internal/naming"
	"github.com/starford/fsdocs/internal/pathguard"
	"github.com/starford/fsdocs/internal/storage"
)

// Store manages documents on a storage.Provider. The root and policy are
// fixed at construction; a Store is safe for concurrent use.
type Store struct {
	storage  storage.Provider
	guard    *pathguard.Guard
	resolver *naming.Resolver
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	policy    pathguard.Policy
	strategy  naming.Strategy
	maxSuffix int
	logger    *slog.Logger
}

// WithPolicy sets the containment policy. Defaults to pathguard.Strict.
func WithPolicy(p pathguard.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithStrategy sets the naming strategy. Defaults to naming.Probe.
func WithStrategy(s naming.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithMaxSuffix bounds the numeric suffix tried when names collide.
func WithMaxSuffix(n int) Option {
	return func(o *options) { o.maxSuffix = n }
}

// WithLogger sets the logger used for operation tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Store rooted at root. Under a confined policy root must be
// absolute and is created if missing; a rootless policy takes an empty root.
func New(p storage.Provider, root string, opts ...Option) (*Store, error) {
	o := options{policy: pathguard.Strict}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	guard, err := pathguard.New(root, o.policy)
	if err != nil {
		return nil, err
	}
	if guard.Root() != "" {
		if err := p.EnsureDir(guard.Root()); err != nil {
			return nil, fmt.Errorf("docstore: create root: %w", err)
		}
	}

	return &Store{
		storage: p,
		guard:   guard,
		resolver: &naming.Resolver{
			Storage:   p,
			Strategy:  o.strategy,
			MaxSuffix: o.maxSuffix,
		},
		logger: o.logger,
	}, nil
}

// Open creates a Store on the local file system.
func Open(root string, opts ...Option) (*Store, error) {
	return New(storage.NewOSFS(), root, opts...)
}

// Root returns the confinement root, empty when rootless.
func (s *Store) Root() string { return s.guard.Root() }

// Policy returns the containment policy.
func (s *Store) Policy() pathguard.Policy { return s.guard.Policy() }

// Storage returns the provider documents are stored on.
func (s *Store) Storage() storage.Provider { return s.storage }

// Create writes content as base+ext inside dir and returns the path it was
// written to. Without replace an existing file is never overwritten; a numeric
// suffix is appended instead.
func (s *Store) Create(ctx context.Context, dir, base, ext string, content any, replace bool) (string, error) {
	absDir, err := s.guard.Resolve(dir)
	if err != nil {
		return "", err
	}
	return s.save(ctx, absDir, base, ext, content, replace)
}

// Read returns the document at path. When path is a directory the result
// carries its listing in Entries instead of content.
func (s *Store) Read(_ context.Context, path string) (*models.Document, error) {
	abs, err := s.existing(path)
	if err != nil {
		return nil, err
	}
	isDir, err := s.storage.IsDir(abs)
	if err != nil {
		return nil, err
	}
	if isDir {
		entries, err := s.storage.ListEntries(abs)
		if err != nil {
			return nil, err
		}
		return &models.Document{Path: s.guard.Display(abs), IsDir: true, Entries: entries}, nil
	}

	text, err := s.storage.ReadText(abs)
	if err != nil {
		return nil, err
	}
	return &models.Document{
		Path:     s.guard.Display(abs),
		Content:  text,
		Checksum: checksum.Text(text),
	}, nil
}

// Update replaces the content of an existing document, keeping its name.
func (s *Store) Update(ctx context.Context, path string, content any) (string, error) {
	abs, err := s.existing(path)
	if err != nil {
		return "", err
	}
	isDir, err := s.storage.IsDir(abs)
	if err != nil {
		return "", err
	}
	if isDir {
		return "", fmt.Errorf("%w: %s", apperr.ErrIsDirectory, path)
	}
	ext := filepath.Ext(abs)
	base := strings.TrimSuffix(filepath.Base(abs), ext)
	return s.save(ctx, filepath.Dir(abs), base, ext, content, true)
}

// Delete removes a file, or a directory if it is empty, and returns the path
// that was removed.
func (s *Store) Delete(_ context.Context, path string) (string, error) {
	abs, err := s.guard.Resolve(path)
	if err != nil {
		return "", err
	}
	if s.guard.IsRoot(abs) {
		return "", fmt.Errorf("%w: refusing to delete the store root", apperr.ErrPathPolicyViolation)
	}
	if err := s.mustExist(path, abs); err != nil {
		return "", err
	}
	isDir, err := s.storage.IsDir(abs)
	if err != nil {
		return "", err
	}

	if isDir {
		entries, err := s.storage.ListEntries(abs)
		if err != nil {
			return "", err
		}
		if len(entries) > 0 {
			return "", fmt.Errorf("%w: %s", apperr.ErrDirectoryNotEmpty, path)
		}
		err = s.storage.RemoveEmptyDir(abs)
	} else {
		err = s.storage.RemoveFile(abs)
	}
	if err != nil {
		return "", err
	}

	display := s.guard.Display(abs)
	s.logger.Debug("docstore: deleted", slog.String("path", display), slog.Bool("dir", isDir))
	return display, nil
}

// List returns the names of the entries directly inside dir.
func (s *Store) List(_ context.Context, dir string) ([]string, error) {
	abs, err := s.existing(dir)
	if err != nil {
		return nil, err
	}
	isDir, err := s.storage.IsDir(abs)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotDirectory, dir)
	}
	return s.storage.ListEntries(abs)
}

// save is the shared tail of Create and Update; absDir is already resolved.
func (s *Store) save(ctx context.Context, absDir, base, ext string, content any, replace bool) (string, error) {
	if err := format.CheckExtension(ext); err != nil {
		return "", err
	}
	if err := naming.ValidateBaseName(base); err != nil {
		return "", err
	}
	text, err := format.Encode(ext, content)
	if err != nil {
		return "", err
	}
	// Fails with ErrNotDirectory when absDir is a file.
	if err := s.storage.EnsureDir(absDir); err != nil {
		return "", err
	}

	target, err := s.resolver.Resolve(ctx, absDir, base, ext, replace)
	if err != nil {
		return "", err
	}
	if err := s.storage.WriteText(target, text); err != nil {
		if !replace && s.resolver.Strategy == naming.Exclusive {
			// Drop the empty reservation.
			_ = s.storage.RemoveFile(target)
		}
		return "", err
	}

	display := s.guard.Display(target)
	s.logger.Debug("docstore: saved",
		slog.String("path", display),
		slog.Bool("replace", replace),
		slog.Int("bytes", len(text)))
	return display, nil
}

// existing resolves path and fails with ErrFileNotFound if nothing is there.
func (s *Store) existing(path string) (string, error) {
	abs, err := s.guard.Resolve(path)
	if err != nil {
		return "", err
	}
	if err := s.mustExist(path, abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (s *Store) mustExist(path, abs string) error {
	ok, err := s.storage.Exists(abs)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", apperr.ErrFileNotFound, path)
	}
	return nil
}
