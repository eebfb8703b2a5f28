// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/fsdocs/internal/docstore"
	"github.com/starford/fsdocs/internal/models"
	"github.com/starford/fsdocs/internal/watch"
)

// NewLogger builds the structured JSON logger. Logs go to stderr so that
// command output on stdout stays machine readable.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// OpenStore opens the document store described by cfg.
func OpenStore(cfg *Config, logger *slog.Logger) (*docstore.Store, error) {
	policy, err := cfg.Store.Policy()
	if err != nil {
		return nil, err
	}
	strategy, err := cfg.Store.Naming.ParsedStrategy()
	if err != nil {
		return nil, err
	}
	root, err := cfg.Store.AbsRoot()
	if err != nil {
		return nil, err
	}

	store, err := docstore.Open(root,
		docstore.WithPolicy(policy),
		docstore.WithStrategy(strategy),
		docstore.WithMaxSuffix(cfg.Store.Naming.MaxSuffix),
		docstore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	logger.Debug("Store opened",
		slog.String("root", store.Root()),
		slog.String("policy", policy.String()),
		slog.String("naming", strategy.String()))
	return store, nil
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = NewLogger(app.config.App.LogLevel)
	}
	if app.output == nil {
		app.output = os.Stdout
	}
	return app, nil
}

// Watch opens the store and streams change events under its root to the
// configured output, one JSON object per line, until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger

	store, err := OpenStore(app.config, logger)
	if err != nil {
		return err
	}
	if store.Root() == "" {
		return fmt.Errorf("watch requires a confined store root")
	}

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stop := context.WithCancel(gCtx)
	defer stop()

	sink := &eventSink{w: app.output, logger: logger}

	g.Go(func() error {
		defer stop()
		return watch.Run(watchCtx, store.Storage(), store.Root(), logger, sink.write)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-watchCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watch error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watch stopped")
	return nil
}

// eventSink serialises events as JSON lines.
type eventSink struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

func (s *eventSink) write(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.NewEncoder(s.w).Encode(ev); err != nil {
		s.logger.Warn("write event failed", slog.String("error", err.Error()))
	}
}
