package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/fsdocs/internal"
	"github.com/starford/fsdocs/internal/docstore"
	pkgconfig "github.com/starford/fsdocs/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Store.Root = root
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid root: %w", err)
		}
	}
	return cfg, nil
}

func openStore(cmd *cli.Command) (*docstore.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.OpenStore(cfg, internal.NewLogger(cfg.App.LogLevel))
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithOutput(cmd.Root().Writer),
	}

	if err := internal.Watch(ctx, opts...); err != nil {
		return fmt.Errorf("watch error: %w", err)
	}
	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "fsdocs",
		Usage: "Store plain-text documents on the local file system under a confined root",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("FSDOCS_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Store root directory, overrides store.root from the config file",
				Sources: cli.EnvVars("FSDOCS_ROOT"),
			},
		},
		Commands: []*cli.Command{
			createCommand(),
			readCommand(),
			updateCommand(),
			deleteCommand(),
			listCommand(),
			{
				Name:   "watch",
				Usage:  "Stream document changes under the root as JSON lines",
				Action: watchAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
