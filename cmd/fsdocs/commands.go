package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/fsdocs/internal/apperr"
)

// positional returns the command arguments with the first "--" terminator
// dropped, so content starting with a dash can follow it.
func positional(cmd *cli.Command) []string {
	args := cmd.Args().Slice()
	for i, a := range args {
		if a == "--" {
			return append(args[:i:i], args[i+1:]...)
		}
	}
	return args
}

func argAt(args []string, n int) string {
	if n < len(args) {
		return args[n]
	}
	return ""
}

// contentArg returns the positional content argument at n. "-" reads the
// content from stdin; a missing argument yields empty content.
func contentArg(cmd *cli.Command, args []string, n int) (any, error) {
	var raw string
	switch arg := argAt(args, n); arg {
	case "-":
		data, err := io.ReadAll(cmd.Root().Reader)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = string(data)
	default:
		raw = arg
	}

	if !cmd.Bool("json") {
		return raw, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidContent, err)
	}
	return v, nil
}

func requireArgs(cmd *cli.Command, lo, hi int) ([]string, error) {
	args := positional(cmd)
	if n := len(args); n < lo || n > hi {
		return nil, fmt.Errorf("%s: expected arguments %s, got %d", cmd.Name, cmd.ArgsUsage, n)
	}
	return args, nil
}

func jsonContentFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Parse content as a JSON value before encoding it for the target extension",
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a document, suffixing the name if it is taken",
		ArgsUsage: "DIR NAME EXT [--] [CONTENT|-]",
		Description: "CONTENT \"-\" reads the content from stdin. Put \"--\" before content\n" +
			"that starts with a dash, e.g. fsdocs create . n .txt -- -5",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "replace", Usage: "Overwrite an existing document of the same name"},
			jsonContentFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, 3, 4)
			if err != nil {
				return err
			}
			content, err := contentArg(cmd, args, 3)
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			p, err := store.Create(ctx, args[0], args[1], args[2], content, cmd.Bool("replace"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, p)
			return err
		},
	}
}

func readCommand() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Usage:     "Print a document, or the entries of a directory",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the result as a JSON object"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, 1, 1)
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			doc, err := store.Read(ctx, args[0])
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			switch {
			case cmd.Bool("json"):
				return json.NewEncoder(w).Encode(doc)
			case doc.IsDir:
				return printLines(w, doc.Entries)
			default:
				_, err = io.WriteString(w, doc.Content)
				return err
			}
		},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Replace the content of an existing document",
		ArgsUsage: "PATH [--] [CONTENT|-]",
		Description: "CONTENT \"-\" reads the content from stdin. Put \"--\" before content\n" +
			"that starts with a dash.",
		Flags: []cli.Flag{jsonContentFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, 1, 2)
			if err != nil {
				return err
			}
			content, err := contentArg(cmd, args, 1)
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			p, err := store.Update(ctx, args[0], content)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, p)
			return err
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a document or an empty directory",
		ArgsUsage: "PATH",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, 1, 1)
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			p, err := store.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, p)
			return err
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List the entries of a directory, the root by default",
		ArgsUsage: "[DIR]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args, err := requireArgs(cmd, 0, 1)
			if err != nil {
				return err
			}
			dir := argAt(args, 0)
			if dir == "" {
				dir = "."
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			entries, err := store.List(ctx, dir)
			if err != nil {
				return err
			}
			return printLines(cmd.Root().Writer, entries)
		},
	}
}

func printLines(w io.Writer, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
