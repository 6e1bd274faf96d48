// Command formbuilder edits, previews, exports and serves form groups kept in
// a local workspace.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := newCommand(a).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "formbuilder: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:                  "formbuilder",
		Usage:                 "Build, preview and exchange form configurations",
		EnableShellCompletion: true,
		Writer:                a.stdout,
		ErrWriter:             a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Sources: cli.EnvVars("FORMBUILDER_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "data",
				Usage:   "Workspace directory, overrides storage.dir",
				Sources: cli.EnvVars("FORMBUILDER_DATA"),
			},
			&cli.StringFlag{
				Name:    "storage",
				Usage:   "Storage driver (memory, file, sqlite, redis), overrides storage.driver",
				Sources: cli.EnvVars("FORMBUILDER_STORAGE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			newGroupCommand(a),
			newFieldCommand(a),
			newExportCommand(a),
			newImportCommand(a),
			newValidateCommand(a),
			newPaletteCommand(a),
			newRenderCommand(a),
			newPreviewCommand(a),
			newOpenAPICommand(a),
			newServeCommand(a),
		},
		After: a.close,
	}
}

// withStore wraps an action so it runs against an open workspace.
func withStore(a *app, action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := a.open(ctx, cmd); err != nil {
			return err
		}
		return action(ctx, cmd)
	}
}
