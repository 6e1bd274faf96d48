package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formbuilder/pkg/codec"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Output format (json, yaml)",
		Value: "json",
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file (stdout if empty)",
	}
}

func yamlFormat(cmd *cli.Command) (bool, error) {
	switch strings.ToLower(cmd.String("format")) {
	case "", "json":
		return false, nil
	case "yaml", "yml":
		return true, nil
	default:
		return false, fmt.Errorf("unsupported format %q", cmd.String("format"))
	}
}

func newExportCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every group to an exchange envelope",
		Flags: []cli.Flag{
			formatFlag(),
			outputFlag(),
			&cli.BoolFlag{Name: "default-name", Usage: "Write to the conventional dated file name"},
		},
		Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
			asYAML, err := yamlFormat(cmd)
			if err != nil {
				return err
			}
			now := time.Now()
			env := codec.Export(a.store.Groups(), now)

			var data []byte
			if asYAML {
				data, err = codec.MarshalYAML(env)
			} else {
				data, err = codec.Marshal(env)
				data = append(data, '\n')
			}
			if err != nil {
				return err
			}

			output := cmd.String("output")
			if output == "" && cmd.Bool("default-name") {
				output = codec.ExportFilename(now)
				if asYAML {
					output = strings.TrimSuffix(output, ".json") + ".yaml"
				}
			}
			return a.writeOutput(output, data)
		}),
	}
}

func newImportCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace every group with the contents of an envelope",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "Also validate field definitions before importing"},
		},
		Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("missing envelope file")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			var options []codec.ImportOption
			if cmd.Bool("strict") {
				options = append(options, codec.WithStrict())
			}
			env, err := codec.Import(a.store, data, options...)
			if err != nil {
				return err
			}
			a.printf("imported %d groups (version %s)\n", len(env.FormGroups), env.Version)
			return nil
		}),
	}
}

func newValidateCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate the workspace, or an envelope file when given",
		ArgsUsage: "[FILE]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if path := cmd.Args().First(); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				env, err := codec.Decode(data)
				if err != nil {
					return err
				}
				return a.report(validation.ValidateGroups(env.FormGroups))
			}
			if err := a.open(ctx, cmd); err != nil {
				return err
			}
			return a.report(validation.ValidateGroups(a.store.Groups()))
		},
	}
}

func (a *app) report(result validation.SchemaValidationResult) error {
	if result.Valid {
		a.printf("valid\n")
		return nil
	}
	for _, issue := range result.Issues {
		a.printf("%s: %s\n", issue.Path, issue.Message)
	}
	return result
}

func newPaletteCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "palette",
		Usage: "List the field types that can be added",
		Action: func(context.Context, *cli.Command) error {
			for _, category := range model.Palette() {
				a.printf("%s\n", category.Name)
				for _, entry := range category.Entries {
					a.printf("  %-18s %s\n", entry.Type, entry.Description)
				}
			}
			return nil
		},
	}
}

func newOpenAPICommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "openapi",
		Usage: "Describe the submission endpoint of every group as OpenAPI 3",
		Flags: []cli.Flag{
			formatFlag(),
			outputFlag(),
			&cli.StringFlag{Name: "title", Usage: "Document title"},
			&cli.StringFlag{Name: "server-url", Usage: "Server URL", Value: "/api"},
		},
		Action: withStore(a, func(ctx context.Context, cmd *cli.Command) error {
			asYAML, err := yamlFormat(cmd)
			if err != nil {
				return err
			}
			doc, err := openapi.Document(ctx, a.store.Groups(), openapi.Info{
				Title:     cmd.String("title"),
				ServerURL: cmd.String("server-url"),
			})
			if err != nil {
				return err
			}
			data, err := openapi.Encode(doc, asYAML)
			if err != nil {
				return err
			}
			return a.writeOutput(cmd.String("output"), data)
		}),
	}
}
