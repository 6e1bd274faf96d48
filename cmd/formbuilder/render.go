package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formbuilder/pkg/filepreview"
	"github.com/goliatone/go-formbuilder/pkg/openapi"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/renderers/html"
	"github.com/goliatone/go-formbuilder/pkg/renderers/tui"
)

// orchestrator builds the render pipeline over the open store with both
// renderers registered.
func (a *app) orchestrator(cmd *cli.Command, files *filepreview.Manager, tuiOptions ...tui.Option) (*orchestrator.Orchestrator, error) {
	var htmlOptions []html.Option
	if cmd.Bool("standalone") {
		htmlOptions = append(htmlOptions, html.WithStandalone())
	}
	htmlOptions = append(htmlOptions,
		html.WithAccept(a.cfg.Preview.Accept...),
		html.WithTemplatesDir(cmd.String("templates")),
	)
	htmlRenderer, err := html.New(htmlOptions...)
	if err != nil {
		return nil, err
	}

	// Prompts draw on stderr so stdout carries only the submitted values.
	driver := a.prompt
	if driver == nil {
		driver = tui.NewSurveyDriverWithStdio(os.Stdin, os.Stderr, a.stderr)
	}
	tuiRenderer := tui.New(append([]tui.Option{
		tui.WithPromptDriver(driver),
		tui.WithFiles(files),
		tui.WithTheme(tui.Theme{ErrorPrefix: "✗ "}),
	}, tuiOptions...)...)

	registry := render.NewRegistry()
	if err := registry.Register(htmlRenderer); err != nil {
		return nil, err
	}
	if err := registry.Register(tuiRenderer); err != nil {
		return nil, err
	}
	if err := registry.SetDefault(a.cfg.Render.Default); err != nil {
		return nil, err
	}

	options := []orchestrator.Option{
		orchestrator.WithSource(a.store),
		orchestrator.WithRegistry(registry),
		orchestrator.WithDefaultRenderer(a.cfg.Render.Default),
		orchestrator.WithFiles(files),
		orchestrator.WithLogger(a.logger),
	}
	if path := cmd.String("preset"); path != "" {
		preset, err := loadPreset(path)
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithSchemaTransformer(preset))
	}
	return orchestrator.New(options...), nil
}

func loadPreset(path string) (*orchestrator.PresetTransformer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", path, err)
	}
	return orchestrator.NewPresetTransformer(data)
}

func presetFlag() cli.Flag {
	return &cli.StringFlag{Name: "preset", Usage: "YAML or JSON preset overriding labels, placeholders and options"}
}

func localeFlag() cli.Flag {
	return &cli.StringFlag{Name: "locale", Usage: "Locale passed to the renderer"}
}

func (a *app) locale(cmd *cli.Command) string {
	if locale := cmd.String("locale"); locale != "" {
		return locale
	}
	return a.cfg.Render.Locale
}

func newRenderCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a group with a fresh form",
		ArgsUsage: "GROUP_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "renderer", Usage: "Renderer name (html, tui)"},
			&cli.StringFlag{Name: "action", Usage: "Form action URL (defaults to the group's submission route)"},
			&cli.BoolFlag{Name: "standalone", Usage: "Wrap HTML output in a full page"},
			&cli.StringFlag{Name: "templates", Usage: "Directory holding a full HTML template bundle"},
			presetFlag(),
			localeFlag(),
			outputFlag(),
		},
		Action: withStore(a, func(ctx context.Context, cmd *cli.Command) error {
			id, err := idArg(cmd, 0, "group id")
			if err != nil {
				return err
			}
			files := a.files()
			defer files.ReleaseAll()

			orch, err := a.orchestrator(cmd, files)
			if err != nil {
				return err
			}
			action := cmd.String("action")
			if action == "" {
				action = openapi.SubmissionPath(id)
			}
			out, err := orch.Generate(ctx, orchestrator.Request{
				GroupID:  id,
				Renderer: cmd.String("renderer"),
				RenderOptions: render.RenderOptions{
					Action: action,
					Locale: a.locale(cmd),
				},
			})
			if err != nil {
				return err
			}
			return a.writeOutput(cmd.String("output"), out)
		}),
	}
}

// newPreviewCommand fills a group interactively in the terminal and prints
// the submitted values.
func newPreviewCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Fill a group in the terminal; defaults to the selected group",
		ArgsUsage: "[GROUP_ID]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output-format", Usage: "Submission format (json, form, pretty)", Value: string(tui.OutputFormatPrettyText)},
			&cli.BoolFlag{Name: "confirm", Usage: "Ask for confirmation before submitting"},
			presetFlag(),
			localeFlag(),
		},
		Action: withStore(a, func(ctx context.Context, cmd *cli.Command) error {
			var (
				id  int64
				err error
			)
			if cmd.Args().Len() > 0 {
				id, err = idArg(cmd, 0, "group id")
				if err != nil {
					return err
				}
			} else {
				selected, ok := a.store.SelectedID()
				if !ok {
					return fmt.Errorf("no group selected; pass a group id or run `group select`")
				}
				id = selected
			}

			files := a.files()
			defer files.ReleaseAll()

			tuiOptions := []tui.Option{tui.WithOutputFormat(tui.OutputFormat(cmd.String("output-format")))}
			if cmd.Bool("confirm") {
				tuiOptions = append(tuiOptions, tui.WithConfirmSubmit())
			}
			orch, err := a.orchestrator(cmd, files, tuiOptions...)
			if err != nil {
				return err
			}
			out, err := orch.Generate(ctx, orchestrator.Request{
				GroupID:       id,
				Renderer:      tui.Name,
				RenderOptions: render.RenderOptions{Locale: a.locale(cmd)},
			})
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(append(out, '\n'))
			return err
		}),
	}
}
