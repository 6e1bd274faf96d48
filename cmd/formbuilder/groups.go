package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/reorder"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

func newGroupCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "group",
		Aliases: []string{"g"},
		Usage:   "Manage form groups",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a group",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Group description"},
					&cli.BoolFlag{Name: "select", Usage: "Select the new group"},
				},
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					name := strings.Join(cmd.Args().Slice(), " ")
					group, ok := a.store.AddGroup(name, cmd.String("description"))
					if !ok {
						return fmt.Errorf("group name is required")
					}
					if cmd.Bool("select") {
						a.store.SelectGroup(group.ID)
					}
					a.printf("created group %d %q\n", group.ID, group.Name)
					return nil
				}),
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List groups",
				Action: withStore(a, func(context.Context, *cli.Command) error {
					groups := a.store.Groups()
					if len(groups) == 0 {
						a.printf("no groups\n")
						return nil
					}
					selected, hasSelection := a.store.SelectedID()
					w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "\tID\tNAME\tFIELDS")
					for _, group := range groups {
						marker := ""
						if hasSelection && group.ID == selected {
							marker = "*"
						}
						fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", marker, group.ID, group.Name, len(group.Elements))
					}
					return w.Flush()
				}),
			},
			{
				Name:      "show",
				Usage:     "Print a group as YAML or JSON",
				ArgsUsage: "GROUP_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of YAML"},
				},
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					group, err := a.group(cmd, 0)
					if err != nil {
						return err
					}
					return a.printValue(group, cmd.Bool("json"))
				}),
			},
			{
				Name:      "update",
				Usage:     "Rename or describe a group",
				ArgsUsage: "GROUP_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
				},
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					group, err := a.group(cmd, 0)
					if err != nil {
						return err
					}
					if cmd.IsSet("name") {
						group.Name = cmd.String("name")
					}
					if cmd.IsSet("description") {
						group.Description = cmd.String("description")
					}
					if !a.store.UpdateGroup(group) {
						return fmt.Errorf("group name is required")
					}
					a.printf("updated group %d\n", group.ID)
					return nil
				}),
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Delete a group",
				ArgsUsage: "GROUP_ID",
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					id, err := idArg(cmd, 0, "group id")
					if err != nil {
						return err
					}
					if !a.store.DeleteGroup(id) {
						return fmt.Errorf("group %d not found", id)
					}
					a.printf("deleted group %d\n", id)
					return nil
				}),
			},
			{
				Name:      "dup",
				Aliases:   []string{"duplicate"},
				Usage:     "Copy a group with fresh field ids",
				ArgsUsage: "GROUP_ID",
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					id, err := idArg(cmd, 0, "group id")
					if err != nil {
						return err
					}
					copied, ok := a.store.DuplicateGroup(id, a.ids)
					if !ok {
						return fmt.Errorf("group %d not found", id)
					}
					a.printf("created group %d %q\n", copied.ID, copied.Name)
					return nil
				}),
			},
			{
				Name:      "select",
				Usage:     "Select the group shown by the live preview",
				ArgsUsage: "[GROUP_ID]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "clear", Usage: "Clear the selection"},
				},
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					if cmd.Bool("clear") {
						a.store.ClearSelection()
						a.printf("selection cleared\n")
						return nil
					}
					group, err := a.group(cmd, 0)
					if err != nil {
						return err
					}
					a.store.SelectGroup(group.ID)
					a.printf("selected group %d %q\n", group.ID, group.Name)
					return nil
				}),
			},
		},
	}
}

func fieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "Field label"},
		&cli.BoolFlag{Name: "required", Aliases: []string{"r"}, Usage: "Mark the field as required"},
		&cli.StringFlag{Name: "placeholder", Aliases: []string{"p"}, Usage: "Placeholder text"},
		&cli.StringSliceFlag{Name: "option", Aliases: []string{"o"}, Usage: "Option for selection fields (repeatable)"},
	}
}

func newFieldCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "field",
		Aliases: []string{"f"},
		Usage:   "Manage the fields of a group",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Append a field from the palette",
				ArgsUsage: "GROUP_ID TYPE",
				Flags:     fieldFlags(),
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					group, err := a.group(cmd, 0)
					if err != nil {
						return err
					}
					raw, err := json.Marshal(model.DragPayload{
						Type:  model.FieldType(cmd.Args().Get(1)),
						Label: cmd.String("label"),
					})
					if err != nil {
						return err
					}
					payload, err := model.ParseDragPayload(raw)
					if err != nil {
						return err
					}

					field := model.NewField(payload, a.ids.Next())
					field.Required = cmd.Bool("required")
					field.Placeholder = cmd.String("placeholder")
					if field.Type.IsSelection() {
						field.Options = cmd.StringSlice("option")
					}
					if !a.store.AddElementToGroup(group.ID, field) {
						return fmt.Errorf("group %d not found", group.ID)
					}
					a.printf("added field %d %q to group %d\n", field.ID, field.Label, group.ID)
					return nil
				}),
			},
			{
				Name:      "update",
				Usage:     "Edit a field",
				ArgsUsage: "GROUP_ID FIELD_ID",
				Flags:     fieldFlags(),
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					group, err := a.group(cmd, 0)
					if err != nil {
						return err
					}
					fieldID, err := idArg(cmd, 1, "field id")
					if err != nil {
						return err
					}
					idx := group.IndexOf(fieldID)
					if idx < 0 {
						return fmt.Errorf("field %d not found in group %d", fieldID, group.ID)
					}

					field := group.Elements[idx]
					if cmd.IsSet("label") {
						field.Label = strings.TrimSpace(cmd.String("label"))
					}
					if cmd.IsSet("required") {
						field.Required = cmd.Bool("required")
					}
					if cmd.IsSet("placeholder") {
						field.Placeholder = cmd.String("placeholder")
					}
					if cmd.IsSet("option") {
						field.Options = cmd.StringSlice("option")
					}
					group.Elements[idx] = field
					if result := validation.ValidateGroup(group); !result.Valid {
						return result
					}
					a.store.UpdateElement(group.ID, field)
					a.printf("updated field %d\n", field.ID)
					return nil
				}),
			},
			{
				Name:      "rm",
				Aliases:   []string{"delete"},
				Usage:     "Remove a field",
				ArgsUsage: "GROUP_ID FIELD_ID",
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					groupID, err := idArg(cmd, 0, "group id")
					if err != nil {
						return err
					}
					fieldID, err := idArg(cmd, 1, "field id")
					if err != nil {
						return err
					}
					if !a.store.DeleteElementFromGroup(groupID, fieldID) {
						return fmt.Errorf("field %d not found in group %d", fieldID, groupID)
					}
					a.printf("removed field %d\n", fieldID)
					return nil
				}),
			},
			{
				Name:      "move",
				Aliases:   []string{"mv"},
				Usage:     "Move a field to the position of another field",
				ArgsUsage: "GROUP_ID FIELD_ID TARGET_ID",
				Action: withStore(a, func(_ context.Context, cmd *cli.Command) error {
					groupID, err := idArg(cmd, 0, "group id")
					if err != nil {
						return err
					}
					fieldID, err := idArg(cmd, 1, "field id")
					if err != nil {
						return err
					}
					targetID, err := idArg(cmd, 2, "target id")
					if err != nil {
						return err
					}
					if !reorder.Move(a.store, groupID, fieldID, targetID) {
						a.printf("nothing to move\n")
						return nil
					}
					a.printf("moved field %d\n", fieldID)
					return nil
				}),
			},
		},
	}
}

func (a *app) printValue(v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
