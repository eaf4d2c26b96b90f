package main

import (
	"fmt"

	"github.com/fwojciec/vox"
	"github.com/fwojciec/vox/render"
	"github.com/urfave/cli/v2"
)

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Usage:   "Output format: table, json, yaml",
	Value:   string(render.FormatTable),
}

var assistantFieldFlags = []cli.Flag{
	&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name"},
	&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Short description"},
	&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Usage: "System prompt"},
}

func (e *env) assistantCommand() *cli.Command {
	return &cli.Command{
		Name:    "assistant",
		Aliases: []string{"a"},
		Usage:   "Manage assistants",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List assistants",
				Flags:  []cli.Flag{formatFlag},
				Action: e.assistantList,
			},
			{
				Name:   "create",
				Usage:  "Create an assistant",
				Flags:  append([]cli.Flag{formatFlag}, assistantFieldFlags...),
				Action: e.assistantCreate,
			},
			{
				Name:      "update",
				Usage:     "Change fields of an assistant",
				ArgsUsage: "ID",
				Flags:     append([]cli.Flag{formatFlag}, assistantFieldFlags...),
				Action:    e.assistantUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete an assistant",
				ArgsUsage: "ID",
				Action:    e.assistantDelete,
			},
		},
	}
}

func (e *env) assistantList(c *cli.Context) error {
	f, err := render.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	list, err := e.assistants.List(c.Context)
	if err != nil {
		return describe(err)
	}
	return render.Assistants(e.stdout, list, f)
}

func (e *env) assistantCreate(c *cli.Context) error {
	f, err := render.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	a, err := e.assistants.Create(c.Context, vox.Assistant{
		Name:        c.String("name"),
		Description: c.String("description"),
		Prompt:      c.String("prompt"),
	})
	if err != nil {
		return describe(err)
	}
	return render.Assistant(e.stdout, a, f)
}

func (e *env) assistantUpdate(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	f, err := render.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	var upd vox.AssistantUpdate
	for name, field := range map[string]**string{
		"name":        &upd.Name,
		"description": &upd.Description,
		"prompt":      &upd.Prompt,
	} {
		if c.IsSet(name) {
			v := c.String(name)
			*field = &v
		}
	}
	if upd.IsEmpty() {
		return cli.Exit("nothing to update: set --name, --description or --prompt", 2)
	}

	a, err := e.assistants.Update(c.Context, id, upd)
	if err != nil {
		return describe(err)
	}
	return render.Assistant(e.stdout, a, f)
}

func (e *env) assistantDelete(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	if err := e.assistants.Delete(c.Context, id); err != nil {
		return describe(err)
	}
	fmt.Fprintf(e.stdout, "Deleted assistant %s\n", id)
	return nil
}

// describe turns a backend error into a cli exit error carrying the
// user-facing message, keeping the cause for errors.Is and errors.As.
func describe(err error) error {
	return &describedError{msg: vox.Describe(err), err: err}
}

type describedError struct {
	msg string
	err error
}

func (e *describedError) Error() string { return e.msg }
func (e *describedError) Unwrap() error { return e.err }
func (e *describedError) ExitCode() int { return 1 }
