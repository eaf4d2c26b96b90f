package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fwojciec/vox/config"
	"github.com/fwojciec/vox/json"
	"github.com/fwojciec/vox/render"
	"github.com/urfave/cli/v2"
)

func (e *env) historyCommand() *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"h"},
		Usage:   "Inspect and manage conversation history",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the conversation of an assistant",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{formatFlag},
				Action:    e.historyShow,
			},
			{
				Name:      "reset",
				Usage:     "Clear the conversation, leaving only the greeting",
				ArgsUsage: "ID",
				Action:    e.historyReset,
			},
			{
				Name:      "export",
				Usage:     "Save the conversation as a JSON transcript",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file (default: a new file in the transcripts dir)",
					},
				},
				Action: e.historyExport,
			},
		},
	}
}

func (e *env) historyShow(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	f, err := render.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	h, err := e.client.Get(c.Context, id)
	if err != nil {
		return describe(err)
	}
	return render.History(e.stdout, h, f)
}

func (e *env) historyReset(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	if err := e.client.Reset(c.Context, id); err != nil {
		return describe(err)
	}
	fmt.Fprintf(e.stdout, "Conversation of %s reset\n", id)
	return nil
}

func (e *env) historyExport(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	h, err := e.client.Get(c.Context, id)
	if err != nil {
		return describe(err)
	}

	path := c.String("out")
	if path == "" {
		dir, err := e.transcriptsDir(c)
		if err != nil {
			return err
		}
		path = filepath.Join(dir, json.Filename(id, time.Now()))
	}
	if err := json.Save(path, h); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, path)
	return nil
}

func (e *env) transcriptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "transcripts",
		Usage: "List exported transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Directory to search (default: transcripts.dir)",
			},
		},
		Action: e.transcriptsList,
	}
}

func (e *env) transcriptsList(c *cli.Context) error {
	dir, err := e.transcriptsDir(c)
	if err != nil {
		return err
	}
	paths, err := json.List(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(e.stdout, p)
	}
	return nil
}

// transcriptsDir resolves --dir, falling back to the configured directory.
func (e *env) transcriptsDir(c *cli.Context) (string, error) {
	dir := e.cfg.Transcripts.Dir
	if c.IsSet("dir") {
		dir = c.String("dir")
	}
	return config.ExpandHome(dir)
}
