package main

import (
	"os"
	"os/signal"

	"github.com/fwojciec/vox"
	bt "github.com/fwojciec/vox/bubbletea"
	"github.com/urfave/cli/v2"
)

func (e *env) chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Chat with an assistant interactively",
		ArgsUsage: "ID",
		Action:    e.chat,
	}
}

func (e *env) chat(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	a, err := e.client.Find(ctx, id)
	if err != nil {
		return describe(err)
	}
	return bt.Run(ctx, bt.New(a, e.client, e.client, vox.DefaultTheme()))
}
