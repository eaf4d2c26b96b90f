package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fwojciec/vox"
	"github.com/fwojciec/vox/render"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// exitInterrupted is the conventional status for a run ended by SIGINT.
const exitInterrupted = 130

func (e *env) askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send one message and stream the reply to stdout",
		ArgsUsage: "ID TEXT...",
		Action:    e.ask,
	}
}

func (e *env) ask(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: vox ask ID TEXT...", 2)
	}
	id := c.Args().First()
	text := strings.Join(c.Args().Tail(), " ")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	a, err := e.client.Find(ctx, id)
	if err != nil {
		return describe(err)
	}
	return e.streamReply(ctx, a, text)
}

// streamReply streams the reply to text, writing chunks to stdout as they
// arrive. Cancelling ctx cancels the stream.
func (e *env) streamReply(ctx context.Context, a vox.Assistant, text string) error {
	var (
		usage   vox.Usage
		failure error
		wrote   bool
	)
	s := e.client.Stream(ctx, vox.StreamRequest{
		TargetID: a.ID,
		Payload:  vox.Input{Prompt: a.Prompt, Send: text},
	}, vox.StreamHandler{
		OnChunk: func(chunk string) {
			wrote = true
			fmt.Fprint(e.stdout, render.Sanitize(chunk))
		},
		OnComplete: func(u vox.Usage) {
			usage = u
		},
		OnError: func(err error) {
			if !vox.IsTerminal(err) {
				e.logger.Warn("skipped malformed record", zap.Error(err))
				return
			}
			failure = err
		},
	})

	state := s.Wait()
	if wrote {
		fmt.Fprintln(e.stdout)
	}
	switch state {
	case vox.StreamCompleted:
		if !usage.IsZero() {
			fmt.Fprintf(e.stderr, "tokens: %d in, %d out, %d total\n",
				usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
		}
		return nil
	case vox.StreamCancelled:
		return cli.Exit(vox.Describe(failure), exitInterrupted)
	default:
		return describe(failure)
	}
}
