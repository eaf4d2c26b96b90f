// Command vox is a terminal front-end for the voice-robot assistant API.
//
// Usage:
//
//	vox [--config FILE] [--base-url URL] [--log-level LEVEL] <command>
//
// Commands manage assistants and their histories, stream a single reply
// (ask) or open an interactive chat (chat). Run "vox help" for details.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fwojciec/vox"
	"github.com/fwojciec/vox/config"
	"github.com/fwojciec/vox/log"
	"github.com/fwojciec/vox/voicerobot"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	app.ExitErrHandler = exitErrHandler
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler keeps the exit code of cli.Exit errors and prints every
// other error once.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, "vox: "+msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(os.Stderr, "vox: %v\n", err)
	os.Exit(1)
}

// env holds what every command needs once global flags are resolved.
type env struct {
	stdout io.Writer
	stderr io.Writer

	cfg    *config.Config
	logger *zap.Logger
	client *voicerobot.Client

	// assistants defaults to client when setup runs.
	assistants vox.AssistantService
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{stdout: stdout, stderr: stderr}
	return e.app()
}

func (e *env) app() *cli.App {
	return &cli.App{
		Name:      "vox",
		Usage:     "Chat with voice-robot assistants from the terminal",
		Writer:    e.stdout,
		ErrWriter: e.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file (empty for none)",
				Value:   config.DefaultPath(),
				EnvVars: []string{"VOX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Backend base URL (overrides server.base_url)",
				EnvVars: []string{"VOX_BASE_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn, error (overrides log.level)",
				EnvVars: []string{"VOX_LOG_LEVEL"},
			},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*cli.Command{
			e.assistantCommand(),
			e.historyCommand(),
			e.transcriptsCommand(),
			e.askCommand(),
			e.chatCommand(),
		},
	}
}

// setup loads the config file, applies flag overrides and builds the
// logger and backend client.
func (e *env) setup(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist) && !c.IsSet("config"):
			// No file at the default location.
		default:
			return err
		}
	}
	if c.IsSet("base-url") {
		cfg.Server.BaseURL = c.String("base-url")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := log.New(e.stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.logger = logger
	e.client = voicerobot.New(
		voicerobot.WithBaseURL(cfg.Server.BaseURL),
		voicerobot.WithTimeout(cfg.Server.Timeout.Duration),
		voicerobot.WithReadTimeout(cfg.Server.ReadTimeout.Duration),
		voicerobot.WithLogger(logger),
	)
	if e.assistants == nil {
		e.assistants = e.client
	}
	return nil
}

func (e *env) teardown(*cli.Context) error {
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	return nil
}

// idArg returns the first positional argument or a usage error.
func idArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", cli.Exit("missing assistant ID", 2)
	}
	return c.Args().First(), nil
}
