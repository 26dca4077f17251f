package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ramili4/ml-ci-pipeline/internal/config"
	"github.com/ramili4/ml-ci-pipeline/internal/env"
	"github.com/ramili4/ml-ci-pipeline/internal/envvar"
	"github.com/ramili4/ml-ci-pipeline/internal/logger"
	"github.com/ramili4/ml-ci-pipeline/internal/model/source"
	"github.com/ramili4/ml-ci-pipeline/internal/xfs"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type App struct {
	logger *slog.Logger
	cfg    *config.Config
	out    io.Writer
}

func NewApp() *App {
	return &App{
		logger: slog.Default(),
		out:    os.Stdout,
	}
}

// configPath returns the explicit config file, or the default one when it exists.
func (app *App) configPath(c *cli.Context) (string, error) {
	if c.IsSet("config") {
		return c.String("config"), nil
	}

	path := config.DefaultConfigFile()
	ok, err := xfs.FileExists(path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return path, nil
}

// before loads the configuration, applies global flag overrides and installs the logger.
func (app *App) before(c *cli.Context) error {
	path, err := app.configPath(c)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if c.IsSet("models-dir") {
		cfg.Storage.ModelsDir = xfs.ExpandTilde(c.String("models-dir"))
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.logger = logger.New(env.FromEnv(),
		logger.WithLevel(level),
		logger.WithLogToFile(cfg.Logging.ToFile),
		logger.WithLogFile(cfg.Logging.File),
		logger.WithSource(cfg.Logging.AddSource),
	)
	slog.SetDefault(app.logger)

	if path != "" {
		app.logger.Debug("Config loaded", "path", path)
	}
	return nil
}

func (app *App) flags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:    "config",
			Usage:   "path to config file (default: " + config.DefaultConfigFile() + " if present)",
			EnvVars: []string{envvar.QaserveConfig},
		},
		&cli.PathFlag{
			Name:  "models-dir",
			Usage: "models root directory, containing exactly one model directory",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
	}
}

func listenFlags(defaultPort int, portEnv string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "listen host",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: fmt.Sprintf("listen port (default: $%s or %d)", portEnv, defaultPort),
		},
	}
}

func (app *App) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "api",
			Usage:  "serve the JSON API",
			Flags:  listenFlags(config.DefaultAPIPort, envvar.QaserveAPIPort),
			Action: app.runAPI,
		},
		{
			Name:   "ui",
			Usage:  "serve the web form",
			Flags:  listenFlags(config.DefaultUIPort, envvar.GradioServerPort),
			Action: app.runUI,
		},
		{
			Name:  "models",
			Usage: "inspect and manage the models root",
			Subcommands: []*cli.Command{
				{
					Name:   "locate",
					Usage:  "print the directory of the single model under the models root",
					Action: app.locate,
				},
				{
					Name:  "purge",
					Usage: "remove every model directory under the models root",
					Flags: []cli.Flag{
						&cli.BoolFlag{Name: "yes", Usage: "confirm the removal"},
					},
					Action: app.purge,
				},
				{
					Name:  "pull",
					Usage: "download a model from Hugging Face into the models root",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "repo", Usage: "repository id, e.g. distilbert/distilbert-base-cased-distilled-squad"},
						&cli.StringFlag{Name: "revision", Usage: "branch, tag or commit"},
						&cli.StringFlag{Name: "token", Usage: "access token", EnvVars: []string{"HF_TOKEN"}},
						&cli.StringFlag{Name: "hf-bin", Value: source.DefaultHuggingFaceBin, Usage: "Hugging Face CLI binary"},
						&cli.DurationFlag{Name: "timeout", Value: source.DefaultDownloadTimeout, Usage: "download timeout"},
						&cli.BoolFlag{Name: "force", Usage: "download even when an identical download is present"},
						&cli.BoolFlag{Name: "purge", Usage: "remove existing model directories first"},
					},
					Action: app.pull,
				},
			},
		},
	}
}

func (app *App) cli() *cli.App {
	return &cli.App{
		Name:     "qaserve",
		Usage:    "Serve an extractive question answering model over HTTP or a web form",
		Version:  version,
		Flags:    app.flags(),
		Before:   app.before,
		Commands: app.commands(),
		Writer:   app.out,
	}
}

func (app *App) Run(args []string) error {
	return app.cli().Run(args)
}

func main() {
	if err := NewApp().Run(os.Args); err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
}
