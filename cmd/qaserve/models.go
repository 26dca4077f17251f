package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ramili4/ml-ci-pipeline/internal/config"
	"github.com/ramili4/ml-ci-pipeline/internal/model"
	"github.com/ramili4/ml-ci-pipeline/internal/model/source"
)

var errPurgeNotConfirmed = errors.New("refusing to purge without --yes")

func (app *App) locate(c *cli.Context) error {
	path, err := model.Locate(app.cfg.Storage.ModelsDir)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, path)
	return err
}

func (app *App) purge(c *cli.Context) error {
	if !c.Bool("yes") {
		return fmt.Errorf("%w: %s", errPurgeNotConfirmed, app.cfg.Storage.ModelsDir)
	}

	return app.purgeRoot(c)
}

func (app *App) purgeRoot(c *cli.Context) error {
	root := app.cfg.Storage.ModelsDir
	if err := model.EnsureRoot(root); err != nil {
		return err
	}

	removed, err := model.Purge(root)
	for _, path := range removed {
		fmt.Fprintln(c.App.Writer, "removed", path)
	}
	return err
}

// hfSource merges the configured Hugging Face source with the pull flags.
func (app *App) hfSource(c *cli.Context) (config.HuggingFaceSource, error) {
	src, err := app.cfg.Model.GetSource()
	if err != nil && !errors.Is(err, config.ErrNoSource) {
		return src, err
	}

	if c.IsSet("repo") {
		src.Repo = c.String("repo")
	}
	if c.IsSet("revision") {
		src.Revision = c.String("revision")
	}
	if c.IsSet("token") {
		src.Token = c.String("token")
	}
	if c.Bool("force") {
		src.ForceDownload = true
	}

	if src.Repo == "" {
		return src, errors.New("no repository: pass --repo or set model.source.huggingface.repo")
	}
	return src, nil
}

func (app *App) pull(c *cli.Context) error {
	src, err := app.hfSource(c)
	if err != nil {
		return err
	}

	downloader, err := source.NewHuggingFaceDownloader(c.String("hf-bin"), c.Duration("timeout"))
	if err != nil {
		return err
	}

	if c.Bool("purge") {
		if err := app.purgeRoot(c); err != nil {
			return err
		}
	}

	root := app.cfg.Storage.ModelsDir
	if err := model.EnsureRoot(root); err != nil {
		return err
	}

	path, cached, err := downloader.Download(c.Context, src, root)
	if err != nil {
		return err
	}

	if _, err := model.Inspect(path); err != nil {
		app.logger.Warn("Downloaded directory is not a loadable model", "path", path, "error", err)
	}

	if cached {
		_, err = fmt.Fprintln(c.App.Writer, path, "(up to date)")
	} else {
		_, err = fmt.Fprintln(c.App.Writer, path)
	}
	return err
}
