package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotivy/internal/tasks"
	"github.com/urfave/cli/v3"
)

// progressBuffer bounds how far the console may lag behind the driver before updates are dropped.
const progressBuffer = 256

// Sync mirrors every playlist of the configured user into the output directory.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	intent, err := r.config.Intent()
	if err != nil {
		return err
	}

	if err := r.services(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	driver := tasks.NewDriver(r.catalog, r.resolver, r.fetcher, r.logger)
	if r.tagger != nil {
		driver.SetTagger(r.tagger)
	}

	recorder, closeHistory, err := r.historyRecorder()
	if err != nil {
		r.logger.Warn("run history disabled", "err", err)
	}
	defer closeHistory()
	if recorder != nil {
		driver.SetRecorder(recorder)
	}

	r.console.Banner(appName, r.version, intent, r.config.Output)

	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan struct{})
	go r.console.Consume(progress, done)

	result, err := driver.Run(ctx, tasks.RunOptions{
		Username: r.config.Spotify.Username,
		Intent:   intent,
		Output:   r.config.Output,
	}, progress)

	close(progress)
	<-done

	r.console.Summary(result)

	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	r.logger.Info("sync complete", "recorded", result.Recorded(), "skipped", result.Skipped())
	return nil
}
