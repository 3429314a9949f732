package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotivy/internal/formatter"
	"github.com/desertthunder/spotivy/internal/repositories"
	"github.com/desertthunder/spotivy/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints the most recent recorded runs.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("as"))
	if err != nil {
		return err
	}

	db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(ctx, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	return formatter.WriteRuns(r.output, f, runs)
}

// HistoryShow prints the per-track outcomes of one run.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrInvalidArgument)
	}

	f, err := formatter.ParseFormat(cmd.String("as"))
	if err != nil {
		return err
	}

	db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)
	if _, err := repo.Get(ctx, id); err != nil {
		return err
	}

	events, err := repo.ListTrackEvents(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list track events: %w", err)
	}

	return formatter.WriteEvents(r.output, f, events)
}
