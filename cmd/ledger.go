package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotivy/internal/formatter"
	"github.com/desertthunder/spotivy/internal/ledger"
	"github.com/desertthunder/spotivy/internal/shared"
	"github.com/urfave/cli/v3"
)

// LedgerShow prints the recorded tracks of a playlist without touching the catalog.
func (r *Runner) LedgerShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidArgument)
	}

	f, err := formatter.ParseFormat(cmd.String("as"))
	if err != nil {
		return err
	}

	store := ledger.NewStore(r.config.Output)
	dir := shared.SanitizeFilename(name)

	l, err := store.Read(dir)
	if err != nil {
		return err
	}

	return formatter.WriteLedger(r.output, f, formatter.NewLedgerExport(name, store.Path(dir), l))
}
