package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotivy/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	fmt.Fprintf(r.output, "Config written to %s\n", path)
	fmt.Fprintln(r.output, "Fill in the spotify and youtube credentials, then run 'spotivy sync'.")
	return nil
}
