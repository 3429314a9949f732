// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:           appName,
		Usage:          "Mirror Spotify playlists as YouTube videos or audio",
		Version:        r.version,
		DefaultCommand: "sync",
		Writer:         r.output,
		ErrWriter:      r.errOutput,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (.toml, .yaml or .yml)",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Root directory for playlist folders",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Download \"video\" or \"audio\"",
			},
			&cli.BoolFlag{
				Name:    "audio",
				Aliases: []string{"a"},
				Usage:   "Shortcut for --format audio",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, ledgerCommand, historyCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func asFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "as",
		Usage: "Output encoding: text, csv or json",
		Value: "text",
	}
}

// syncCommand mirrors all playlists of the configured user
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Download every playlist track not yet in its ledger",
		Before: r.Configure,
		Action: r.Sync,
	}
}

// ledgerCommand inspects per-playlist ledgers
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect download ledgers",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "List the tracks recorded for a playlist",
				ArgsUsage: "<playlist name>",
				Flags:     []cli.Flag{asFlag()},
				Before:    r.Configure,
				Action:    r.LedgerShow,
			},
		},
	}
}

// historyCommand reads the optional run history database
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded sync runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs, newest first",
				Flags: []cli.Flag{
					asFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of runs to return",
						Value:   20,
					},
				},
				Before: r.Configure,
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "List the track outcomes of a run",
				ArgsUsage: "<run id>",
				Flags:     []cli.Flag{asFlag()},
				Before:    r.Configure,
				Action:    r.HistoryShow,
			},
		},
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write an example config file to --config",
				Action: r.ConfigInit,
			},
		},
	}
}
