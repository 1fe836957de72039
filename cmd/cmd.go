// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func providerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "provider",
		Aliases: []string{"p"},
		Usage:   "Provider namespace (spotify, deezer, tidal); inferred from links",
	}
}

func noCacheFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "no-cache",
		Usage: "Skip cached upstream responses (fresh results are still stored)",
	}
}

// reconcileCommand compares a provider discography against MusicBrainz
func reconcileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "reconcile",
		Aliases: []string{"rec"},
		Usage:   "Reconcile a provider artist's albums against MusicBrainz",
		Flags: []cli.Flag{
			providerFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Artist ID, comma separated IDs, or artist link",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "mbid",
				Usage: "MusicBrainz artist ID; looked up from the artist link when omitted",
			},
			&cli.BoolFlag{
				Name:  "quick",
				Usage: "Skip cover art checks",
			},
			&cli.BoolFlag{
				Name:  "full",
				Usage: "Fetch album details and reconcile tracks",
			},
			noCacheFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv, json (inferred from --output)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: stdout)",
			},
			&cli.BoolFlag{
				Name:  "tracks",
				Usage: "Include tracks in text and Markdown output (implies --full)",
			},
			&cli.BoolFlag{
				Name:  "color",
				Usage: "Colorize text output",
				Value: true,
			},
		},
		Action: r.Reconcile,
	}
}

// deepSearchCommand finds the MusicBrainz artist of an unlinked provider artist
func deepSearchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "deep-search",
		Usage: "Identify the MusicBrainz artist of a provider artist through album barcodes",
		Flags: []cli.Flag{
			providerFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Artist ID or artist link",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of albums to examine (default from config)",
			},
			noCacheFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.DeepSearch,
	}
}

// providersCommand lists registered providers
func providersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "List providers and their capabilities",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "capability",
				Usage: "Only list enabled providers supporting this capability",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Providers,
	}
}

// resolveCommand maps a provider link to its namespace and ID
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve a provider link to its provider, entity and ID",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "url",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Resolve,
	}
}

// cacheCommand handles cache housekeeping
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage cached upstream responses",
		Commands: []*cli.Command{
			{
				Name:   "prune",
				Usage:  "Remove expired entries",
				Action: r.CachePrune,
			},
			{
				Name:   "clear",
				Usage:  "Remove every entry",
				Action: r.CacheClear,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the cache database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the config file",
						Value: "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the cache database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}
