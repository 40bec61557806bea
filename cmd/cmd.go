// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "key",
			Usage: "YouTube Data API key (overrides stored settings)",
		},
		&cli.StringFlag{
			Name:  "mirror",
			Usage: "Piped or Invidious base URL (overrides stored settings)",
		},
	}
}

// resolveCommand fetches a playlist without touching the watch-list
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Fetch a playlist and print its videos",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "reference"},
		},
		Flags: append(credentialFlags(),
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Use the built-in sample playlist",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON including the attempt trace",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		),
		Action: r.Resolve,
	}
}

// importCommand merges a playlist into the watch-list
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Fetch a playlist and merge it into the watch-list",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "reference"},
		},
		Flags: append(credentialFlags(),
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Use the built-in sample playlist",
			},
			&cli.BoolFlag{
				Name:  "append",
				Usage: "Keep items that are no longer in the playlist",
			},
		),
		Action: r.Import,
	}
}

// todoCommand manages the watch-list
func todoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "todo",
		Aliases: []string{"todos", "t"},
		Usage:   "Manage the watch-list",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show the watch-list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Only show items from this playlist id",
					},
					&cli.BoolFlag{
						Name:  "pending",
						Usage: "Only show unwatched items",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TodoList,
			},
			{
				Name:  "toggle",
				Usage: "Mark a video watched or unwatched",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "video"},
				},
				Action: r.TodoToggle,
			},
			{
				Name:  "open",
				Usage: "Open a video in the browser",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "video"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "toggle",
						Usage: "Also mark the video watched",
					},
				},
				Action: r.TodoOpen,
			},
			{
				Name:   "progress",
				Usage:  "Show completion progress",
				Action: r.TodoProgress,
			},
			{
				Name:  "export",
				Usage: "Export the watch-list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: csv, markdown, txt or json",
						Value:   "markdown",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
				},
				Action: r.TodoExport,
			},
			{
				Name:  "clear",
				Usage: "Remove every item",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm clearing the list",
					},
				},
				Action: r.TodoClear,
			},
		},
	}
}

// discoverCommand probes mirror candidates
func discoverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "discover",
		Usage:     "Probe community mirrors and report which ones work",
		ArgsUsage: "[host ...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "relay",
				Usage: "Probe Invidious stats through the CORS relay and rank by users",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Store the results for settings use-best",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Discover,
	}
}

// settingsCommand manages persisted preferences
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Manage stored API key and mirror",
		Commands: []*cli.Command{
			{
				Name:  "set-key",
				Usage: "Store a YouTube Data API key",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
				},
				Action: r.SettingsSetKey,
			},
			{
				Name:  "set-mirror",
				Usage: "Store the mirror base URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.SettingsSetMirror,
			},
			{
				Name:   "use-best",
				Usage:  "Use the top working mirror from the last saved discovery",
				Action: r.SettingsUseBest,
			},
			{
				Name:  "show",
				Usage: "Show effective settings",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SettingsShow,
			},
			{
				Name:  "clear",
				Usage: "Remove stored settings",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.SettingsClear,
			},
		},
	}
}

// exportCommand writes playlists to files
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export one or more playlists to files",
		ArgsUsage: "[playlist ...]",
		Flags: append(credentialFlags(),
			&cli.StringFlag{
				Name:  "file",
				Usage: "Read references from a file, one per line",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, markdown, txt or json",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: playlist_export_<timestamp>)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent exports",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playlist resolutions per second",
				Value: 5,
			},
		),
		Action: r.ExportPlaylists,
	}
}

// serveCommand starts the JSON API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playlist and discovery JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to playlist backends for debugging",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a URL and print the response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
					&cli.BoolFlag{
						Name:  "detect",
						Usage: "Report which playlist shape the body matches",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}
