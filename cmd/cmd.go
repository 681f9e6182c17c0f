// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database and writes a starter config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// authCommand runs the browser OAuth flow from the terminal.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Auth,
	}
}

// serveCommand starts the web server and the playback poll loop.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server and playback poll loop",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "no-poll",
				Usage: "Serve HTTP only, without the MQTT poll loop",
			},
		},
		Action: r.Serve,
	}
}

// publishCommand runs a single snapshot cycle and exits.
func publishCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Run one poll cycle: fetch playback and publish it to the broker",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the published snapshot as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Publish,
	}
}

// tokenCommand inspects stored credentials.
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Inspect stored Spotify credentials",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the stored token for the active user",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.TokenShow,
			},
			{
				Name:   "clear",
				Usage:  "Delete the stored token for the active user",
				Flags:  []cli.Flag{configFlag()},
				Action: r.TokenClear,
			},
		},
	}
}

// tuiCommand launches the interactive now-playing view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Interactive now-playing view with the album palette",
		Flags:  []cli.Flag{configFlag()},
		Action: r.TUI,
	}
}
