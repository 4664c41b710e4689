// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/cinex/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the signed-in session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the token pair",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("CINEX_PASSWORD"),
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account (does not sign in)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username; spaces become underscores"},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password, at least 8 characters"},
					&cli.StringFlag{Name: "confirm", Usage: "Password again"},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored tokens",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the current session",
				Action: r.AuthStatus,
			},
		},
	}
}

// moviesCommand handles read-only movie queries
func moviesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "movies",
		Aliases: []string{"m"},
		Usage:   "Browse and search movies",
		Commands: []*cli.Command{
			{
				Name:  "trending",
				Usage: "List trending movies",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "genre",
						Aliases: []string{"g"},
						Usage:   "Only show one genre (see 'cinex genres')",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.MoviesTrending,
			},
			{
				Name:      "show",
				Usage:     "Show a movie's details",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, markdown, json",
						Value:   formatter.FormatText,
					},
				},
				Action: r.MoviesShow,
			},
			{
				Name:      "recommend",
				Aliases:   []string{"recs"},
				Usage:     "List movies recommended for a movie",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.MoviesRecommend,
			},
			{
				Name:      "search",
				Usage:     "Search movies by title",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Aliases: []string{"y"}, Usage: "Release year"},
					&cli.StringFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Genre name"},
					&cli.FloatFlag{Name: "min-rating", Usage: "Minimum rating (0-10)"},
					&cli.FloatFlag{Name: "max-rating", Usage: "Maximum rating (0-10)"},
					&cli.IntFlag{Name: "page", Usage: "Result page", Value: 1},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.MoviesSearch,
			},
		},
	}
}

// genresCommand lists the genre table
func genresCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "genres",
		Usage: "List movie genres",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Genres,
	}
}

// favoritesCommand handles the signed-in user's favorites. Every subcommand requires a session.
func favoritesCommand(r *Runner) *cli.Command {
	movieArg := []cli.Argument{&cli.StringArg{Name: "movie-id"}}

	return &cli.Command{
		Name:    "favorites",
		Aliases: []string{"fav"},
		Usage:   "Manage favorite movies (requires sign in)",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List favorites",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   fmt.Sprintf("Output format: %s", strings.Join(formatter.Formats, ", ")),
						Value:   formatter.FormatText,
					},
				},
				Action: r.guarded(r.FavoritesList),
			},
			{
				Name:      "add",
				Usage:     "Add a movie to favorites",
				Arguments: movieArg,
				Action:    r.guarded(r.FavoritesAdd),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a movie from favorites",
				Arguments: movieArg,
				Action:    r.guarded(r.FavoritesRemove),
			},
			{
				Name:      "check",
				Usage:     "Check whether a movie is a favorite",
				Arguments: movieArg,
				Action:    r.guarded(r.FavoritesCheck),
			},
			{
				Name:  "export",
				Usage: "Export every favorite's details to files with a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Per-movie format: markdown, txt, json",
						Value:   formatter.FormatMarkdown,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: favorites_export_{epoch})",
					},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent workers (max 10)", Value: 4},
					&cli.FloatFlag{Name: "rate", Usage: "Detail requests per second", Value: 5},
				},
				Action: r.guarded(r.FavoritesExport),
			},
		},
	}
}

// apiCommand handles direct backend calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the movie backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// cacheCommand manages the local movie response cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local response cache",
		Commands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Remove cached responses",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Only remove entries older than this (e.g. 1h); 0 removes everything",
					},
				},
				Action: r.CacheClear,
			},
			{
				Name:   "stats",
				Usage:  "Show cache size",
				Action: r.CacheStats,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for browsing movies and favorites",
		Action:  r.TUI,
	}
}
