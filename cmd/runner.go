package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cinex/internal/auth"
	"github.com/desertthunder/cinex/internal/favorites"
	"github.com/desertthunder/cinex/internal/guard"
	"github.com/desertthunder/cinex/internal/repositories"
	"github.com/desertthunder/cinex/internal/services"
	"github.com/desertthunder/cinex/internal/shared"
	"github.com/desertthunder/cinex/internal/tasks"
	"github.com/urfave/cli/v3"
)

// loginCommand is where protected commands send signed-out callers.
const loginCommand = "cinex auth login"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	session    *auth.Session
	api        *services.APIService
	movies     services.Movies
	favorites  *favorites.Store
	engine     *tasks.FavoritesEngine
	cache      *repositories.ResponseCache
	tokens     *repositories.TokenRepository
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Movies and Favorites are derived from Session when left nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Session    *auth.Session
	Movies     services.Movies
	Favorites  *favorites.Store
	Cache      *repositories.ResponseCache
	Tokens     *repositories.TokenRepository
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var api *services.APIService
	if opts.Session != nil {
		api = opts.Session.Client()
	}

	if opts.Movies == nil && api != nil {
		var cache services.Cache
		if opts.Cache != nil {
			cache = opts.Cache
		}
		svc := services.NewMovieService(api, cache, opts.Config.Cache.TTL.Duration)
		svc.SetLogger(opts.Logger)
		opts.Movies = svc
	}

	if opts.Favorites == nil && opts.Session != nil {
		store := favorites.NewStore(services.NewFavoritesService(api), opts.Session)
		store.SetLogger(opts.Logger)
		opts.Session.Subscribe(store.OnAuthChange)
		opts.Favorites = store
	}

	var engine *tasks.FavoritesEngine
	if opts.Movies != nil {
		engine = tasks.NewFavoritesEngine(opts.Movies)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		session:    opts.Session,
		api:        api,
		movies:     opts.Movies,
		favorites:  opts.Favorites,
		engine:     engine,
		cache:      opts.Cache,
		tokens:     opts.Tokens,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the logger for the runner and the stores it owns.
func (r *Runner) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	r.logger = l
	if r.session != nil {
		r.session.SetLogger(l)
	}
	if r.favorites != nil {
		r.favorites.SetLogger(l)
	}
	if r.api != nil {
		r.api.SetLogger(l)
	}
	if svc, ok := r.movies.(*services.MovieService); ok {
		svc.SetLogger(l)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, moviesCommand, genresCommand, favoritesCommand, apiCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// guarded protects action behind the session: signed-out callers get a redirect to [loginCommand].
func (r *Runner) guarded(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if r.session == nil {
			return fmt.Errorf("%w: session not initialized", shared.ErrServiceUnavailable)
		}

		g := guard.New(loginCommand)
		if g.Check(r.session) == guard.Redirecting {
			r.logger.Debug("redirecting to sign in", "command", cmd.Name)
			return fmt.Errorf("%w: sign in first with '%s'", shared.ErrNotAuthenticated, g.Target())
		}
		return action(ctx, cmd)
	}
}

func (r *Runner) requireMovies() error {
	if r.movies == nil {
		return fmt.Errorf("%w: movie service not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// describe turns err into the user-facing lines carried by backend and validation errors.
func describe(err error) string {
	return strings.Join(services.UserMessages(err), "; ")
}

// intArg parses a positional argument as a positive id.
func intArg(cmd *cli.Command, name string) (int, error) {
	raw := strings.TrimSpace(cmd.StringArg(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", shared.ErrMissingArgument, name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
