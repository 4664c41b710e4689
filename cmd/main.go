package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/desertthunder/cinex/internal/auth"
	"github.com/desertthunder/cinex/internal/repositories"
	"github.com/desertthunder/cinex/internal/services"
	"github.com/desertthunder/cinex/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx := context.Background()
	logger := shared.NewLogger(nil)

	config, err := shared.LoadConfig("config.toml")
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		config = shared.DefaultConfig()
	case err != nil:
		logger.Warn("failed to load config.toml, using defaults", "error", err)
		config = shared.DefaultConfig()
	}
	config.ApplyEnv()
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	db, err := shared.OpenMigrated(config.Database)
	if err != nil {
		logger.Warn("database unavailable, session will not persist", "path", config.Database.Path, "error", err)
		if db, err = shared.OpenMigrated(shared.DatabaseConfig{Path: ":memory:"}); err != nil {
			logger.Fatalf("failed to open in-memory database: %v", err)
		}
	}
	defer db.Close()

	api := services.NewAPIService(config.API.BaseURL, &http.Client{Timeout: config.API.Timeout.Duration})
	api.SetLogger(logger)
	api.SetRateLimit(config.API.RateLimit)

	tokens := repositories.NewTokenRepository(db)
	session := auth.NewSession(api, tokens)
	session.SetLogger(logger)
	if err := session.Load(ctx); err != nil {
		logger.Warn("failed to restore session", "error", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: "config.toml",
		Session:    session,
		Cache:      repositories.NewResponseCache(db),
		Tokens:     tokens,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "cinex",
		Usage:    "Discover movies and keep track of your favorites",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		for _, msg := range services.UserMessages(err) {
			logger.Error(msg)
		}
		os.Exit(1)
	}
}
