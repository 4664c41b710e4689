package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/cinex/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges credentials for a token pair and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil {
		return fmt.Errorf("%w: session not initialized", shared.ErrServiceUnavailable)
	}

	username := cmd.String("username")
	password := cmd.String("password")

	r.logger.Info("signing in", "username", username)

	if err := r.session.Login(ctx, username, password); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	name := username
	if u := r.session.User(); u != nil && u.Username != "" {
		name = u.Username
	}
	return r.writePlain("✓ Signed in as %s\n", name)
}

// AuthRegister creates an account. It does not sign in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil {
		return fmt.Errorf("%w: session not initialized", shared.ErrServiceUnavailable)
	}

	user, err := r.session.Register(
		ctx,
		cmd.String("username"),
		cmd.String("email"),
		cmd.String("password"),
		cmd.String("confirm"),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrRegisterFailed, err)
	}

	r.logger.Info("account created", "username", user.Username)
	r.writePlain("✓ Account created for %s\n", user.Username)
	return r.writePlain("Sign in with '%s'\n", loginCommand)
}

// AuthLogout forgets the stored tokens. No request is made.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil {
		return fmt.Errorf("%w: session not initialized", shared.ErrServiceUnavailable)
	}
	if !r.session.IsAuthenticated() {
		return r.writePlain("Not signed in\n")
	}
	if err := r.session.Logout(); err != nil {
		return fmt.Errorf("failed to clear stored tokens: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the session and, when signed in, the backend's view of the user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil {
		return fmt.Errorf("%w: session not initialized", shared.ErrServiceUnavailable)
	}

	r.writePlain("Backend: %s\n", r.config.API.BaseURL)
	if !r.session.IsAuthenticated() {
		return r.writePlain("Authentication: ✗ Not signed in\n")
	}

	user, err := r.session.FetchUser(ctx)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		return r.writePlain("Authentication: ✗ Session expired, sign in again with '%s'\n", loginCommand)
	case err != nil:
		r.logger.Warn("failed to fetch user", "error", err)
		r.writePlain("Authentication: ✓ Signed in\n")
		return r.writePlain("User: unavailable (%s)\n", describe(err))
	}

	r.writePlain("Authentication: ✓ Signed in\n")
	r.writePlain("User: %s\n", user.Username)
	if user.Email != "" {
		r.writePlain("Email: %s\n", user.Email)
	}
	if r.tokens != nil {
		if saved, err := r.tokens.UpdatedAt(); err == nil {
			r.writePlain("Tokens saved: %s\n", saved.Local().Format(time.DateTime))
		}
	}
	if exp, ok := r.session.Expiry(); ok {
		r.writePlain("Access token expires: %s (%s)\n", exp.Local().Format(time.DateTime), describeExpiry(time.Until(exp)))
	}
	return nil
}

// describeExpiry renders the time left on an access token. Expired tokens are refreshed on next use.
func describeExpiry(left time.Duration) string {
	if left <= 0 {
		return "expired, refreshes on next request"
	}
	return "in " + left.Round(time.Second).String()
}
