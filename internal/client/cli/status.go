package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"

	"github.com/dmitrijs2005/mcpforge/internal/client/client"
	"github.com/dmitrijs2005/mcpforge/internal/client/session"
)

var (
	promptName = color.New(color.FgCyan, color.Bold).SprintFunc()
	promptUser = color.New(color.FgGreen).SprintFunc()
	promptOff  = color.New(color.FgYellow).SprintFunc()
)

// getStatus renders the prompt prefix, e.g. "mcpforge (A online)".
func (a *App) getStatus() string {
	s := ""
	if u, ok := a.session.User(); ok {
		s = promptUser(u.Label())
	}
	switch m := a.mode(); m {
	case ModeOffline:
		s = joinSpace(s, promptOff(string(m)))
	case ModeOnline:
		s = joinSpace(s, string(m))
	}
	if s != "" {
		s = fmt.Sprintf(" (%s)", s)
	}
	return promptName("mcpforge") + s
}

func joinSpace(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

// Status prints the local session state and whether the backend answers.
func (a *App) Status(ctx context.Context) error {
	if u, ok := a.session.User(); ok {
		left := time.Until(a.session.ExpiresAt()).Round(time.Minute)
		a.println(fmt.Sprintf("Signed in as %s (%s plan), session valid for %s", u.Label(), u.SubscriptionTier, left))
	} else {
		a.println("Not signed in")
	}

	if err := a.authService.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		a.println("Backend:", a.config.BackendURL, "unreachable")
		return nil
	}
	a.setMode(ModeOnline)
	a.println("Backend:", a.config.BackendURL, "reachable")
	return nil
}

// WhoAmI re-reads the profile from the backend and prints it.
func (a *App) WhoAmI(ctx context.Context) error {
	if err := a.session.RefreshUser(ctx); err != nil {
		a.report(err)
		return err
	}
	u, _ := a.session.User()
	a.println("Name:  ", u.Label())
	if u.Email != "" {
		a.println("Email: ", u.Email)
	}
	a.println("Plan:  ", u.SubscriptionTier)
	a.println("Active:", u.IsActive)
	return nil
}

// report prints err in user terms. A 401 has already ended the session and
// printed a notice, so only a hint is added.
func (a *App) report(err error) {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		a.println("Not signed in. Use 'magiclink' or 'oauth' first.")
	case errors.Is(err, client.ErrUnauthorized):
		a.println("Authentication failed - please sign in again.")
	case errors.Is(err, client.ErrUnavailable):
		a.println("Backend unavailable, try again later.")
	case client.IsStatus(err, http.StatusNotFound):
		a.println("Not found.")
	default:
		a.println("Error:", err)
	}
}
