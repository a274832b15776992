package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mcpforge/internal/client/services"
)

// getSimpleText, getSecret and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
	getMultiline  = GetMultiline
)

var errFlowFailed = errors.New("sign-in failed")

// MagicLink prompts for an email and an optional display name and asks the
// backend to email a sign-in link. The session is not touched.
func (a *App) MagicLink(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if email == "" {
		a.println("Email is required")
		return errFlowFailed
	}
	name, err := getSimpleText(a.reader, "Display name (optional)", a.out)
	if err != nil {
		return err
	}

	res := a.authService.SendMagicLink(ctx, email, name)
	if !res.Success {
		a.println("Error:", res.Error)
		return errFlowFailed
	}
	a.println("Magic link sent to " + email + ". Run 'verify' with the token from the email.")
	return nil
}

// Verify signs in with a magic link token, read from args or prompted for.
func (a *App) Verify(ctx context.Context, args []string) error {
	token := ""
	if len(args) > 0 {
		token = args[0]
	} else {
		var err error
		if token, err = getSecret(a.reader, "Paste the magic link token", a.out); err != nil {
			return err
		}
	}
	if token == "" {
		a.println("Usage: verify [token]")
		return errFlowFailed
	}
	return a.finishSignIn(a.authService.VerifyMagicLink(ctx, token))
}

// OAuth signs in with a provider credential:
//
//	oauth google [id_token]
//	oauth github <code> [state]
func (a *App) OAuth(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.println("Usage: oauth google [id_token] | oauth github <code> [state]")
		return errFlowFailed
	}

	switch args[0] {
	case "google":
		idToken := ""
		if len(args) > 1 {
			idToken = args[1]
		} else {
			var err error
			if idToken, err = getSecret(a.reader, "Paste the Google ID token", a.out); err != nil {
				return err
			}
		}
		return a.finishSignIn(a.authService.LoginWithGoogleCredential(ctx, idToken))

	case "github":
		code, state := "", ""
		if len(args) > 1 {
			code = args[1]
		}
		if len(args) > 2 {
			state = args[2]
		}
		return a.finishSignIn(a.authService.ExchangeGitHubCode(ctx, code, state))

	default:
		a.println("Unknown provider:", args[0])
		return errFlowFailed
	}
}

func (a *App) finishSignIn(res services.Result) error {
	if !res.Success {
		a.println("Error:", res.Error)
		return errFlowFailed
	}
	if u, ok := a.session.User(); ok {
		a.println(fmt.Sprintf("Signed in as %s", u.Label()))
	} else {
		a.println("Signed in")
	}
	return nil
}

// Logout ends the session. Calling it while signed out is harmless.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		a.println("Error:", err)
		return err
	}
	a.println("Signed out")
	return nil
}
