// Package services contains application services for the mcpforge client.
// This file defines the authentication flows: magic-link issuance and
// verification, OAuth and provider-session exchanges, and logout.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/mcpforge/internal/client/client"
	"github.com/dmitrijs2005/mcpforge/internal/client/models"
	"github.com/dmitrijs2005/mcpforge/internal/logging"
)

// User-facing messages for failures the backend did not explain.
const (
	MsgMagicLinkFailed       = "Failed to send magic link"
	MsgMagicLinkNetwork      = "Network error during magic link request"
	MsgVerifyFailed          = "Magic link verification failed"
	MsgVerifyNetwork         = "Network error during verification"
	MsgOAuthFailed           = "OAuth login failed"
	MsgOAuthNetwork          = "Network error during OAuth login"
	MsgGitHubNoCode          = "No authorization code received from GitHub"
	MsgGitHubFailed          = "GitHub login failed"
	MsgGitHubNetwork         = "Failed to complete GitHub authentication"
	MsgSessionExchangeFailed = "Failed to create backend session"
	MsgGoogleCredential      = "Invalid Google credential"
)

// Result is the outcome of an auth flow. Error is empty on success and is
// meant to be shown to the user as-is.
type Result struct {
	Success bool
	Error   string
}

func ok() Result             { return Result{Success: true} }
func fail(msg string) Result { return Result{Error: msg} }

// API is the part of the API client the flows use.
type API interface {
	PostPublic(ctx context.Context, path string, body, out any) (int, error)
	CreateSession(ctx context.Context, p models.SessionPayload) (*models.AuthResponse, error)
	Ping(ctx context.Context) error
}

// Session receives the credentials the flows obtain.
type Session interface {
	Login(ctx context.Context, token string, user models.User) error
	Logout(ctx context.Context) error
}

// AuthService defines the authentication operations of the CLI.
//
// Contract:
//   - Every flow returns a Result and never an error; backend messages are
//     passed through verbatim, anything else becomes a generic message.
//   - Flows that obtain a credential hand it to Session.Login.
//   - SendMagicLink never touches the session.
//   - Public endpoints are called without credentials, so a 401 from them
//     does not end the current session.
type AuthService interface {
	SendMagicLink(ctx context.Context, email, displayName string) Result
	VerifyMagicLink(ctx context.Context, token string) Result
	LoginWithOAuth(ctx context.Context, provider string, user models.OAuthUser) Result
	LoginWithGoogleCredential(ctx context.Context, idToken string) Result
	ExchangeGitHubCode(ctx context.Context, code, state string) Result
	LoginWithProviderSession(ctx context.Context, p models.SessionPayload) Result
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

type authService struct {
	api     API
	session Session
	log     logging.Logger
}

// NewAuthService constructs an AuthService bound to the given API client and
// session.
func NewAuthService(api API, session Session, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &authService{api: api, session: session, log: log.With("component", "auth")}
}

type magicLinkRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type oauthRequest struct {
	Provider string           `json:"provider"`
	User     models.OAuthUser `json:"user"`
}

type githubRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

func (a *authService) SendMagicLink(ctx context.Context, email, displayName string) Result {
	var resp models.AuthResponse
	if _, err := a.api.PostPublic(ctx, client.PathMagicLink, magicLinkRequest{Email: email, DisplayName: displayName}, &resp); err != nil {
		a.log.Warn(ctx, "magic link request failed", "error", err)
		return fail(MsgMagicLinkNetwork)
	}
	if !resp.Success {
		return fail(orDefault(resp.Error, MsgMagicLinkFailed))
	}
	a.log.Info(ctx, "magic link sent")
	return ok()
}

func (a *authService) VerifyMagicLink(ctx context.Context, token string) Result {
	var resp models.AuthResponse
	if _, err := a.api.PostPublic(ctx, client.PathVerify, verifyRequest{Token: token}, &resp); err != nil {
		a.log.Warn(ctx, "magic link verification failed", "error", err)
		return fail(MsgVerifyNetwork)
	}
	return a.complete(ctx, "magic_link", &resp, MsgVerifyFailed)
}

func (a *authService) LoginWithOAuth(ctx context.Context, provider string, user models.OAuthUser) Result {
	var resp models.AuthResponse
	if _, err := a.api.PostPublic(ctx, client.PathOAuth, oauthRequest{Provider: provider, User: user}, &resp); err != nil {
		a.log.Warn(ctx, "oauth login failed", "provider", provider, "error", err)
		return fail(MsgOAuthNetwork)
	}
	return a.complete(ctx, provider, &resp, MsgOAuthFailed)
}

// LoginWithGoogleCredential decodes a Google ID token and signs in with the
// identity it carries.
func (a *authService) LoginWithGoogleCredential(ctx context.Context, idToken string) Result {
	user, err := DecodeGoogleCredential(idToken)
	if err != nil {
		a.log.Warn(ctx, "undecodable google credential", "error", err)
		return fail(MsgGoogleCredential)
	}
	return a.LoginWithOAuth(ctx, "google", user)
}

// ExchangeGitHubCode completes the GitHub redirect flow.
func (a *authService) ExchangeGitHubCode(ctx context.Context, code, state string) Result {
	if strings.TrimSpace(code) == "" {
		return fail(MsgGitHubNoCode)
	}

	var resp models.AuthResponse
	status, err := a.api.PostPublic(ctx, client.PathOAuthGitHub, githubRequest{Code: code, State: state}, &resp)
	if status != 0 && (status < 200 || status > 299) {
		return fail(fmt.Sprintf("GitHub OAuth error: Failed to authenticate (%d)", status))
	}
	if err != nil {
		a.log.Warn(ctx, "github exchange failed", "error", err)
		return fail(MsgGitHubNetwork)
	}
	return a.complete(ctx, "github", &resp, MsgGitHubFailed)
}

// LoginWithProviderSession exchanges an identity already confirmed by a
// sign-in provider for a backend credential.
func (a *authService) LoginWithProviderSession(ctx context.Context, p models.SessionPayload) Result {
	resp, err := a.api.CreateSession(ctx, p)
	if err != nil {
		a.log.Warn(ctx, "session exchange failed", "provider", p.Provider, "error", err)
		var be *client.BackendError
		if errors.As(err, &be) && be.Message != "" {
			return fail(be.Message)
		}
		return fail(MsgSessionExchangeFailed)
	}
	return a.complete(ctx, p.Provider, resp, MsgSessionExchangeFailed)
}

func (a *authService) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

// complete turns a credential-issuing response into a session.
func (a *authService) complete(ctx context.Context, method string, resp *models.AuthResponse, generic string) Result {
	if !resp.Success {
		return fail(orDefault(resp.Error, generic))
	}
	if resp.AccessToken == "" || resp.User == nil {
		a.log.Warn(ctx, "credential response incomplete", "method", method)
		return fail(generic)
	}
	if err := a.session.Login(ctx, resp.AccessToken, *resp.User); err != nil {
		a.log.Error(ctx, "failed to store credential", "method", method, "error", err)
		return fail(generic)
	}
	return ok()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// DecodeGoogleCredential reads the identity claims of a Google ID token.
// The signature is not checked here; the backend verifies the identity it
// is given.
func DecodeGoogleCredential(idToken string) (models.OAuthUser, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return models.OAuthUser{}, fmt.Errorf("decode google credential: %w", err)
	}

	str := func(k string) string {
		s, _ := claims[k].(string)
		return s
	}

	u := models.OAuthUser{
		Email:   str("email"),
		Name:    str("name"),
		Picture: str("picture"),
		Sub:     str("sub"),
	}
	switch v := claims["email_verified"].(type) {
	case bool:
		u.EmailVerified = v
	case string:
		u.EmailVerified = v == "true"
	}

	if u.Email == "" {
		return models.OAuthUser{}, errors.New("decode google credential: no email claim")
	}
	return u, nil
}
