package models

// AuthResponse is the body shared by the credential-issuing endpoints:
// /auth/verify, /auth/oauth, /auth/oauth/github and /auth/session.
type AuthResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token,omitempty"`
	User        *User  `json:"user,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SessionPayload is the provider identity exchanged at /auth/session.
type SessionPayload struct {
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Username   string `json:"username,omitempty"`
	Image      string `json:"image,omitempty"`
}

// OAuthUser is what a provider's client SDK told us about the user. It is
// forwarded to /auth/oauth as-is.
type OAuthUser struct {
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Sub           string `json:"sub,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Login         string `json:"login,omitempty"`
	ID            string `json:"id,omitempty"`
}
