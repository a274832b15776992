package models

import "time"

// Credential is a signed-in session: a backend-issued bearer token, the
// profile it belongs to and the absolute instant after which the client
// stops trusting it.
type Credential struct {
	AccessToken string
	User        User
	ExpiresAt   time.Time
}

// Valid reports whether the credential may be used at now.
// A credential without a token, or at or past its expiry, is not valid.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt)
}
