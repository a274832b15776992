// Package models defines client-side data models shared by the session
// core, the API client and the CLI.
package models

// User is the profile the backend returns alongside an access token and
// from GET /auth/me. Field names follow the backend's JSON.
type User struct {
	// ID is the backend identifier; older backends omit it.
	ID string `json:"id,omitempty"`

	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	// SubscriptionTier is a backend-defined plan name, e.g. "free".
	SubscriptionTier string `json:"subscription_tier"`
	IsActive         bool   `json:"is_active"`

	// Linked identities. All optional.
	WalletAddress string `json:"wallet_address,omitempty"`
	GitHubID      string `json:"github_id,omitempty"`
	GoogleID      string `json:"google_id,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Label returns the most human-friendly identifier available.
func (u *User) Label() string {
	switch {
	case u == nil:
		return ""
	case u.DisplayName != "":
		return u.DisplayName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
