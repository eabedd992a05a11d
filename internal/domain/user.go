package domain

import "time"

// SessionMode distinguishes real sign-ins from read-only guest browsing.
type SessionMode string

const (
	ModeGuest  SessionMode = "guest"
	ModeMember SessionMode = "member"
)

// Session is the identity attached to an API token.
type Session struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	Mode        SessionMode `json:"mode"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// IsGuest reports whether the session is the read-only guest variant.
func (s *Session) IsGuest() bool {
	return s != nil && s.Mode == ModeGuest
}

// Provider names for User.Provider.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User is an identity record kept by the identity store.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
}
