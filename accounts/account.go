package accounts

import "time"

type (
	// Account is the full credential record, including the password hash.
	// It never leaves the server process; handlers expose Profile instead.
	Account struct {
		ID           string
		Email        string
		Username     string
		PasswordHash []byte
		DisplayName  string
		AvatarURL    string
		CreatedAt    time.Time
	}

	// Profile is the client-visible subset of an Account.
	Profile struct {
		ID          string    `json:"id"`
		Email       string    `json:"email"`
		Username    string    `json:"username"`
		DisplayName string    `json:"displayName,omitempty"`
		AvatarURL   string    `json:"avatarUrl,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

// Profile strips the password hash, unconditionally. This is the only
// way account data should reach a serializer.
func (a *Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Email:       a.Email,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		CreatedAt:   a.CreatedAt,
	}
}
