package model

import "time"

// Role values stored in users.role and carried in token claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Provider values stored in users.provider.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash is empty for accounts created through Google that
// never set a local password; it is excluded from every JSON encoding.
//
// Fields:
//  ID          : UUID primary key.
//  Email       : unique, lower-cased email address.
//  PasswordHash: bcrypt hash, empty for OAuth-only accounts.
//  Name        : display name.
//  Role        : RoleUser or RoleAdmin.
//  GoogleID    : Google subject id when linked.
//  Provider    : ProviderLocal or ProviderGoogle.
//  Age, Address, Contact: optional profile fields.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	GoogleID     *string   `json:"googleId,omitempty"`
	Provider     string    `json:"provider"`
	Age          *int      `json:"age,omitempty"`
	Address      *string   `json:"address,omitempty"`
	Contact      *string   `json:"contact,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// OAuthOnly reports whether the account was created through Google and has
// never set a local password.
func (u *User) OAuthOnly() bool {
	return u.Provider == ProviderGoogle && !u.HasPassword()
}

// ProfileComplete reports whether age, address and contact are all present.
func (u *User) ProfileComplete() bool {
	return u.Age != nil && *u.Age > 0 &&
		u.Address != nil && *u.Address != "" &&
		u.Contact != nil && *u.Contact != ""
}

// Profile holds the user-editable fields.  A nil pointer leaves the stored
// value untouched.
type Profile struct {
	Name    *string
	Age     *int
	Address *string
	Contact *string
}

// Empty reports whether no field is set.
func (p Profile) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Address == nil && p.Contact == nil
}

// RefreshToken models an entry in the `refresh_tokens` table, used only when
// refresh-token rotation is enabled.  The token id (jti) is stored as its
// SHA-256 hash; Family groups every token rotated from one login.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	Family    string     // refresh_tokens.family_id
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
