package domain

import "time"

// User represents a registered account. PasswordHash is the PHC-encoded
// argon2id credential hash and never serializes to JSON.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenTypeBearer is the scheme clients use when presenting access tokens.
const TokenTypeBearer = "bearer"

// TokenPair carries the access and refresh tokens issued together at login
// and refresh. The two are cryptographically independent but share the same
// subject.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
