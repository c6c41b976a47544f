package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind tags a token as usable for resource access or for refresh only.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Verification failure kinds. The split exists for diagnostics; callers that
// don't need it treat all three as one invalid-token condition.
var (
	ErrTokenMalformed = errors.New("token malformed or signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenWrongKind = errors.New("token kind mismatch")
)

const issuer = "guardkit"

// Claims is the claim set carried by every signed token. The user ID travels
// in the registered subject claim in decimal string form; the kind uses the
// "type" wire name.
type Claims struct {
	Kind TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into the integer user identifier.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-integer subject %q", ErrTokenMalformed, c.Subject)
	}
	return id, nil
}

// TokenCodec mints and verifies HS256-signed tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec creates a token codec. Secret length is enforced at
// configuration load, not here.
func NewTokenCodec(secret []byte, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TTL returns the configured lifetime for the given token kind.
func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	if kind == TokenKindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Mint signs a token for userID issued at now and expiring at now+TTL(kind).
// JWT timestamps have one-second resolution, so two mints within the same
// second for the same subject and kind may produce identical tokens.
func (c *TokenCodec) Mint(userID int64, kind TokenKind, now time.Time) (string, error) {
	now = now.UTC()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(kind))),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses and validates a token as of now. Tokens are valid on
// [issued_at, expires_at): a token is already invalid at exactly its expiry
// instant. The returned error wraps ErrTokenMalformed, ErrTokenExpired, or
// ErrTokenWrongKind.
func (c *TokenCodec) Verify(tokenString string, expected TokenKind, now time.Time) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.Kind != expected {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrTokenWrongKind, claims.Kind, expected)
	}
	return claims, nil
}
