package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 hashing for stored refresh token ids
	"encoding/hex"  // hex encoding of digests
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // token and family ids
)

// ErrInvalidToken is returned for any token that is malformed, expired,
// signed with another secret or algorithm, or issued by someone else.
var ErrInvalidToken = errors.New("invalid token")

// Subject is the identity a token is issued for.
type Subject struct {
	ID    string
	Email string
	Role  string
}

// Claims is the payload shared by access and refresh tokens.  Refresh
// tokens also carry a token id (jti, in RegisteredClaims) and a family id.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Family string `json:"fam,omitempty"`
	jwt.RegisteredClaims
}

// Token is a signed token along with its id and expiry.
type Token struct {
	Raw    string
	ID     string
	Family string
	Exp    time.Time
}

// TokenCodec signs and verifies HS256 tokens in two independent keyspaces.
// Access and refresh tokens use different secrets so that one can never be
// accepted as the other.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenCodec builds a codec.  Both secrets must be non-empty and distinct.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) (*TokenCodec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
		now:           time.Now,
	}, nil
}

// RefreshTTL returns the refresh token lifetime, used for the cookie max-age.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token for s.
func (c *TokenCodec) IssueAccess(s Subject) (Token, error) {
	return c.issue(s, c.accessSecret, c.accessTTL, "")
}

// IssueRefresh signs a long-lived refresh token for s.  An empty family
// starts a new one.
func (c *TokenCodec) IssueRefresh(s Subject, family string) (Token, error) {
	if family == "" {
		family = uuid.NewString()
	}
	return c.issue(s, c.refreshSecret, c.refreshTTL, family)
}

func (c *TokenCodec) issue(s Subject, secret []byte, ttl time.Duration, family string) (Token, error) {
	now := c.now().UTC()
	exp := now.Add(ttl)
	id := uuid.NewString()
	claims := Claims{
		UserID: s.ID,
		Email:  s.Email,
		Role:   s.Role,
		Family: family,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   s.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Raw: signed, ID: id, Family: family, Exp: exp}, nil
}

// VerifyAccess verifies a token against the access secret.
func (c *TokenCodec) VerifyAccess(raw string) (*Claims, error) {
	return c.Verify(raw, c.accessSecret)
}

// VerifyRefresh verifies a token against the refresh secret.
func (c *TokenCodec) VerifyRefresh(raw string) (*Claims, error) {
	return c.Verify(raw, c.refreshSecret)
}

// Verify parses raw, checking the HS256 signature against secret, the
// expiry and the issuer.  Every failure is reported as ErrInvalidToken.
func (c *TokenCodec) Verify(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashTokenID returns the SHA-256 hash of a token id as a hex string.
// Only the hash is ever stored.
func HashTokenID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
