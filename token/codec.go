package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

// Type discriminates the credential kinds this service issues
type Type string

const (
	TypeAccess            Type = "access"
	TypeRefresh           Type = "refresh"
	TypeEmailVerification Type = "email_verification"
)

// VerificationTTL is fixed for email verification tokens
const VerificationTTL = 24 * time.Hour

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token is expired")
)

// Config carries the shared signing secret and token lifetimes.
// It is passed into constructors explicitly so tests can run several
// signing domains side by side.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the closed claim set for all token types. Email and Roles
// are populated for access tokens only.
type Claims struct {
	jwt.RegisteredClaims
	TokenType Type     `json:"type"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// Credential is the parsed, verified view of a token
type Credential struct {
	Subject   string
	Type      Type
	IssuedAt  time.Time
	ExpiresAt time.Time
	Email     string
	Roles     []string
}

// Codec builds and parses signed self-contained tokens using a single
// shared HMAC-SHA512 secret
type Codec struct {
	cfg Config
}

func NewCodec(cfg Config) *Codec {
	return &Codec{cfg: cfg}
}

func (c *Codec) AccessTTL() time.Duration  { return c.cfg.AccessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

func (c *Codec) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return t.SignedString(c.cfg.Secret)
}

// IssueAccess creates an access token carrying the user's email and roles
func (c *Codec) IssueAccess(subject, email string, roles []string) (string, error) {
	now := time.Now()
	return c.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.AccessTTL)),
		},
		TokenType: TypeAccess,
		Email:     email,
		Roles:     roles,
	})
}

// IssueRefresh creates a refresh token carrying nothing beyond the type tag
func (c *Codec) IssueRefresh(subject string) (string, error) {
	now := time.Now()
	return c.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.RefreshTTL)),
		},
		TokenType: TypeRefresh,
	})
}

// IssueVerification creates an email verification token with a fixed 24h lifetime
func (c *Codec) IssueVerification(subject string) (string, error) {
	now := time.Now()
	return c.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(VerificationTTL)),
		},
		TokenType: TypeEmailVerification,
	})
}

// Parse verifies the signature and expiry and returns the credential.
// Any decode error, signature mismatch or expired deadline fails closed
// with exactly one of ErrMalformed, ErrInvalidSignature or ErrExpired,
// never a partially-trusted result.
func (c *Codec) Parse(tokenString string) (*Credential, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// Make sure that the token method conform to "SigningMethodHMAC"
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.cfg.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrInvalidSignature
		}
	}

	// exp is not optional here even though JWT treats it as such
	if claims.ExpiresAt == nil || claims.TokenType == "" {
		return nil, ErrMalformed
	}

	cred := &Credential{
		Subject:   claims.Subject,
		Type:      claims.TokenType,
		ExpiresAt: claims.ExpiresAt.Time,
		Email:     claims.Email,
		Roles:     claims.Roles,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	return cred, nil
}
