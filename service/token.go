package service

import (
	"log/slog"
	"time"

	"github.com/yeauxdejuan/seen/kv"
	"github.com/yeauxdejuan/seen/models"
	"github.com/yeauxdejuan/seen/token"
)

const (
	blacklistPrefix   = "blacklisted_token:"
	refreshSlotPrefix = "refresh_token:"
)

// TokenAuthority issues, validates and revokes credentials. It is the
// only component that reads or writes the revocation/rotation store.
type TokenAuthority struct {
	codec *token.Codec
	kv    kv.KeyValueStore
}

func NewTokenAuthority(codec *token.Codec, store kv.KeyValueStore) *TokenAuthority {
	return &TokenAuthority{
		codec: codec,
		kv:    store,
	}
}

func (a *TokenAuthority) AccessTTL() time.Duration { return a.codec.AccessTTL() }

// IssueAccessToken creates an access token with the user's email and role claims
func (a *TokenAuthority) IssueAccessToken(user models.User) (string, error) {
	return a.codec.IssueAccess(user.ID.String(), user.Email, []string{string(user.Role)})
}

// IssueRefreshToken creates a refresh token and rotates the subject's
// refresh slot: the slot now names this token, and any previous refresh
// token, while still cryptographically valid, no longer occupies it.
func (a *TokenAuthority) IssueRefreshToken(user models.User) (string, error) {
	tok, err := a.codec.IssueRefresh(user.ID.String())
	if err != nil {
		slog.Error("failed to create refresh token", "error", err, "user_id", user.ID.String())
		return "", err
	}

	if err := a.kv.Set(refreshSlotPrefix+user.ID.String(), tok, a.codec.RefreshTTL()); err != nil {
		slog.Error("failed to store refresh slot", "error", err, "user_id", user.ID.String())
		return "", ErrStoreUnavailable
	}
	return tok, nil
}

// IssueVerificationToken creates a 24h email verification token
func (a *TokenAuthority) IssueVerificationToken(subject string) (string, error) {
	return a.codec.IssueVerification(subject)
}

// Validate checks the revocation set before anything else, then defers
// to the codec. A store failure fails the validation closed: a token is
// never treated as not-revoked just because the store did not answer.
func (a *TokenAuthority) Validate(tokenString string) (*token.Credential, error) {
	revoked, err := a.kv.Exists(blacklistPrefix + tokenString)
	if err != nil {
		slog.Error("revocation check failed", "error", err)
		return nil, ErrStoreUnavailable
	}
	if revoked {
		return nil, ErrRevoked
	}

	return a.codec.Parse(tokenString)
}

// ValidateVerificationToken parses and type-checks a verification token.
// It does not consult the revocation set: verification tokens are
// single-use by workflow convention, not by revocation.
func (a *TokenAuthority) ValidateVerificationToken(tokenString string) (string, error) {
	cred, err := a.codec.Parse(tokenString)
	if err != nil {
		return "", err
	}
	if cred.Type != token.TypeEmailVerification {
		return "", ErrInvalidToken
	}
	return cred.Subject, nil
}

// Revoke writes a revocation entry for the literal token string, with a
// TTL equal to the token's remaining lifetime so the entry self-expires
// exactly when the token would have died anyway. Revoking a malformed or
// already-expired token is a no-op, not an error.
func (a *TokenAuthority) Revoke(tokenString string) error {
	cred, err := a.codec.Parse(tokenString)
	if err != nil {
		slog.Debug("revoke of unparseable token ignored", "reason", err)
		return nil
	}

	ttl := time.Until(cred.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := a.kv.Set(blacklistPrefix+tokenString, "true", ttl); err != nil {
		slog.Error("failed to write revocation entry", "error", err)
		return ErrStoreUnavailable
	}
	return nil
}

// CurrentRefreshToken returns the subject's live refresh slot value, or
// kv.ErrNotFound when no slot exists
func (a *TokenAuthority) CurrentRefreshToken(subject string) (string, error) {
	return a.kv.Get(refreshSlotPrefix + subject)
}
