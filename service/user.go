package service

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeauxdejuan/seen/crypto"
	"github.com/yeauxdejuan/seen/db"
	"github.com/yeauxdejuan/seen/forms"
	"github.com/yeauxdejuan/seen/kv"
	"github.com/yeauxdejuan/seen/mail"
	"github.com/yeauxdejuan/seen/models"
	"github.com/yeauxdejuan/seen/token"
)

// Config tunes orchestrator behavior. StrictRefresh additionally
// requires a presented refresh token to be the subject's current slot
// value, closing the stale-token-reuse window; off by default.
type Config struct {
	StrictRefresh bool
}

// UserService implements the register/login/refresh/logout/verify-email
// workflows on top of the token authority and the external collaborators.
type UserService struct {
	db     db.Database
	auth   *TokenAuthority
	hasher crypto.PasswordHasher
	mailer mail.Sender
	cfg    Config
}

func NewUserService(database db.Database, auth *TokenAuthority, hasher crypto.PasswordHasher, mailer mail.Sender, cfg Config) *UserService {
	return &UserService{
		db:     database,
		auth:   auth,
		hasher: hasher,
		mailer: mailer,
		cfg:    cfg,
	}
}

// Register creates an unverified user and mails a verification token.
// Mail delivery failure is logged and swallowed; the account exists
// either way and verification can be re-requested.
func (s *UserService) Register(form forms.RegisterForm) (models.PublicUser, error) {
	var public models.PublicUser

	exists, err := s.db.EmailExists(form.Email)
	if err != nil {
		slog.Error("failed to check if email exists", "error", err)
		return public, err
	}
	if exists {
		return public, ErrEmailTaken
	}

	if form.Password != form.ConfirmPassword {
		return public, ErrPasswordMismatch
	}

	salt := uuid.NewString()
	digest, err := s.hasher.Hash(form.Password + salt)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return public, err
	}

	user, err := s.db.CreateUser(db.CreateUser{
		Email:        form.Email,
		PasswordHash: digest,
		Salt:         salt,
		Role:         models.RoleUser,
	})
	if err != nil {
		slog.Error("failed to create user", "error", err)
		return public, err
	}

	vtok, err := s.auth.IssueVerificationToken(user.ID.String())
	if err != nil {
		slog.Error("failed to issue verification token", "error", err, "user_id", user.ID.String())
	} else if err := s.mailer.SendVerificationEmail(user.Email, vtok); err != nil {
		slog.Error("failed to send verification email", "error", err, "email", user.Email)
	}

	slog.Info("user registered", "user_id", user.ID.String())
	return user.Public(), nil
}

// Login verifies credentials and issues a fresh token pair. An unknown
// email and a wrong password both come back as ErrInvalidCredentials so
// callers cannot probe which accounts exist.
func (s *UserService) Login(form forms.LoginForm) (models.TokenBundle, error) {
	var bundle models.TokenBundle

	user, err := s.db.FindByEmail(form.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return bundle, ErrInvalidCredentials
		}
		slog.Error("failed to look up user", "error", err)
		return bundle, err
	}

	if !s.hasher.Verify(form.Password+user.Salt, user.PasswordHash) {
		return bundle, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return bundle, ErrEmailNotVerified
	}

	bundle, err = s.issueBundle(user)
	if err != nil {
		return models.TokenBundle{}, err
	}

	user.LastLoginAt = time.Now().Unix()
	if err := s.db.SaveUser(user); err != nil {
		slog.Error("failed to update last login", "error", err, "user_id", user.ID.String())
	}

	slog.Info("user logged in", "user_id", user.ID.String())
	bundle.User = user.Public()
	return bundle, nil
}

// Refresh rotates the presented refresh token into a new access+refresh
// pair. The token must pass revocation, signature and expiry checks; the
// internal failure kind is logged but never surfaced.
func (s *UserService) Refresh(presented string) (models.TokenBundle, error) {
	var bundle models.TokenBundle

	raw := StripBearer(presented)
	cred, err := s.auth.Validate(raw)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return bundle, err
		}
		slog.Warn("refresh token rejected", "reason", err)
		return bundle, ErrInvalidToken
	}

	if cred.Type != token.TypeRefresh {
		slog.Warn("refresh attempted with non-refresh token", "type", cred.Type)
		return bundle, ErrInvalidToken
	}

	if s.cfg.StrictRefresh {
		current, err := s.auth.CurrentRefreshToken(cred.Subject)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return bundle, ErrStoreUnavailable
		}
		if current != raw {
			slog.Warn("stale refresh token rejected", "user_id", cred.Subject)
			return bundle, ErrInvalidToken
		}
	}

	user, err := s.db.FindByID(cred.Subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return bundle, ErrUserNotFound
		}
		slog.Error("failed to look up user", "error", err, "user_id", cred.Subject)
		return bundle, err
	}

	return s.issueBundle(user)
}

// Logout revokes the presented token. Revoking an unparseable or expired
// token is already a no-op inside the authority.
func (s *UserService) Logout(presented string) error {
	if err := s.auth.Revoke(StripBearer(presented)); err != nil {
		return err
	}
	slog.Info("user logged out")
	return nil
}

// VerifyEmail marks the token's subject as verified
func (s *UserService) VerifyEmail(tokenString string) error {
	subject, err := s.auth.ValidateVerificationToken(tokenString)
	if err != nil {
		slog.Warn("verification token rejected", "reason", err)
		return ErrInvalidToken
	}

	user, err := s.db.FindByID(subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrInvalidToken
		}
		slog.Error("failed to look up user", "error", err, "user_id", subject)
		return err
	}

	user.EmailVerified = true
	if err := s.db.SaveUser(user); err != nil {
		slog.Error("failed to persist email verification", "error", err, "user_id", subject)
		return err
	}

	slog.Info("email verified", "user_id", subject)
	return nil
}

func (s *UserService) issueBundle(user models.User) (models.TokenBundle, error) {
	var bundle models.TokenBundle

	access, err := s.auth.IssueAccessToken(user)
	if err != nil {
		slog.Error("failed to create access token", "error", err, "user_id", user.ID.String())
		return bundle, err
	}

	refresh, err := s.auth.IssueRefreshToken(user)
	if err != nil {
		return bundle, err
	}

	return models.TokenBundle{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.auth.AccessTTL().Seconds()),
		User:         user.Public(),
	}, nil
}

// StripBearer drops an optional scheme prefix from an Authorization
// header value; a bare token passes through unchanged. Splitting on
// whitespace runs keeps a doubled space after the scheme out of the
// token.
func StripBearer(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
