package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeauxdejuan/seen/crypto"
	"github.com/yeauxdejuan/seen/db"
	"github.com/yeauxdejuan/seen/forms"
	"github.com/yeauxdejuan/seen/kv"
	"github.com/yeauxdejuan/seen/models"
	"github.com/yeauxdejuan/seen/token"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// --- test doubles ---

type fakeDB struct {
	users map[string]models.User // by id
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: make(map[string]models.User)}
}

func (f *fakeDB) EmailExists(email string) (bool, error) {
	_, err := f.FindByEmail(email)
	if err == db.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeDB) FindByEmail(email string) (models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, db.ErrNotFound
}

func (f *fakeDB) FindByID(id string) (models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return models.User{}, db.ErrNotFound
	}
	return u, nil
}

func (f *fakeDB) CreateUser(user db.CreateUser) (models.User, error) {
	u := models.User{
		ID:           models.UserID(bson.NewObjectID()),
		CreatedAt:    time.Now().Unix(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Salt:         user.Salt,
		Role:         user.Role,
	}
	f.users[u.ID.String()] = u
	return u, nil
}

func (f *fakeDB) SaveUser(user models.User) error {
	if _, ok := f.users[user.ID.String()]; !ok {
		return db.ErrNotFound
	}
	f.users[user.ID.String()] = user
	return nil
}

type captureMailer struct {
	to    string
	token string
}

func (m *captureMailer) SendVerificationEmail(to, verificationToken string) error {
	m.to = to
	m.token = verificationToken
	return nil
}

type env struct {
	users *UserService
	auth  *TokenAuthority
	codec *token.Codec
	db    *fakeDB
	mail  *captureMailer
}

func newEnv(t *testing.T, tokCfg token.Config, svcCfg Config) *env {
	t.Helper()

	codec := token.NewCodec(tokCfg)
	auth := NewTokenAuthority(codec, kv.NewMemory())
	database := newFakeDB()
	mailer := &captureMailer{}
	users := NewUserService(database, auth, crypto.NewBcryptHasherWithCost(bcrypt.MinCost), mailer, svcCfg)

	return &env{users: users, auth: auth, codec: codec, db: database, mail: mailer}
}

func tokenConfig() token.Config {
	return token.Config{
		Secret:     []byte("orchestrator-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 72 * time.Hour,
	}
}

func register(t *testing.T, e *env, email, password string) models.PublicUser {
	t.Helper()
	user, err := e.users.Register(forms.RegisterForm{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return user
}

// --- register ---

func TestRegister(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	user := register(t, e, "new@example.com", "hunter22")

	require.Equal(t, "new@example.com", user.Email)
	require.Equal(t, string(models.RoleUser), user.Role)
	require.False(t, user.EmailVerified)

	stored, err := e.db.FindByEmail("new@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, stored.Salt)
	require.NotEqual(t, "hunter22", stored.PasswordHash)

	// the mailer received a valid verification token for this user
	require.Equal(t, "new@example.com", e.mail.to)
	subject, err := e.auth.ValidateVerificationToken(e.mail.token)
	require.NoError(t, err)
	require.Equal(t, stored.ID.String(), subject)
}

func TestRegisterEmailTaken(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "dup@example.com", "hunter22")

	_, err := e.users.Register(forms.RegisterForm{
		Email:           "dup@example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterPasswordMismatchPersistsNothing(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	_, err := e.users.Register(forms.RegisterForm{
		Email:           "mismatch@example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter23",
	})
	require.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = e.db.FindByEmail("mismatch@example.com")
	require.ErrorIs(t, err, db.ErrNotFound)
	require.Empty(t, e.mail.token)
}

// --- login ---

func TestLoginUnverifiedEmailIssuesNoTokens(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "unverified@example.com", "hunter22")

	bundle, err := e.users.Login(forms.LoginForm{Email: "unverified@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrEmailNotVerified)
	require.Empty(t, bundle.AccessToken)
	require.Empty(t, bundle.RefreshToken)

	// no refresh slot was written either
	stored, err := e.db.FindByEmail("unverified@example.com")
	require.NoError(t, err)
	_, err = e.auth.CurrentRefreshToken(stored.ID.String())
	require.ErrorIs(t, err, kv.ErrNotFound)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	_, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

// Unknown email and wrong password are indistinguishable to the caller
func TestLoginUnknownEmail(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	_, err := e.users.Login(forms.LoginForm{Email: "nobody@example.com", Password: "hunter22"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", bundle.TokenType)
	require.Equal(t, int64(15*60), bundle.ExpiresIn)

	cred, err := e.codec.Parse(bundle.AccessToken)
	require.NoError(t, err)
	require.Equal(t, token.TypeAccess, cred.Type)
	require.Equal(t, []string{"USER"}, cred.Roles)

	stored, err := e.db.FindByEmail("user@example.com")
	require.NoError(t, err)
	require.NotZero(t, stored.LastLoginAt)
}

// --- verify-email ---

func TestVerifyEmailRejectsOtherTokenTypes(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	require.ErrorIs(t, e.users.VerifyEmail(bundle.AccessToken), ErrInvalidToken)
	require.ErrorIs(t, e.users.VerifyEmail("garbage"), ErrInvalidToken)
}

// --- refresh ---

func TestRefreshRotatesTokens(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	rotated, err := e.users.Refresh("Bearer " + bundle.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, bundle.RefreshToken, rotated.RefreshToken)
	require.NotEmpty(t, rotated.AccessToken)

	// the slot now belongs to the rotated token
	stored, err := e.db.FindByEmail("user@example.com")
	require.NoError(t, err)
	current, err := e.auth.CurrentRefreshToken(stored.ID.String())
	require.NoError(t, err)
	require.Equal(t, rotated.RefreshToken, current)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = e.users.Refresh(bundle.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	require.NoError(t, e.users.Logout("Bearer "+bundle.RefreshToken))
	_, err = e.users.Refresh(bundle.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

// Reference behavior: a stale but unexpired, unrevoked refresh token
// still mints new credentials after rotation
func TestRefreshAcceptsStaleTokenByDefault(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = e.users.Refresh(bundle.RefreshToken)
	require.NoError(t, err)

	// the pre-rotation token no longer owns the slot, but default mode
	// does not check slot membership
	_, err = e.users.Refresh(bundle.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshStrictModeRejectsStaleToken(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{StrictRefresh: true})
	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	rotated, err := e.users.Refresh(bundle.RefreshToken)
	require.NoError(t, err)

	_, err = e.users.Refresh(bundle.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	// the current slot holder still works
	_, err = e.users.Refresh(rotated.RefreshToken)
	require.NoError(t, err)
}

// --- logout and the edge consistency model ---

// register → verify → login → refresh → logout; a logged-out token is
// rejected by the authority immediately, while the stateless edge check
// (signature+expiry alone) keeps accepting the pre-refresh access token
// until its natural expiry.
func TestEndToEndEventualConsistency(t *testing.T) {
	t.Parallel()

	cfg := tokenConfig()
	cfg.AccessTTL = 300 * time.Millisecond
	e := newEnv(t, cfg, Config{})

	register(t, e, "user@example.com", "hunter22")
	require.NoError(t, e.users.VerifyEmail(e.mail.token))

	bundle, err := e.users.Login(forms.LoginForm{Email: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	rotated, err := e.users.Refresh("Bearer " + bundle.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, e.users.Logout("Bearer "+rotated.AccessToken))

	// authority: the logged-out token is dead immediately
	_, err = e.auth.Validate(rotated.AccessToken)
	require.ErrorIs(t, err, ErrRevoked)

	// edge view: the original pre-refresh access token was never
	// revoked, so the stateless check still accepts it...
	_, err = e.codec.Parse(bundle.AccessToken)
	require.NoError(t, err)

	// ...until natural expiry
	time.Sleep(cfg.AccessTTL + 100*time.Millisecond)
	_, err = e.codec.Parse(bundle.AccessToken)
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestLogoutOfGarbageTokenSucceeds(t *testing.T) {
	t.Parallel()

	e := newEnv(t, tokenConfig(), Config{})
	require.NoError(t, e.users.Logout("Bearer garbage"))
}

func TestStripBearer(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", StripBearer("Bearer abc"))
	require.Equal(t, "abc", StripBearer("abc"))
	require.Equal(t, "abc", StripBearer("  Bearer abc"))
	require.Equal(t, "abc", StripBearer("Bearer  abc"))
	require.Equal(t, "abc", StripBearer("Bearer abc "))
	require.Equal(t, "", StripBearer("   "))
}
