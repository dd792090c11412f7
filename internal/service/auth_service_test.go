package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cinegate/internal/domain"
	"cinegate/internal/password"
	"cinegate/internal/service"
	"cinegate/internal/token"
	"cinegate/internal/verification"
)

const resendDebounce = time.Minute

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) Init(context.Context) error { return nil }

func (r *memoryUserRepo) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) UpdateVerifyToken(_ context.Context, id string, current, next *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !tokenEqual(user.EmailVerifyToken, current) {
		return domain.ErrVerifyTokenConflict
	}
	user.EmailVerifyToken = next
	return nil
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, id, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.PasswordDigest = digest
	return nil
}

func (r *memoryUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func tokenEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type captureMailer struct {
	mu     sync.Mutex
	tokens []string
}

func (m *captureMailer) SendVerificationEmail(_ context.Context, _, _, verifyToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, verifyToken)
}

func (m *captureMailer) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...)
}

type fixture struct {
	clk   *fakeClock
	repo  *memoryUserRepo
	mail  *captureMailer
	codec *token.Codec
	auth  service.AuthService
}

func newFixture() *fixture {
	clk := newFakeClock()
	codec := token.NewCodec(token.Config{
		Access:      token.KindConfig{Secret: "access-secret", Lifetime: 15 * time.Minute},
		Refresh:     token.KindConfig{Secret: "refresh-secret", Lifetime: 720 * time.Hour},
		EmailVerify: token.KindConfig{Secret: "verify-secret", Lifetime: 24 * time.Hour},
	}, clk.Now)
	repo := newMemoryUserRepo()
	mail := &captureMailer{}
	auth := service.NewAuthService(
		repo,
		codec,
		verification.NewTracker(codec, resendDebounce, clk.Now),
		password.NewHasher("pepper", 1000),
		mail,
	)
	return &fixture{clk: clk, repo: repo, mail: mail, codec: codec, auth: auth}
}

func (f *fixture) register(t *testing.T, email string) (userID string) {
	t.Helper()
	pair, err := f.auth.Register(context.Background(), "Test User", email, "secret1")
	require.NoError(t, err)

	claims, err := f.codec.Verify(domain.AccessToken, pair.AccessToken)
	require.NoError(t, err)
	return claims.UserID
}

func TestRegisterThenLoginUnverified(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	pair, err := f.auth.Register(ctx, "Alice", "A@X.com", "secret1")
	require.NoError(t, err)

	claims, err := f.codec.Verify(domain.AccessToken, pair.AccessToken)
	require.NoError(t, err)
	require.False(t, claims.IsVerified)

	refreshClaims, err := f.codec.Verify(domain.RefreshToken, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, claims.UserID, refreshClaims.UserID)

	// the email was normalized at registration, login with any casing works
	loginPair, err := f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	loginClaims, err := f.codec.Verify(domain.AccessToken, loginPair.AccessToken)
	require.NoError(t, err)
	require.False(t, loginClaims.IsVerified)
	require.Equal(t, claims.UserID, loginClaims.UserID)

	// one verification email went out with the stored token
	user, err := f.repo.FindByID(ctx, claims.UserID)
	require.NoError(t, err)
	require.NotNil(t, user.EmailVerifyToken)
	require.Equal(t, []string{*user.EmailVerifyToken}, f.mail.sent())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, "Mallory", "A@X.COM", "secret2")
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestResendDebounceFlow(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	userID := f.register(t, "a@x.com")

	// immediately after registration the full window is open
	err := f.auth.ResendEmailVerification(ctx, userID)
	var cooldown *domain.ResendCooldownError
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, int64(60), cooldown.RemainingSeconds)

	// remaining time decreases as the clock advances
	f.clk.Advance(25 * time.Second)
	err = f.auth.ResendEmailVerification(ctx, userID)
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, int64(35), cooldown.RemainingSeconds)

	// once the window elapses the resend goes through and replaces the token
	f.clk.Advance(35 * time.Second)
	oldToken := f.mail.sent()[0]
	require.NoError(t, f.auth.ResendEmailVerification(ctx, userID))

	sent := f.mail.sent()
	require.Len(t, sent, 2)
	newToken := sent[1]
	require.NotEqual(t, oldToken, newToken)

	user, err := f.repo.FindByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, user.EmailVerifyToken)
	require.Equal(t, newToken, *user.EmailVerifyToken)

	// the fresh issuance restarts the window
	err = f.auth.ResendEmailVerification(ctx, userID)
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, int64(60), cooldown.RemainingSeconds)

	// the superseded token still carries a valid signature but no longer
	// matches stored state, so it must not verify
	_, err = f.auth.VerifyEmail(ctx, oldToken)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	// the current token verifies and flips the account
	pair, err := f.auth.VerifyEmail(ctx, newToken)
	require.NoError(t, err)

	claims, err := f.codec.Verify(domain.AccessToken, pair.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.IsVerified)

	loginPair, err := f.auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	loginClaims, err := f.codec.Verify(domain.AccessToken, loginPair.AccessToken)
	require.NoError(t, err)
	require.True(t, loginClaims.IsVerified)
}

func TestResendCooldownOutlivesTokenExpiry(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	codec := token.NewCodec(token.Config{
		Access:      token.KindConfig{Secret: "access-secret", Lifetime: 15 * time.Minute},
		Refresh:     token.KindConfig{Secret: "refresh-secret", Lifetime: 720 * time.Hour},
		EmailVerify: token.KindConfig{Secret: "verify-secret", Lifetime: time.Second},
	}, clk.Now)
	repo := newMemoryUserRepo()
	auth := service.NewAuthService(
		repo,
		codec,
		verification.NewTracker(codec, resendDebounce, clk.Now),
		password.NewHasher("pepper", 1000),
		&captureMailer{},
	)

	ctx := context.Background()
	pair, err := auth.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)
	claims, err := codec.Verify(domain.AccessToken, pair.AccessToken)
	require.NoError(t, err)

	// the stored verification token expired seconds ago, but the debounce
	// window is still open and keeps enforcing the wait
	clk.Advance(10 * time.Second)
	err = auth.ResendEmailVerification(ctx, claims.UserID)
	var cooldown *domain.ResendCooldownError
	require.ErrorAs(t, err, &cooldown)
	require.Equal(t, int64(50), cooldown.RemainingSeconds)
}

func TestResendAlreadyVerified(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	userID := f.register(t, "a@x.com")

	_, err := f.auth.VerifyEmail(ctx, f.mail.sent()[0])
	require.NoError(t, err)

	require.ErrorIs(t, f.auth.ResendEmailVerification(ctx, userID), domain.ErrAlreadyVerified)
}

func TestResendUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	require.ErrorIs(t, f.auth.ResendEmailVerification(context.Background(), "missing"), domain.ErrUserNotFound)
}

func TestVerifyEmailNotIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	userID := f.register(t, "a@x.com")
	verifyToken := f.mail.sent()[0]

	_, err := f.auth.VerifyEmail(ctx, verifyToken)
	require.NoError(t, err)

	user, err := f.repo.FindByID(ctx, userID)
	require.NoError(t, err)
	require.Nil(t, user.EmailVerifyToken)

	// verifying twice is a conflict, never a silent success
	_, err = f.auth.VerifyEmail(ctx, verifyToken)
	require.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.register(t, "a@x.com")
	verifyToken := f.mail.sent()[0]

	f.clk.Advance(25 * time.Hour)

	_, err := f.auth.VerifyEmail(ctx, verifyToken)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerifyEmailUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	userID := f.register(t, "a@x.com")
	verifyToken := f.mail.sent()[0]

	f.repo.delete(userID)

	_, err := f.auth.VerifyEmail(ctx, verifyToken)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestVerifyEmailForgedToken(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.auth.VerifyEmail(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	f.register(t, "a@x.com")

	_, wrongPassword := f.auth.Login(ctx, "a@x.com", "wrong-password")
	_, unknownEmail := f.auth.Login(ctx, "nobody@x.com", "secret1")

	require.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
	require.Equal(t, wrongPassword, unknownEmail)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()

	pair, err := f.auth.Register(ctx, "Alice", "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, pair.RefreshToken))

	// an access token is not a refresh token
	require.ErrorIs(t, f.auth.Logout(ctx, pair.AccessToken), domain.ErrInvalidToken)

	f.clk.Advance(721 * time.Hour)
	require.ErrorIs(t, f.auth.Logout(ctx, pair.RefreshToken), domain.ErrTokenExpired)
}
