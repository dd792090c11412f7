package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"cinegate/internal/domain"
	"cinegate/internal/password"
	"cinegate/internal/repository"
	"cinegate/internal/token"
	"cinegate/internal/verification"
)

// EmailDispatcher is the outbound side of the verification flow. Delivery is
// fire-and-forget: the token is persisted before dispatch and a failed send
// never rolls that back.
type EmailDispatcher interface {
	SendVerificationEmail(ctx context.Context, email, name, verifyToken string)
}

// AuthService implements the account lifecycle: registration, email
// verification with resend debouncing, login and logout.
type AuthService interface {
	Register(ctx context.Context, name, email, plaintext string) (*domain.TokenPair, error)
	ResendEmailVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, verifyToken string) (*domain.TokenPair, error)
	Login(ctx context.Context, email, plaintext string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	users   repository.UserRepository
	codec   *token.Codec
	tracker *verification.Tracker
	hasher  *password.Hasher
	mail    EmailDispatcher
}

func NewAuthService(
	users repository.UserRepository,
	codec *token.Codec,
	tracker *verification.Tracker,
	hasher *password.Hasher,
	mail EmailDispatcher,
) AuthService {
	return &authService{
		users:   users,
		codec:   codec,
		tracker: tracker,
		hasher:  hasher,
		mail:    mail,
	}
}

// Register creates the account in a single insert carrying both the password
// digest and the initial verification token, so the user row either fully
// exists or not at all. The caller is authenticated immediately but the
// issued tokens are flagged unverified.
func (s *authService) Register(ctx context.Context, name, email, plaintext string) (*domain.TokenPair, error) {
	email = normalizeEmail(email)
	userID := uuid.NewString()

	verifyToken, err := s.codec.Issue(domain.EmailVerifyToken, userID, false)
	if err != nil {
		return nil, fmt.Errorf("issue verify token: %w", err)
	}

	user := &domain.User{
		ID:               userID,
		Email:            email,
		Name:             strings.TrimSpace(name),
		PasswordDigest:   s.hasher.Hash(plaintext),
		EmailVerifyToken: &verifyToken,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.mail.SendVerificationEmail(ctx, user.Email, user.Name, verifyToken)

	return s.issueTokenPair(userID, false)
}

// ResendEmailVerification mints a replacement verification token once the
// debounce window around the previous one has elapsed. The new issuance
// restarts the window from this call's time.
func (s *authService) ResendEmailVerification(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Verified() {
		return domain.ErrAlreadyVerified
	}

	remaining, err := s.tracker.RemainingCooldown(*user.EmailVerifyToken)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return &domain.ResendCooldownError{RemainingSeconds: int64(math.Ceil(remaining.Seconds()))}
	}

	verifyToken, err := s.codec.Issue(domain.EmailVerifyToken, user.ID, false)
	if err != nil {
		return fmt.Errorf("issue verify token: %w", err)
	}
	if err := s.users.UpdateVerifyToken(ctx, user.ID, user.EmailVerifyToken, &verifyToken); err != nil {
		return err
	}

	s.mail.SendVerificationEmail(ctx, user.Email, user.Name, verifyToken)
	return nil
}

// VerifyEmail consumes a verification token and clears the stored one. The
// transition is one-way: a second call with the same token is a conflict,
// never a silent success, and a token superseded by a resend is rejected even
// though its signature still checks out.
func (s *authService) VerifyEmail(ctx context.Context, verifyToken string) (*domain.TokenPair, error) {
	claims, err := s.codec.Verify(domain.EmailVerifyToken, verifyToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Verified() {
		return nil, domain.ErrAlreadyVerified
	}
	if *user.EmailVerifyToken != verifyToken {
		return nil, domain.ErrInvalidToken
	}

	if err := s.users.UpdateVerifyToken(ctx, user.ID, user.EmailVerifyToken, nil); err != nil {
		if errors.Is(err, domain.ErrVerifyTokenConflict) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	return s.issueTokenPair(user.ID, true)
}

// Login authenticates by email and password. Unknown email and wrong
// password collapse into the same error so responses cannot be used to probe
// which addresses are registered. The verified flag embedded in the issued
// tokens reflects the stored state at this moment.
func (s *authService) Login(ctx context.Context, email, plaintext string) (*domain.TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || plaintext == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(plaintext, user.PasswordDigest) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueTokenPair(user.ID, user.Verified())
}

// Logout validates the presented refresh token; successful validation is the
// whole acknowledgement. No server-side revocation list is kept, so the
// token remains technically valid until it expires and the client is
// expected to discard it.
func (s *authService) Logout(_ context.Context, refreshToken string) error {
	_, err := s.codec.Verify(domain.RefreshToken, refreshToken)
	return err
}

func (s *authService) issueTokenPair(userID string, isVerified bool) (*domain.TokenPair, error) {
	access, err := s.codec.Issue(domain.AccessToken, userID, isVerified)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.Issue(domain.RefreshToken, userID, isVerified)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
