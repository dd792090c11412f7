package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cinegate/internal/domain"
)

// Claims is the signed payload carried by every token kind. IsVerified is
// stamped at issuance time and is not re-checked per request.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string           `json:"userId"`
	TokenType  domain.TokenKind `json:"tokenType"`
	IsVerified bool             `json:"isVerified"`
}

// KindConfig holds the signing secret and lifetime of one token kind.
type KindConfig struct {
	Secret   string
	Lifetime time.Duration
}

// Config carries an independent secret and lifetime per token kind.
type Config struct {
	Access      KindConfig
	Refresh     KindConfig
	EmailVerify KindConfig
}

// Codec signs and verifies the three token kinds. The clock is injected so
// tests can simulate expiry deterministically.
type Codec struct {
	cfg Config
	now func() time.Time
}

func NewCodec(cfg Config, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{cfg: cfg, now: now}
}

// Issue signs a token of the given kind. IssuedAt and ExpiresAt are stamped
// from the codec's clock and never taken from caller input.
func (c *Codec) Issue(kind domain.TokenKind, userID string, isVerified bool) (string, error) {
	kc, err := c.kindConfig(kind)
	if err != nil {
		return "", err
	}

	now := c.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(kc.Lifetime)),
		},
		UserID:     userID,
		TokenType:  kind,
		IsVerified: isVerified,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(kc.Secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks the token against the kind's secret and rejects anything
// past its expiry. Expired-but-authentic tokens map to ErrTokenExpired,
// everything else to ErrInvalidToken.
func (c *Codec) Verify(kind domain.TokenKind, tokenString string) (*Claims, error) {
	return c.parse(kind, tokenString, true)
}

// Decode checks the signature but skips time-based validation. The resend
// debounce needs the issued-at of a verification token even after the token
// itself has expired.
func (c *Codec) Decode(kind domain.TokenKind, tokenString string) (*Claims, error) {
	return c.parse(kind, tokenString, false)
}

func (c *Codec) parse(kind domain.TokenKind, tokenString string, validateTime bool) (*Claims, error) {
	kc, err := c.kindConfig(kind)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if !validateTime {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(kc.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !parsed.Valid || claims.TokenType != kind {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

func (c *Codec) kindConfig(kind domain.TokenKind) (KindConfig, error) {
	switch kind {
	case domain.AccessToken:
		return c.cfg.Access, nil
	case domain.RefreshToken:
		return c.cfg.Refresh, nil
	case domain.EmailVerifyToken:
		return c.cfg.EmailVerify, nil
	default:
		return KindConfig{}, fmt.Errorf("unknown token kind %q", kind)
	}
}
