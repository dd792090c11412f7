package domain

// TokenKind discriminates the three credentials the codec can issue. Each
// kind is signed with its own secret and carries its own lifetime, so a
// leaked email-verification secret cannot forge access tokens.
type TokenKind string

const (
	AccessToken      TokenKind = "access"
	RefreshToken     TokenKind = "refresh"
	EmailVerifyToken TokenKind = "email_verify"
)

// TokenPair is the credential set returned by every successful auth
// operation. It is ephemeral and never persisted.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
