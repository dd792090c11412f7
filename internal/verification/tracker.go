package verification

import (
	"time"

	"cinegate/internal/domain"
	"cinegate/internal/token"
)

// Tracker enforces a minimum spacing between consecutive verification-email
// resends. The window is anchored on the issued-at of the currently stored
// verification token, so no background timer or extra persisted state exists.
type Tracker struct {
	codec    *token.Codec
	debounce time.Duration
	now      func() time.Time
}

func NewTracker(codec *token.Codec, debounce time.Duration, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{codec: codec, debounce: debounce, now: now}
}

// RemainingCooldown reports how long the caller must still wait before a
// resend is permitted, and zero once the window has elapsed. Expiry of the
// stored token is irrelevant here: an expired-but-recently-issued token still
// enforces the cooldown, so the token is decoded without time validation.
func (t *Tracker) RemainingCooldown(currentToken string) (time.Duration, error) {
	claims, err := t.codec.Decode(domain.EmailVerifyToken, currentToken)
	if err != nil {
		return 0, err
	}
	if claims.IssuedAt == nil {
		return 0, domain.ErrInvalidToken
	}

	nextAllowed := claims.IssuedAt.Add(t.debounce)
	remaining := nextAllowed.Sub(t.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}
