package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministic(t *testing.T) {
	t.Parallel()

	h := NewHasher("pepper", 1000)
	require.Equal(t, h.Hash("secret1"), h.Hash("secret1"))
	require.NotEqual(t, h.Hash("secret1"), h.Hash("secret2"))
}

func TestVerify(t *testing.T) {
	t.Parallel()

	h := NewHasher("pepper", 1000)
	digest := h.Hash("secret1")

	require.True(t, h.Verify("secret1", digest))
	require.False(t, h.Verify("secret2", digest))
}

func TestVerifyDependsOnPepper(t *testing.T) {
	t.Parallel()

	digest := NewHasher("pepper-a", 1000).Hash("secret1")
	require.False(t, NewHasher("pepper-b", 1000).Verify("secret1", digest))
}

func TestVerifySurvivesIterationBump(t *testing.T) {
	t.Parallel()

	digest := NewHasher("pepper", 1000).Hash("secret1")

	// the digest embeds its own cost, so raising the configured cost must not
	// invalidate previously stored digests
	require.True(t, NewHasher("pepper", 2000).Verify("secret1", digest))
}

func TestVerifyMalformedDigest(t *testing.T) {
	t.Parallel()

	h := NewHasher("pepper", 1000)
	for _, digest := range []string{
		"",
		"not-a-digest",
		"pbkdf2-sha256$abc$deadbeef",
		"pbkdf2-sha256$-5$deadbeef",
		"pbkdf2-sha256$1000$zz-not-hex",
		"pbkdf2-sha256$1000$deadbeef",
		"bcrypt$10$deadbeef",
	} {
		require.False(t, h.Verify("secret1", digest), "digest %q", digest)
	}
}
