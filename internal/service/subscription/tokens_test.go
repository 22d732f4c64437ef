package subscription

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUUIDIssuer(t *testing.T) {
	issuer := UUIDIssuer{}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := issuer.Issue()
		require.NoError(t, err)
		require.False(t, seen[token], "issuer produced a duplicate token")
		seen[token] = true

		// Tokens are opaque to callers but must carry UUID-level entropy.
		_, err = uuid.Parse(token)
		require.NoError(t, err)
	}
}
