package cryptox_test

import (
	"strings"
	"testing"

	"github.com/scratchlog/scratchlog/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	// Hashing the same password twice must produce different salts.
	hash2, err := cryptox.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, hash, hash2)
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashPassword("s3cret")
	require.NoError(t, err)

	t.Run("accepts the original password", func(t *testing.T) {
		require.NoError(t, cryptox.VerifyPassword("s3cret", hash))
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		err := cryptox.VerifyPassword("not-the-password", hash)
		require.ErrorIs(t, err, cryptox.ErrPasswordMismatch)
	})

	t.Run("rejects malformed hashes", func(t *testing.T) {
		require.Error(t, cryptox.VerifyPassword("s3cret", "not-a-phc-string"))
		require.Error(t, cryptox.VerifyPassword("s3cret", "$bcrypt$v=19$m=1,t=1,p=1$a$b"))
	})
}
