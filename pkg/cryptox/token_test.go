package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/scratchlog/scratchlog/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("produces url-safe base64 of the requested entropy", func(t *testing.T) {
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, cryptox.TokenSize256)
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)

		_, err = cryptox.GenerateToken(-1)
		require.Error(t, err)
	})

	t.Run("successive tokens differ", func(t *testing.T) {
		a := cryptox.MustGenerateToken(cryptox.TokenSize128)
		b := cryptox.MustGenerateToken(cryptox.TokenSize128)
		require.NotEqual(t, a, b)
	})
}
