package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	a, err := GenerateOpaqueToken(SessionIDBytes)
	require.NoError(t, err)
	b, err := GenerateOpaqueToken(SessionIDBytes)
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)

	_, err = GenerateOpaqueToken(8)
	assert.Error(t, err)
}

func TestSHA256Base64URLAndEqual(t *testing.T) {
	assert.Equal(t, SHA256Base64URL("abc"), SHA256Base64URL("abc"))
	assert.NotEqual(t, SHA256Base64URL("abc"), SHA256Base64URL("abd"))
	assert.True(t, Equal("x", "x"))
	assert.False(t, Equal("x", "y"))
}
