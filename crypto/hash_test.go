package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFactory_New(t *testing.T) {
	factory := NewSha256Factory()
	require.Equal(t, 32, factory.New().Size())

	factory = NewHashFactory(Sha3_224)
	require.Equal(t, 28, factory.New().Size())

	require.Panics(t, func() {
		NewHashFactory(HashAlgorithm(42)).New()
	})
}

func TestParseHashAlgorithm(t *testing.T) {
	algo, err := ParseHashAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, Sha256, algo)

	algo, err = ParseHashAlgorithm("SHA3-224")
	require.NoError(t, err)
	require.Equal(t, Sha3_224, algo)
	require.Equal(t, "sha3-224", algo.String())

	_, err = ParseHashAlgorithm("md5")
	require.EqualError(t, err, "unknown hash algorithm 'md5'")

	require.Equal(t, "unknown", HashAlgorithm(42).String())
}
