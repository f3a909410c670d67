package ed25519

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/internal/testing/fake"
	"go.dedis.ch/ballot/serde"
)

func init() {
	pubkeyFormats.Register(fake.GoodFormat, fake.Format{Msg: PublicKey{}})
	pubkeyFormats.Register(fake.BadFormat, fake.NewBadFormat())
	pubkeyFormats.Register(serde.Format("BAD_TYPE"), fake.Format{Msg: fake.Message{}})
}

func TestNewPublicKey(t *testing.T) {
	signer := NewSigner()

	data, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, PublicKeySize)

	pubkey, err := NewPublicKey(data)
	require.NoError(t, err)
	require.True(t, pubkey.Equal(signer.GetPublicKey()))

	_, err = NewPublicKey(data[:31])
	require.EqualError(t, err, "expected 32 bytes, got 31")
}

func TestPublicKey_Verify(t *testing.T) {
	alice := NewSigner()
	bob := NewSigner()

	sig, err := alice.Sign([]byte("ballot"))
	require.NoError(t, err)

	require.NoError(t, alice.GetPublicKey().Verify([]byte("ballot"), sig))

	err = alice.GetPublicKey().Verify([]byte("ballots"), sig)
	require.Error(t, err)
	require.Contains(t, err.Error(), "schnorr verify failed: ")

	err = bob.GetPublicKey().Verify([]byte("ballot"), sig)
	require.Error(t, err)

	err = alice.GetPublicKey().Verify([]byte("ballot"), fake.Signature{})
	require.EqualError(t, err, "invalid signature type 'fake.Signature'")
}

func TestPublicKey_Equal(t *testing.T) {
	signer := NewSigner()
	pubkey := signer.GetPublicKey()

	require.True(t, pubkey.Equal(pubkey))
	require.False(t, pubkey.Equal(NewSigner().GetPublicKey()))
	require.False(t, pubkey.Equal(PublicKey{}))
	require.False(t, PublicKey{}.Equal(pubkey))
	require.False(t, pubkey.Equal(fake.PublicKey{}))
}

func TestPublicKey_Text(t *testing.T) {
	pubkey := NewSigner().GetPublicKey().(PublicKey)

	text, err := pubkey.MarshalText()
	require.NoError(t, err)
	require.Regexp(t, "^schnorr:[a-f0-9]{64}$", string(text))

	require.Regexp(t, "^schnorr:[a-f0-9]{16}$", pubkey.String())
	require.Equal(t, string(text[:24]), pubkey.String())
}

func TestPublicKey_Serialize(t *testing.T) {
	pubkey := NewSigner().GetPublicKey()

	data, err := pubkey.Serialize(fake.NewContext())
	require.NoError(t, err)
	require.Equal(t, fake.GetFakeFormatValue(), data)

	_, err = pubkey.Serialize(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("couldn't encode public key"))
}

func TestPublicKeyFactory_PublicKeyOf(t *testing.T) {
	factory := NewPublicKeyFactory()

	msg, err := factory.Deserialize(fake.NewContext(), nil)
	require.NoError(t, err)
	require.IsType(t, PublicKey{}, msg)

	_, err = factory.PublicKeyOf(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("couldn't decode public key"))

	_, err = factory.PublicKeyOf(fake.NewContextWithFormat(serde.Format("BAD_TYPE")), nil)
	require.EqualError(t, err, "invalid public key of type 'fake.Message'")
}

func TestPublicKeyFactory_FromBytes(t *testing.T) {
	factory := NewPublicKeyFactory()
	pubkey := NewSigner().GetPublicKey()

	data, err := pubkey.MarshalBinary()
	require.NoError(t, err)

	res, err := factory.FromBytes(data)
	require.NoError(t, err)
	require.True(t, pubkey.Equal(res))

	_, err = factory.FromBytes(nil)
	require.EqualError(t, err, "failed to unmarshal the key: expected 32 bytes, got 0")
}
