package signed

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
	"go.dedis.ch/ballot/serde"
)

func init() {
	RegisterTransactionFormat(fake.GoodFormat, fake.Format{Msg: &Transaction{}})
	RegisterTransactionFormat(fake.BadFormat, fake.NewBadFormat())
	RegisterTransactionFormat(serde.Format("BAD_TYPE"), fake.Format{Msg: fake.Message{}})
}

func TestNewTransaction(t *testing.T) {
	signer := ed25519.NewSigner()

	tx, err := NewTransaction(3, signer.GetPublicKey(),
		WithArg("election:command", []byte("VOTE")),
		WithArg("election:vote", []byte{1}))
	require.NoError(t, err)
	require.Equal(t, uint64(3), tx.GetNonce())
	require.Equal(t, signer.GetPublicKey(), tx.GetIdentity())
	require.Equal(t, []string{"election:command", "election:vote"}, tx.GetArgs())
	require.Equal(t, []byte("VOTE"), tx.GetArg("election:command"))
	require.Nil(t, tx.GetArg("timestamp:time"))
	require.Len(t, tx.GetID(), 32)
	require.Nil(t, tx.GetSignature())

	require.NoError(t, tx.Sign(signer))

	// A decoded transaction keeps its signature when it verifies.
	decoded, err := NewTransaction(3, signer.GetPublicKey(),
		WithArg("election:command", []byte("VOTE")),
		WithArg("election:vote", []byte{1}),
		WithSignature(tx.GetSignature()))
	require.NoError(t, err)
	require.Equal(t, tx.GetID(), decoded.GetID())
	require.True(t, tx.GetSignature().Equal(decoded.GetSignature()))

	_, err = NewTransaction(4, signer.GetPublicKey(), WithSignature(tx.GetSignature()))
	require.Error(t, err)
	require.Regexp(t, "^invalid signature: schnorr verify failed", err.Error())

	_, err = NewTransaction(0, fake.PublicKey{},
		WithHashFactory(fake.NewHashFactory(fake.NewBadHash())))
	require.EqualError(t, err, fake.Err("couldn't fingerprint tx: couldn't write nonce"))
}

func TestNewTransaction_HashFactory(t *testing.T) {
	sha256, err := NewTransaction(0, fake.PublicKey{})
	require.NoError(t, err)

	sha3, err := NewTransaction(0, fake.PublicKey{},
		WithHashFactory(crypto.NewHashFactory(crypto.Sha3_224)))
	require.NoError(t, err)

	require.Len(t, sha3.GetID(), 28)
	require.NotEqual(t, sha256.GetID(), sha3.GetID())
}

func TestTransaction_Sign(t *testing.T) {
	signer := ed25519.NewSigner()

	tx, err := NewTransaction(2, signer.GetPublicKey(), WithArg("A", []byte{123}))
	require.NoError(t, err)

	err = tx.Sign(signer)
	require.NoError(t, err)
	require.NoError(t, signer.GetPublicKey().Verify(tx.GetID(), tx.GetSignature()))

	err = tx.Sign(ed25519.NewSigner())
	require.EqualError(t, err, "mismatch signer and identity")

	tx.hash = nil
	err = tx.Sign(signer)
	require.EqualError(t, err, "missing digest in transaction")

	tx.hash = []byte{1}
	tx.pubkey = fake.PublicKey{}
	err = tx.Sign(fake.NewBadSigner())
	require.EqualError(t, err, fake.Err("signer"))
}

func TestTransaction_Fingerprint(t *testing.T) {
	tx, err := NewTransaction(2, fake.PublicKey{}, WithArg("A", []byte{1, 2, 3}))
	require.NoError(t, err)

	buffer := new(bytes.Buffer)
	err = tx.Fingerprint(buffer)
	require.NoError(t, err)
	require.Equal(t, "\x02\x00\x00\x00\x00\x00\x00\x00\x01\x00\x00\x00"+
		"\x01\x00\x00\x00A\x03\x00\x00\x00\x01\x02\x03"+
		"\x02\x00\x00\x00PK", buffer.String())

	err = tx.Fingerprint(fake.NewBadHash())
	require.EqualError(t, err, fake.Err("couldn't write nonce"))

	err = tx.Fingerprint(fake.NewBadHashWithDelay(1))
	require.EqualError(t, err, fake.Err("couldn't write arg"))

	err = tx.Fingerprint(fake.NewBadHashWithDelay(2))
	require.EqualError(t, err, fake.Err("couldn't write public key"))

	tx.pubkey = fake.NewBadPublicKey()
	err = tx.Fingerprint(buffer)
	require.EqualError(t, err, fake.Err("failed to marshal public key"))
}

func TestTransaction_FingerprintBoundaries(t *testing.T) {
	// Moving bytes between the key and the value of an argument must change
	// the identifier.
	a, err := NewTransaction(0, fake.PublicKey{}, WithArg("ab", []byte("c")))
	require.NoError(t, err)

	b, err := NewTransaction(0, fake.PublicKey{}, WithArg("a", []byte("bc")))
	require.NoError(t, err)

	require.NotEqual(t, a.GetID(), b.GetID())
}

func TestTransaction_Serialize(t *testing.T) {
	tx, err := NewTransaction(0, fake.PublicKey{})
	require.NoError(t, err)

	data, err := tx.Serialize(fake.NewContext())
	require.NoError(t, err)
	require.Equal(t, fake.GetFakeFormatValue(), data)

	_, err = tx.Serialize(fake.NewBadContext())
	require.EqualError(t, err, fake.Err("failed to encode"))
}

func TestTransactionFactory_TransactionOf(t *testing.T) {
	factory := NewTransactionFactory()

	msg, err := factory.Deserialize(fake.NewContext(), nil)
	require.NoError(t, err)
	require.IsType(t, &Transaction{}, msg)

	_, err = factory.TransactionOf(fake.NewBadContext(), nil)
	require.EqualError(t, err, fake.Err("failed to decode"))

	_, err = factory.TransactionOf(fake.NewContextWithFormat(serde.Format("BAD_TYPE")), nil)
	require.EqualError(t, err, "invalid transaction of type 'fake.Message'")
}
