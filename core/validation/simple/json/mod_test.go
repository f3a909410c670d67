package json

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/txn/signed"
	_ "go.dedis.ch/ballot/core/txn/signed/json"
	"go.dedis.ch/ballot/core/validation/simple"
	"go.dedis.ch/ballot/crypto/ed25519"
	_ "go.dedis.ch/ballot/crypto/ed25519/json"
	"go.dedis.ch/ballot/internal/testing/fake"
	"go.dedis.ch/ballot/serde"
	sjson "go.dedis.ch/ballot/serde/json"
)

func TestResultFormat_RoundTrip(t *testing.T) {
	signer := ed25519.NewSigner()

	txA, err := signed.NewTransaction(0, signer.GetPublicKey())
	require.NoError(t, err)
	require.NoError(t, txA.Sign(signer))

	txB, err := signed.NewTransaction(1, signer.GetPublicKey())
	require.NoError(t, err)
	require.NoError(t, txB.Sign(signer))

	res := simple.NewResult([]simple.TransactionResult{
		simple.NewAcceptedResult(txA),
		simple.NewRejectedResult(txB, 3, "Unable to find participant"),
	})

	ctx := sjson.NewContext()

	data, err := res.Serialize(ctx)
	require.NoError(t, err)
	require.Contains(t, string(data), "Results")

	factory := simple.NewResultFactory(signed.NewTransactionFactory())

	decoded, err := factory.ResultOf(ctx, data)
	require.NoError(t, err)

	results := decoded.GetTransactionResults()
	require.Len(t, results, 2)

	accepted, _ := results[0].GetStatus()
	require.True(t, accepted)
	require.Equal(t, txA.GetID(), results[0].GetTransaction().GetID())

	accepted, reason := results[1].GetStatus()
	require.False(t, accepted)
	require.Equal(t, "Unable to find participant", reason)
	require.Equal(t, uint8(3), results[1].GetCode())
}

func TestTxResFormat_Encode(t *testing.T) {
	format := txResFormat{}

	_, err := format.Encode(fake.NewContext(), fake.Message{})
	require.EqualError(t, err, "unsupported message of type 'fake.Message'")

	res := simple.NewAcceptedResult(badTx{})
	_, err = format.Encode(fake.NewContext(), res)
	require.EqualError(t, err, fake.Err("failed to serialize tx"))
}

func TestTxResFormat_Decode(t *testing.T) {
	format := txResFormat{}

	_, err := format.Decode(fake.NewBadContext(), []byte(`{}`))
	require.EqualError(t, err, fake.Err("failed to unmarshal"))

	_, err = format.Decode(fake.NewContext(), []byte(`{}`))
	require.EqualError(t, err, "invalid transaction factory '<nil>'")
}

func TestResFormat_Decode(t *testing.T) {
	format := resFormat{}

	_, err := format.Decode(fake.NewBadContext(), []byte(`{}`))
	require.EqualError(t, err, fake.Err("failed to unmarshal"))

	_, err = format.Decode(fake.NewContext(), []byte(`{}`))
	require.EqualError(t, err, "missing transaction result factory")
}

// -----------------------------------------------------------------------------
// Utility functions

type badTx struct {
	*signed.Transaction
}

func (badTx) Serialize(serde.Context) ([]byte, error) {
	return nil, fake.GetError()
}
