package signed

import (
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

// PublicKeyFac is the key of the public key factory in the serde context.
type PublicKeyFac struct{}

// SignatureFac is the key of the signature factory in the serde context.
type SignatureFac struct{}

// TransactionFactory decodes the transactions authored by Ed25519 identities.
//
// - implements txn.Factory
type TransactionFactory struct {
	pubkeyFac crypto.PublicKeyFactory
	sigFac    crypto.SignatureFactory
}

// NewTransactionFactory returns a new factory of transactions.
func NewTransactionFactory() TransactionFactory {
	return TransactionFactory{
		pubkeyFac: ed25519.NewPublicKeyFactory(),
		sigFac:    ed25519.NewSignatureFactory(),
	}
}

// Deserialize implements serde.Factory.
func (f TransactionFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.TransactionOf(ctx, data)
}

// TransactionOf implements txn.Factory. The format of the context decodes the
// identity and the signature with the factories of the transaction factory.
func (f TransactionFactory) TransactionOf(ctx serde.Context, data []byte) (txn.Transaction, error) {
	format := txFormats.Get(ctx.GetFormat())

	ctx = serde.WithFactory(ctx, PublicKeyFac{}, f.pubkeyFac)
	ctx = serde.WithFactory(ctx, SignatureFac{}, f.sigFac)

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	tx, ok := msg.(*Transaction)
	if !ok {
		return nil, xerrors.Errorf("invalid transaction of type '%T'", msg)
	}

	return tx, nil
}
