// Package json defines the JSON message of the signed transactions. Importing
// the package registers the format with SHA-256 identifiers.
package json

import (
	"encoding/json"

	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

func init() {
	signed.RegisterTransactionFormat(serde.FormatJSON, NewTransactionFormat(nil))
}

// TransactionJSON is the JSON message of a transaction. The identity and the
// signature are encoded with their own formats.
type TransactionJSON struct {
	Nonce     uint64
	Args      map[string][]byte
	PublicKey json.RawMessage
	Signature json.RawMessage
}

// txFormat is the JSON format engine for transactions.
//
// - implements serde.FormatEngine
type txFormat struct {
	hashFactory crypto.HashFactory
}

// NewTransactionFormat returns the JSON format of transactions. The hash
// factory computes the identifiers of the decoded transactions and must be
// the one of the ledger. Nil means the default algorithm.
func NewTransactionFormat(f crypto.HashFactory) serde.FormatEngine {
	return txFormat{hashFactory: f}
}

// Encode implements serde.FormatEngine. Only signed transactions can be
// encoded.
func (f txFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	tx, ok := msg.(*signed.Transaction)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	if tx.GetSignature() == nil {
		return nil, xerrors.New("signature is missing")
	}

	m := TransactionJSON{
		Nonce: tx.GetNonce(),
		Args:  make(map[string][]byte, len(tx.GetArgs())),
	}

	for _, key := range tx.GetArgs() {
		m.Args[key] = tx.GetArg(key)
	}

	var err error

	m.Signature, err = tx.GetSignature().Serialize(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode signature: %v", err)
	}

	m.PublicKey, err = tx.GetIdentity().Serialize(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode public key: %v", err)
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. The transaction is only returned when
// the signature verifies against the identity.
func (f txFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := TransactionJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	if len(m.Signature) == 0 {
		return nil, xerrors.New("signature is missing")
	}

	pubkeyFac, ok := ctx.GetFactory(signed.PublicKeyFac{}).(crypto.PublicKeyFactory)
	if !ok {
		return nil, xerrors.Errorf("public key: invalid factory '%T'",
			ctx.GetFactory(signed.PublicKeyFac{}))
	}

	pubkey, err := pubkeyFac.PublicKeyOf(ctx, m.PublicKey)
	if err != nil {
		return nil, xerrors.Errorf("public key: malformed: %v", err)
	}

	sigFac, ok := ctx.GetFactory(signed.SignatureFac{}).(crypto.SignatureFactory)
	if !ok {
		return nil, xerrors.Errorf("signature: invalid factory '%T'",
			ctx.GetFactory(signed.SignatureFac{}))
	}

	sig, err := sigFac.SignatureOf(ctx, m.Signature)
	if err != nil {
		return nil, xerrors.Errorf("signature: malformed: %v", err)
	}

	opts := []signed.TransactionOption{signed.WithSignature(sig)}

	if f.hashFactory != nil {
		opts = append(opts, signed.WithHashFactory(f.hashFactory))
	}

	for key, value := range m.Args {
		opts = append(opts, signed.WithArg(key, value))
	}

	tx, err := signed.NewTransaction(m.Nonce, pubkey, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	return tx, nil
}
