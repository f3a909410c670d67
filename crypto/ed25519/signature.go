package ed25519

import (
	"bytes"

	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

// Signature is a Schnorr signature over the curve.
//
// - implements crypto.Signature
type Signature struct {
	data []byte
}

// NewSignature wraps the binary form of a signature. The data is only checked
// when the signature is verified.
func NewSignature(data []byte) Signature {
	return Signature{data: data}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (sig Signature) MarshalBinary() ([]byte, error) {
	return sig.data, nil
}

// Serialize implements serde.Message.
func (sig Signature) Serialize(ctx serde.Context) ([]byte, error) {
	format := sigFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, sig)
	if err != nil {
		return nil, xerrors.Errorf("couldn't encode signature: %v", err)
	}

	return data, nil
}

// Equal implements crypto.Signature.
func (sig Signature) Equal(other crypto.Signature) bool {
	o, ok := other.(Signature)

	return ok && bytes.Equal(sig.data, o.data)
}
