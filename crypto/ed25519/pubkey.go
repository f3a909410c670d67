package ed25519

import (
	"fmt"

	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"golang.org/x/xerrors"
)

// PublicKey is a point of the curve that verifies the signatures of a signer.
//
// - implements crypto.PublicKey
type PublicKey struct {
	point kyber.Point
}

// NewPublicKey decodes a public key from its binary form.
func NewPublicKey(data []byte) (PublicKey, error) {
	if len(data) != PublicKeySize {
		return PublicKey{}, xerrors.Errorf("expected %d bytes, got %d", PublicKeySize, len(data))
	}

	point := suite.Point()

	err := point.UnmarshalBinary(data)
	if err != nil {
		return PublicKey{}, xerrors.Errorf("invalid point: %v", err)
	}

	return PublicKey{point: point}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	return pk.point.MarshalBinary()
}

// MarshalText implements encoding.TextMarshaler. The binary form is printed in
// hexadecimal behind the "schnorr:" prefix.
func (pk PublicKey) MarshalText() ([]byte, error) {
	data, err := pk.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return []byte(fmt.Sprintf("schnorr:%x", data)), nil
}

// Serialize implements serde.Message.
func (pk PublicKey) Serialize(ctx serde.Context) ([]byte, error) {
	format := pubkeyFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, pk)
	if err != nil {
		return nil, xerrors.Errorf("couldn't encode public key: %v", err)
	}

	return data, nil
}

// Verify implements crypto.PublicKey. It returns nil when the signature has
// been produced by the owner of the key for this exact message.
func (pk PublicKey) Verify(msg []byte, sig crypto.Signature) error {
	signature, ok := sig.(Signature)
	if !ok {
		return xerrors.Errorf("invalid signature type '%T'", sig)
	}

	err := schnorr.Verify(suite, pk.point, msg, signature.data)
	if err != nil {
		return xerrors.Errorf("schnorr verify failed: %v", err)
	}

	return nil
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other interface{}) bool {
	o, ok := other.(PublicKey)
	if !ok || o.point == nil || pk.point == nil {
		return false
	}

	return pk.point.Equal(o.point)
}

// String implements fmt.Stringer. It prints the first eight bytes of the key
// which is enough to tell participants apart in the logs.
func (pk PublicKey) String() string {
	text, err := pk.MarshalText()
	if err != nil {
		return "schnorr:malformed"
	}

	return string(text[:len("schnorr:")+16])
}
