// Package crypto defines the cryptographic primitives used to identify the
// authors of the ledger transactions and to fingerprint the ledger state.
package crypto

import (
	"encoding"
	"hash"

	"go.dedis.ch/ballot/serde"
)

// HashFactory is an interface to produce a hash digest.
type HashFactory interface {
	New() hash.Hash
}

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler
	serde.Message

	// Verify returns nil if the signature matches the message, otherwise an
	// error is returned.
	Verify(msg []byte, signature Signature) error

	// Equal returns true when both objects are similar.
	Equal(other interface{}) bool
}

// PublicKeyFactory is a factory to create public keys.
type PublicKeyFactory interface {
	serde.Factory

	PublicKeyOf(serde.Context, []byte) (PublicKey, error)

	FromBytes([]byte) (PublicKey, error)
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler
	serde.Message

	// Equal returns true when both objects are similar.
	Equal(other Signature) bool
}

// SignatureFactory is a factory to create signatures.
type SignatureFactory interface {
	serde.Factory

	SignatureOf(serde.Context, []byte) (Signature, error)
}

// Signer provides the primitives to sign and verify signatures.
type Signer interface {
	// GetPublicKeyFactory returns a factory that can deserialize public keys
	// of the same type as the signer.
	GetPublicKeyFactory() PublicKeyFactory

	// GetSignatureFactory returns a factory that can deserialize signatures of
	// the same type as the signer.
	GetSignatureFactory() SignatureFactory

	// GetPublicKey returns the public key of the signer.
	GetPublicKey() PublicKey

	// Sign returns a signature that will match the message for the signer
	// public key.
	Sign(msg []byte) (Signature, error)
}

// RandGenerator is the interface of a source of random bytes.
type RandGenerator interface {
	Read(buffer []byte) (int, error)
}
