// Package ed25519 implements the signer, public keys and signatures of the
// ledger on the Edwards 25519 curve.
//
// Signatures follow the Schnorr scheme as described in:
//
// Efficient Identification and Signatures for Smart Cards (1989)
// https://link.springer.com/chapter/10.1007/0-387-34805-0_22
//
// The binary form of a public key is the identity of a ledger participant,
// hence it is also the key of the participant and administration records.
package ed25519

import (
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"go.dedis.ch/kyber/v3/suites"
)

const (
	// Scheme is the name of the signature scheme announced by the encoded
	// keys and signatures.
	Scheme = "ed25519-schnorr"

	// PublicKeySize is the length in bytes of a marshaled public key.
	PublicKeySize = 32

	// SignatureSize is the length in bytes of a marshaled signature.
	SignatureSize = 64
)

var (
	suite = suites.MustFind("Ed25519")

	pubkeyFormats = registry.NewSimpleRegistry()
	sigFormats    = registry.NewSimpleRegistry()
)

// RegisterPublicKeyFormat registers the engine for the provided format.
func RegisterPublicKeyFormat(format serde.Format, engine serde.FormatEngine) {
	pubkeyFormats.Register(format, engine)
}

// RegisterSignatureFormat registers the engine for the provided format.
func RegisterSignatureFormat(format serde.Format, engine serde.FormatEngine) {
	sigFormats.Register(format, engine)
}
