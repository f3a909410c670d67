package ed25519

import (
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/sign/schnorr"
	"go.dedis.ch/kyber/v3/util/key"
	"golang.org/x/xerrors"
)

// Signer holds a private key and produces Schnorr signatures with it.
//
// - implements crypto.Signer
// - implements encoding.BinaryMarshaler
type Signer struct {
	secret kyber.Scalar
	public kyber.Point
}

// NewSigner generates a signer with a random private key.
func NewSigner() Signer {
	pair := key.NewKeyPair(suite)

	return Signer{
		secret: pair.Private,
		public: pair.Public,
	}
}

// NewSignerFromBytes restores a signer from its marshaled private key.
func NewSignerFromBytes(data []byte) (Signer, error) {
	secret := suite.Scalar()

	err := secret.UnmarshalBinary(data)
	if err != nil {
		return Signer{}, xerrors.Errorf("failed to unmarshal scalar: %v", err)
	}

	return Signer{
		secret: secret,
		public: suite.Point().Mul(secret, nil),
	}, nil
}

// MarshalBinary implements encoding.BinaryMarshaler. The output is the private
// key and must be kept secret.
func (s Signer) MarshalBinary() ([]byte, error) {
	data, err := s.secret.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal scalar: %v", err)
	}

	return data, nil
}

// GetPublicKeyFactory implements crypto.Signer.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return publicKeyFactory{}
}

// GetSignatureFactory implements crypto.Signer.
func (s Signer) GetSignatureFactory() crypto.SignatureFactory {
	return signatureFactory{}
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return PublicKey{point: s.public}
}

// Sign implements crypto.Signer.
func (s Signer) Sign(msg []byte) (crypto.Signature, error) {
	sig, err := schnorr.Sign(suite, s.secret, msg)
	if err != nil {
		return nil, xerrors.Errorf("couldn't make schnorr signature: %v", err)
	}

	return Signature{data: sig}, nil
}
