package fake

import (
	"bytes"
	"hash"

	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
)

// PublicKey is a fake implementation of crypto.PublicKey.
//
// - implements crypto.PublicKey
type PublicKey struct {
	crypto.PublicKey
	data      []byte
	err       error
	verifyErr error
}

// NewPublicKey returns a public key identified by the given bytes.
func NewPublicKey(data []byte) PublicKey {
	return PublicKey{data: data}
}

// NewBadPublicKey returns a new fake public key that returns error when
// appropriate.
func NewBadPublicKey() PublicKey {
	return PublicKey{err: GetError(), verifyErr: GetError()}
}

// NewInvalidPublicKey returns a fake public key that never verifies a
// signature.
func NewInvalidPublicKey() PublicKey {
	return PublicKey{verifyErr: GetError()}
}

// Verify implements crypto.PublicKey. It returns nil or an error if set.
func (pk PublicKey) Verify([]byte, crypto.Signature) error {
	return pk.verifyErr
}

// Equal implements crypto.PublicKey.
func (pk PublicKey) Equal(other interface{}) bool {
	o, ok := other.(PublicKey)
	return ok && bytes.Equal(o.data, pk.data)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (pk PublicKey) MarshalBinary() ([]byte, error) {
	if pk.err != nil {
		return nil, pk.err
	}

	if pk.data == nil {
		return []byte("PK"), nil
	}

	return pk.data, nil
}

// MarshalText implements encoding.TextMarshaler.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte("fake:public_key"), pk.err
}

// Serialize implements serde.Message.
func (pk PublicKey) Serialize(serde.Context) ([]byte, error) {
	if pk.err != nil {
		return nil, pk.err
	}

	return []byte(`{}`), nil
}

// String implements fmt.Stringer.
func (pk PublicKey) String() string {
	return "fake.PublicKey"
}

// PublicKeyFactory is a fake implementation of a public key factory.
//
// - implements crypto.PublicKeyFactory
type PublicKeyFactory struct {
	pubkey PublicKey
	err    error
}

// NewPublicKeyFactory returns a new fake public key factory.
func NewPublicKeyFactory(pubkey PublicKey) PublicKeyFactory {
	return PublicKeyFactory{pubkey: pubkey}
}

// NewBadPublicKeyFactory returns a new fake public key factory that returns
// errors.
func NewBadPublicKeyFactory() PublicKeyFactory {
	return PublicKeyFactory{err: GetError()}
}

// Deserialize implements serde.Factory.
func (f PublicKeyFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.PublicKeyOf(ctx, data)
}

// PublicKeyOf implements crypto.PublicKeyFactory.
func (f PublicKeyFactory) PublicKeyOf(serde.Context, []byte) (crypto.PublicKey, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.pubkey, nil
}

// FromBytes implements crypto.PublicKeyFactory.
func (f PublicKeyFactory) FromBytes(data []byte) (crypto.PublicKey, error) {
	if f.err != nil {
		return nil, f.err
	}

	return NewPublicKey(data), nil
}

// Signature is a fake implementation of the signature.
//
// - implements crypto.Signature
type Signature struct {
	crypto.Signature
	err error
}

// NewBadSignature returns a signature that will return error when appropriate.
func NewBadSignature() Signature {
	return Signature{err: GetError()}
}

// Equal implements crypto.Signature.
func (s Signature) Equal(o crypto.Signature) bool {
	_, ok := o.(Signature)
	return ok
}

// Serialize implements serde.Message.
func (s Signature) Serialize(serde.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}

	return []byte(`{}`), nil
}

// MarshalBinary implements crypto.Signature.
func (s Signature) MarshalBinary() ([]byte, error) {
	return []byte("{}"), s.err
}

// SignatureFactory is a fake implementation of the signature factory.
//
// - implements crypto.SignatureFactory
type SignatureFactory struct {
	signature Signature
	err       error
}

// NewSignatureFactory returns a fake signature factory.
func NewSignatureFactory(s Signature) SignatureFactory {
	return SignatureFactory{signature: s}
}

// NewBadSignatureFactory returns a signature factory that will return an
// error when appropriate.
func NewBadSignatureFactory() SignatureFactory {
	return SignatureFactory{err: GetError()}
}

// Deserialize implements serde.Factory.
func (f SignatureFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.SignatureOf(ctx, data)
}

// SignatureOf implements crypto.SignatureFactory.
func (f SignatureFactory) SignatureOf(serde.Context, []byte) (crypto.Signature, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.signature, nil
}

// Signer is a fake implementation of the crypto.Signer interface.
//
// - implements crypto.Signer
type Signer struct {
	publicKey PublicKey
	err       error
}

// NewSigner returns a new instance of the fake signer.
func NewSigner() Signer {
	return Signer{}
}

// NewSignerWithPublicKey returns a fake signer with the provided public key.
func NewSignerWithPublicKey(k PublicKey) Signer {
	return Signer{publicKey: k}
}

// NewBadSigner returns a fake signer that will return an error when
// appropriate.
func NewBadSigner() Signer {
	return Signer{err: GetError()}
}

// GetPublicKeyFactory implements crypto.Signer.
func (s Signer) GetPublicKeyFactory() crypto.PublicKeyFactory {
	return PublicKeyFactory{pubkey: s.publicKey}
}

// GetSignatureFactory implements crypto.Signer.
func (s Signer) GetSignatureFactory() crypto.SignatureFactory {
	return SignatureFactory{}
}

// GetPublicKey implements crypto.Signer.
func (s Signer) GetPublicKey() crypto.PublicKey {
	return s.publicKey
}

// Sign implements crypto.Signer.
func (s Signer) Sign([]byte) (crypto.Signature, error) {
	return Signature{}, s.err
}

// Hash is a fake implementation of the hash.Hash interface.
//
// - implements hash.Hash
type Hash struct {
	hash.Hash
	delay int
	err   error
	Call  *Call
}

// NewBadHash returns a fake hash that returns an error when appropriate.
func NewBadHash() *Hash {
	return &Hash{err: GetError()}
}

// NewBadHashWithDelay returns a fake hash that will fail after the given
// number of writes.
func NewBadHashWithDelay(delay int) *Hash {
	return &Hash{err: GetError(), delay: delay}
}

// Write implements hash.Hash.
func (h *Hash) Write(data []byte) (int, error) {
	h.Call.Add(data)

	if h.delay > 0 {
		h.delay--
		return 0, nil
	}

	return 0, h.err
}

// Size implements hash.Hash.
func (h *Hash) Size() int {
	return 32
}

// Sum implements hash.Hash.
func (h *Hash) Sum([]byte) []byte {
	return make([]byte, 32)
}

// HashFactory is a fake implementation of a hash factory.
//
// - implements crypto.HashFactory
type HashFactory struct {
	hash *Hash
}

// NewHashFactory returns a fake hash factory.
func NewHashFactory(h *Hash) HashFactory {
	return HashFactory{hash: h}
}

// New implements crypto.HashFactory.
func (f HashFactory) New() hash.Hash {
	return f.hash
}
