package crypto

import (
	"crypto/sha256"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/xerrors"
)

// HashAlgorithm is the identifier of a digest algorithm.
type HashAlgorithm int

const (
	// Sha256 is the default algorithm of the ledger.
	Sha256 HashAlgorithm = iota
	// Sha3_224 produces shorter digests of the Keccak family.
	Sha3_224
)

// ParseHashAlgorithm returns the algorithm for the given name, which is either
// "sha256" or "sha3-224".
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "", "sha256":
		return Sha256, nil
	case "sha3-224":
		return Sha3_224, nil
	default:
		return Sha256, xerrors.Errorf("unknown hash algorithm '%s'", name)
	}
}

// String implements fmt.Stringer.
func (a HashAlgorithm) String() string {
	switch a {
	case Sha256:
		return "sha256"
	case Sha3_224:
		return "sha3-224"
	default:
		return "unknown"
	}
}

// hashFactory is a hash factory that is using SHA algorithms.
//
// - implements crypto.HashFactory
type hashFactory struct {
	hashType HashAlgorithm
}

// NewSha256Factory returns a new instance of the factory producing SHA256
// digests.
func NewSha256Factory() HashFactory {
	return hashFactory{Sha256}
}

// NewHashFactory returns a new instance of the factory.
func NewHashFactory(a HashAlgorithm) HashFactory {
	return hashFactory{a}
}

// New implements crypto.HashFactory. It returns a new Hash instance.
func (f hashFactory) New() hash.Hash {
	switch f.hashType {
	case Sha256:
		return sha256.New()
	case Sha3_224:
		return sha3.New224()
	default:
		panic("unknown hash type")
	}
}
