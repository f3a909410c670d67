// Package txn defines the transactions submitted to the ledger.
//
// A transaction carries the arguments of a contract command. It is signed by
// its author, whose public key is the identity the contracts act upon, and it
// is identified by the digest of its content. The nonce is the sequence number
// of the author: the ledger refuses any transaction whose nonce is not the
// next expected one, so that a transaction cannot be replayed.
package txn

import (
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
)

// Transaction is the input of a contract execution.
type Transaction interface {
	serde.Message
	serde.Fingerprinter

	// GetID returns the digest that identifies the transaction.
	GetID() []byte

	// GetNonce returns the sequence number of the author.
	GetNonce() uint64

	// GetIdentity returns the public key of the author.
	GetIdentity() crypto.PublicKey

	// GetArg returns the value of the argument, or nil if it is not set.
	GetArg(key string) []byte
}

// Factory decodes transactions.
type Factory interface {
	serde.Factory

	TransactionOf(serde.Context, []byte) (Transaction, error)
}

// Arg is a named argument of a transaction.
type Arg struct {
	Key   string
	Value []byte
}

// Manager creates the transactions of a single signer and keeps track of its
// nonce.
type Manager interface {
	// Make returns a signed transaction with the next nonce.
	Make(args ...Arg) (Transaction, error)

	// Sync fetches the nonce expected by the ledger.
	Sync() error
}
