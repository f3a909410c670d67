// Package validation defines the validator of a batch of transactions ordered
// by an external service. Each transaction is applied to the ledger in its
// own atomic view, so a rejected transaction leaves no trace of its mutations.
package validation

import (
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
)

// TransactionResult is the result of a transaction processing.
type TransactionResult interface {
	serde.Message

	// GetTransaction returns the transaction associated with the result.
	GetTransaction() txn.Transaction

	// GetStatus returns the status of execution of the transaction. If it is
	// rejected, it returns the reason.
	GetStatus() (bool, string)

	// GetCode returns the code of the rejection if the contract provided one,
	// otherwise zero.
	GetCode() uint8
}

// Result is the result of a validation.
type Result interface {
	serde.Message
	serde.Fingerprinter

	// GetTransactionResults returns the results in the order of the batch.
	GetTransactionResults() []TransactionResult
}

// ResultFactory is the interface to deserialize validation results.
type ResultFactory interface {
	serde.Factory

	ResultOf(serde.Context, []byte) (Result, error)
}

// Service is the validation service that will process a batch of transactions
// and apply them to the ledger.
type Service interface {
	GetFactory() ResultFactory

	// GetNonce returns the nonce expected for the next transaction of the
	// identity.
	GetNonce(kv.ReadableTx, crypto.PublicKey) (uint64, error)

	// Validate processes the transactions in order and returns the result of
	// each of them. An error is returned only for failures that are not
	// related to the transactions themselves.
	Validate(kv.DB, []txn.Transaction) (Result, error)
}
