// Package execution defines the service that applies a transaction to the
// state of the ledger.
package execution

import (
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
)

// Step is a context of execution. It contains the transactions already
// accepted in the same batch and the one being executed.
type Step struct {
	Previous []txn.Transaction
	Current  txn.Transaction
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Code identifies the reason of a rejection when the contract provides
	// one, otherwise it is zero.
	Code uint8

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string
}

// CodedError is the interface of a contract error that carries a numeric code
// identifying the reason of a rejection.
type CodedError interface {
	error

	Code() uint8
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the ledger view and return the
	// result of it. The view is exclusively owned by the execution until it
	// returns. An error is returned only when the transaction could not be
	// processed at all.
	Execute(tx kv.WritableTx, step Step) (Result, error)
}
