// Package store defines what the storage engines of the ledger have in common.
package store

// Transaction is an atomic unit of work on a store.
type Transaction interface {
	// OnCommit registers a function called once the transaction is durably
	// applied. It is never called for a transaction rolled back.
	OnCommit(func())
}
