// Package kv defines the key/value database the ledger state lives in, and an
// implementation on top of bbolt (https://github.com/etcd-io/bbolt).
//
// The records of a collection are kept in a bucket. Iterations follow the
// byte-wise order of the keys which makes the state hash deterministic.
package kv

import "go.dedis.ch/ballot/core/store"

// Bucket is a collection of key/value pairs.
type Bucket interface {
	// Get returns the value of the key, or nil if it is not set. The value is
	// only valid for the life of the transaction.
	Get(key []byte) []byte

	Set(key, value []byte) error

	Delete(key []byte) error

	// NextSequence returns the next value of the counter of the bucket,
	// starting at 1. The counter is restored when the transaction is rolled
	// back.
	NextSequence() (uint64, error)

	// ForEach calls the function for every pair in ascending key order, and
	// stops at the first error.
	ForEach(func(k, v []byte) error) error

	// Scan is like ForEach but restricted to the keys starting with the
	// prefix.
	Scan(prefix []byte, fn func(k, v []byte) error) error
}

// ReadableTx is a read-only view of the database.
type ReadableTx interface {
	// GetBucket returns the bucket, or nil if it does not exist.
	GetBucket(name []byte) Bucket
}

// WritableTx is a read-write transaction of the database.
type WritableTx interface {
	store.Transaction

	ReadableTx

	GetBucketOrCreate(name []byte) (Bucket, error)
}

// DB is a key/value database.
type DB interface {
	// View runs the function in a read-only transaction.
	View(fn func(ReadableTx) error) error

	// Update runs the function in a read-write transaction. Any change is
	// rolled back when the function returns an error.
	Update(fn func(WritableTx) error) error

	Close() error
}
