// Package signed implements the transactions of the ledger.
//
// A transaction is signed by its author over its identifier, which is the
// digest of the fingerprint. The fingerprint covers the nonce, the arguments in
// key order and the public key of the author. Every variable-length field is
// prefixed with its length so that two different transactions cannot share a
// fingerprint.
package signed

import (
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
)

var txFormats = registry.NewSimpleRegistry()

// RegisterTransactionFormat registers the engine for the provided format. A
// later registration for the same format replaces the engine.
func RegisterTransactionFormat(f serde.Format, e serde.FormatEngine) {
	txFormats.Register(f, e)
}
