package main

import (
	"bytes"
	"sync"

	"go.dedis.ch/ballot/contracts/election"
	"go.dedis.ch/ballot/contracts/timestamp"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	sjson "go.dedis.ch/ballot/core/txn/signed/json"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/core/validation/simple"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

// node is the ledger of a database with the election and the time contracts
// registered to its execution. The node is the single orderer of the ledger:
// batches are applied one at a time.
//
// - implements signed.Client
type node struct {
	lock       *sync.Mutex
	db         kv.DB
	validation simple.Service
	txFac      signed.TransactionFactory
	hashFac    crypto.HashFactory
}

func openNode(cfg config, openDB func(string) (kv.DB, error)) (node, error) {
	clock, err := timestamp.NewContract(cfg.Validators)
	if err != nil {
		return node{}, xerrors.Errorf("failed to create time contract: %v", err)
	}

	db, err := openDB(cfg.DB)
	if err != nil {
		return node{}, xerrors.Errorf("failed to open database: %v", err)
	}

	// Transaction identifiers must be computed with the configured algorithm
	// for the signatures to match.
	signed.RegisterTransactionFormat(serde.FormatJSON, sjson.NewTransactionFormat(cfg.Hash))

	exec := native.NewExecution()
	election.RegisterContract(exec, election.NewContract(timestamp.NewOracle()))
	timestamp.RegisterContract(exec, clock)

	txFac := signed.NewTransactionFactory()

	n := node{
		lock:       new(sync.Mutex),
		db:         db,
		validation: simple.NewService(exec, txFac),
		txFac:      txFac,
		hashFac:    cfg.Hash,
	}

	return n, nil
}

// GetNonce implements signed.Client. It returns the next nonce of the identity
// from the database.
func (n node) GetNonce(pk crypto.PublicKey) (uint64, error) {
	var nonce uint64

	err := n.db.View(func(tx kv.ReadableTx) error {
		var err error
		nonce, err = n.validation.GetNonce(tx, pk)

		return err
	})
	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// apply validates the batch on the ledger. Concurrent calls are serialized.
func (n node) apply(txs []txn.Transaction) (validation.Result, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.validation.Validate(n.db, txs)
}

// decode returns the transactions of a batch with one JSON transaction per
// line. Empty lines are ignored.
func (n node) decode(data []byte) ([]txn.Transaction, error) {
	ctx := json.NewContext()

	var txs []txn.Transaction

	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		tx, err := n.txFac.TransactionOf(ctx, line)
		if err != nil {
			return nil, xerrors.Errorf("line %d: %v", i+1, err)
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

// stateHash returns the digest of each collection of the ledger.
func (n node) stateHash() ([][]byte, error) {
	var hashes [][]byte

	err := n.db.View(func(tx kv.ReadableTx) error {
		var err error
		hashes, err = election.NewSchema(tx, election.WithHashFactory(n.hashFac)).StateHash()

		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to compute state hash: %v", err)
	}

	return hashes, nil
}

func (n node) close() error {
	return n.db.Close()
}

// fixedNonce is a client that always returns the same nonce.
//
// - implements signed.Client
type fixedNonce uint64

// GetNonce implements signed.Client.
func (n fixedNonce) GetNonce(crypto.PublicKey) (uint64, error) {
	return uint64(n), nil
}
