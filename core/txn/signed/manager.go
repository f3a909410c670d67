package signed

import (
	"sync"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/crypto"
	"golang.org/x/xerrors"
)

// Client returns the nonce the ledger expects for the next transaction of an
// identity.
type Client interface {
	GetNonce(crypto.PublicKey) (uint64, error)
}

// TransactionManager creates the transactions of a signer with consecutive
// nonces. The nonce is only fetched from the ledger by Sync, which must be
// called again when a transaction has not reached the ledger.
//
// - implements txn.Manager
type TransactionManager struct {
	sync.Mutex

	client  Client
	signer  crypto.Signer
	nonce   uint64
	hashFac crypto.HashFactory
}

// ManagerOption is the type of options to create a manager.
type ManagerOption func(*TransactionManager)

// WithManagerHashFactory sets the hash algorithm of the identifiers, which
// must match the one of the ledger.
func WithManagerHashFactory(f crypto.HashFactory) ManagerOption {
	return func(mgr *TransactionManager) {
		mgr.hashFac = f
	}
}

// NewManager creates a new transaction manager starting at nonce zero.
func NewManager(signer crypto.Signer, client Client, opts ...ManagerOption) *TransactionManager {
	mgr := &TransactionManager{
		client:  client,
		signer:  signer,
		hashFac: crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(mgr)
	}

	return mgr
}

// Make implements txn.Manager. The nonce is only incremented when the
// transaction is successfully signed.
func (mgr *TransactionManager) Make(args ...txn.Arg) (txn.Transaction, error) {
	mgr.Lock()
	defer mgr.Unlock()

	opts := []TransactionOption{WithHashFactory(mgr.hashFac)}
	for _, arg := range args {
		opts = append(opts, WithArg(arg.Key, arg.Value))
	}

	tx, err := NewTransaction(mgr.nonce, mgr.signer.GetPublicKey(), opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(mgr.signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign: %v", err)
	}

	mgr.nonce++

	return tx, nil
}

// Sync implements txn.Manager.
func (mgr *TransactionManager) Sync() error {
	nonce, err := mgr.client.GetNonce(mgr.signer.GetPublicKey())
	if err != nil {
		return xerrors.Errorf("client: %v", err)
	}

	mgr.Lock()
	mgr.nonce = nonce
	mgr.Unlock()

	ballot.Logger.Debug().Uint64("nonce", nonce).Msg("manager synchronized")

	return nil
}
