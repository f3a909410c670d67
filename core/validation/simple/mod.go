// Package simple implements a simple validation service.
//
// The transactions of a batch are applied one after the other, each in its own
// database transaction. The nonce of the author must match the next expected
// value, which protects the ledger against replayed transactions. A nonce is
// consumed as soon as the transaction is processed, accepted or not.
package simple

import (
	"encoding/binary"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/crypto"
	"golang.org/x/xerrors"
)

var nonceBucket = []byte("validation:nonces")

var (
	promTxs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ballot_validation_transactions_total",
		Help: "number of transactions processed by the validation service",
	}, []string{"status", "code"})

	promBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ballot_validation_batches_total",
		Help: "number of batches validated",
	})
)

func init() {
	ballot.PromCollectors = append(ballot.PromCollectors, promTxs, promBatches)
}

// errRejected is returned by the database transaction of a rejected
// transaction so that its changes are rolled back.
var errRejected = xerrors.New("transaction rejected")

// Service is a standard validation service that will process the batch and
// update the ledger accordingly.
//
// - implements validation.Service
type Service struct {
	execution execution.Service
	fac       validation.ResultFactory
	hashFac   crypto.HashFactory
}

// NewService creates a new validation service.
func NewService(exec execution.Service, f txn.Factory) Service {
	return Service{
		execution: exec,
		fac:       NewResultFactory(f),
		hashFac:   crypto.NewSha256Factory(),
	}
}

// GetFactory implements validation.Service. It returns the result factory.
func (s Service) GetFactory() validation.ResultFactory {
	return s.fac
}

// GetNonce implements validation.Service. It returns the next nonce expected
// for the identity.
func (s Service) GetNonce(tx kv.ReadableTx, ident crypto.PublicKey) (uint64, error) {
	key, err := s.keyFromIdentity(ident)
	if err != nil {
		return 0, xerrors.Errorf("key: %v", err)
	}

	bucket := tx.GetBucket(nonceBucket)
	if bucket == nil {
		return 0, nil
	}

	value := bucket.Get(key)
	if len(value) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(value) + 1, nil
}

// Validate implements validation.Service. It processes the list of transactions
// while updating the database then returns a bundle of the transaction results.
//
// A batch is not atomic: each transaction is committed on its own. When a
// critical error aborts the batch, the transactions before the failing one
// stay applied and no result is returned. Calls must not run concurrently on
// the same database.
func (s Service) Validate(db kv.DB, txs []txn.Transaction) (validation.Result, error) {
	results := make([]TransactionResult, len(txs))

	step := execution.Step{}

	for i, tx := range txs {
		res, err := s.validateTx(db, step, tx)
		if err != nil {
			return nil, xerrors.Errorf("tx %#x: %v", tx.GetID(), err)
		}

		results[i] = res

		accepted, reason := res.GetStatus()
		if accepted {
			step.Previous = append(step.Previous, tx)
		} else {
			promTxs.WithLabelValues("rejected", fmt.Sprint(res.GetCode())).Inc()

			ballot.Logger.Debug().
				Hex("tx", tx.GetID()).
				Uint8("code", res.GetCode()).
				Str("reason", reason).
				Msg("transaction rejected")
		}
	}

	promBatches.Inc()

	return NewResult(results), nil
}

func (s Service) validateTx(db kv.DB, step execution.Step, tx txn.Transaction) (TransactionResult, error) {
	var res TransactionResult
	consume := false

	err := db.Update(func(wtx kv.WritableTx) error {
		expected, err := s.GetNonce(wtx, tx.GetIdentity())
		if err != nil {
			return xerrors.Errorf("nonce: %v", err)
		}

		if tx.GetNonce() != expected {
			res = NewRejectedResult(tx, 0,
				fmt.Sprintf("nonce is invalid, expected %d, got %d", expected, tx.GetNonce()))

			return errRejected
		}

		err = s.set(wtx, tx.GetIdentity(), tx.GetNonce())
		if err != nil {
			return xerrors.Errorf("failed to set nonce: %v", err)
		}

		step.Current = tx

		exec, err := s.execution.Execute(wtx, step)
		if err != nil {
			// This is a critical error unrelated to the transaction itself.
			return xerrors.Errorf("failed to execute tx: %v", err)
		}

		if !exec.Accepted {
			res = NewRejectedResult(tx, exec.Code, exec.Message)
			consume = true

			return errRejected
		}

		res = NewAcceptedResult(tx)

		wtx.OnCommit(func() {
			promTxs.WithLabelValues("accepted", "0").Inc()

			ballot.Logger.Debug().Hex("tx", tx.GetID()).Msg("transaction accepted")
		})

		return nil
	})

	if err != nil && !xerrors.Is(err, errRejected) {
		return res, err
	}

	if consume {
		// The mutations of the contract are rolled back but the nonce is still
		// consumed so that the transaction cannot be replayed.
		err = db.Update(func(wtx kv.WritableTx) error {
			return s.consume(wtx, tx.GetIdentity(), tx.GetNonce())
		})
		if err != nil {
			return res, xerrors.Errorf("failed to set nonce: %v", err)
		}
	}

	return res, nil
}

// consume marks the nonce as used unless the identity has already moved past
// it, so that a nonce never goes backwards.
func (s Service) consume(tx kv.WritableTx, ident crypto.PublicKey, nonce uint64) error {
	expected, err := s.GetNonce(tx, ident)
	if err != nil {
		return xerrors.Errorf("nonce: %v", err)
	}

	if expected > nonce {
		return nil
	}

	return s.set(tx, ident, nonce)
}

func (s Service) set(tx kv.WritableTx, ident crypto.PublicKey, nonce uint64) error {
	key, err := s.keyFromIdentity(ident)
	if err != nil {
		return xerrors.Errorf("key: %v", err)
	}

	bucket, err := tx.GetBucketOrCreate(nonceBucket)
	if err != nil {
		return xerrors.Errorf("bucket: %v", err)
	}

	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, nonce)

	err = bucket.Set(key, buffer)
	if err != nil {
		return xerrors.Errorf("store: %v", err)
	}

	return nil
}

func (s Service) keyFromIdentity(ident crypto.PublicKey) ([]byte, error) {
	if ident == nil {
		return nil, xerrors.New("missing identity in transaction")
	}

	data, err := ident.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	h := s.hashFac.New()
	_, err = h.Write(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to write identity: %v", err)
	}

	return h.Sum(nil), nil
}
