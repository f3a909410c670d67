package simple

import (
	"io"

	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"golang.org/x/xerrors"
)

var (
	txResFormats = registry.NewSimpleRegistry()
	resFormats   = registry.NewSimpleRegistry()
)

// RegisterTransactionResultFormat registers the engine for the provided format.
func RegisterTransactionResultFormat(f serde.Format, e serde.FormatEngine) {
	txResFormats.Register(f, e)
}

// RegisterResultFormat registers the engine for the provided format.
func RegisterResultFormat(f serde.Format, e serde.FormatEngine) {
	resFormats.Register(f, e)
}

// Result is the outcome of a batch, in the order of the transactions.
//
// - implements validation.Result
type Result struct {
	txs []TransactionResult
}

// NewResult creates a new result from a list of transaction results.
func NewResult(results []TransactionResult) Result {
	return Result{txs: results}
}

// GetTransactionResults implements validation.Result.
func (r Result) GetTransactionResults() []validation.TransactionResult {
	res := make([]validation.TransactionResult, len(r.txs))
	for i, txRes := range r.txs {
		res[i] = txRes
	}

	return res
}

// Fingerprint implements serde.Fingerprinter. For each transaction, it writes
// the identifier followed by the status and the rejection code.
func (r Result) Fingerprint(w io.Writer) error {
	for _, txRes := range r.txs {
		status := byte(0)
		if txRes.accepted {
			status = 1
		}

		id := txRes.tx.GetID()

		buffer := make([]byte, 0, len(id)+2)
		buffer = append(buffer, id...)
		buffer = append(buffer, status, txRes.code)

		_, err := w.Write(buffer)
		if err != nil {
			return xerrors.Errorf("couldn't write result: %v", err)
		}
	}

	return nil
}

// Serialize implements serde.Message.
func (r Result) Serialize(ctx serde.Context) ([]byte, error) {
	format := resFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, r)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// TransactionResult is the status of a single transaction of a batch. A
// rejected transaction carries the code and the message of the contract, or a
// zero code when it was refused before the execution.
//
// - implements validation.TransactionResult
type TransactionResult struct {
	tx       txn.Transaction
	accepted bool
	code     uint8
	reason   string
}

// NewAcceptedResult returns the result of a transaction applied to the ledger.
func NewAcceptedResult(tx txn.Transaction) TransactionResult {
	return TransactionResult{tx: tx, accepted: true}
}

// NewRejectedResult returns the result of a transaction that left the ledger
// untouched, except for the nonce of its author.
func NewRejectedResult(tx txn.Transaction, code uint8, reason string) TransactionResult {
	return TransactionResult{
		tx:     tx,
		code:   code,
		reason: reason,
	}
}

// GetTransaction implements validation.TransactionResult.
func (res TransactionResult) GetTransaction() txn.Transaction {
	return res.tx
}

// GetStatus implements validation.TransactionResult.
func (res TransactionResult) GetStatus() (bool, string) {
	return res.accepted, res.reason
}

// GetCode implements validation.TransactionResult.
func (res TransactionResult) GetCode() uint8 {
	return res.code
}

// Serialize implements serde.Message.
func (res TransactionResult) Serialize(ctx serde.Context) ([]byte, error) {
	format := txResFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, res)
	if err != nil {
		return nil, xerrors.Errorf("encoding failed: %v", err)
	}

	return data, nil
}

// TransactionKey is the key of the transaction factory in the serde context.
type TransactionKey struct{}

// ResultKey is the key of the transaction result factory in the serde context.
type ResultKey struct{}

// TransactionResultFactory decodes transaction results.
//
// - implements serde.Factory
type TransactionResultFactory struct {
	fac txn.Factory
}

// NewTransactionResultFactory creates a factory that decodes the transactions
// with the given factory.
func NewTransactionResultFactory(f txn.Factory) TransactionResultFactory {
	return TransactionResultFactory{fac: f}
}

// Deserialize implements serde.Factory.
func (f TransactionResultFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := txResFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(serde.WithFactory(ctx, TransactionKey{}, f.fac), data)
	if err != nil {
		return nil, xerrors.Errorf("decoding failed: %v", err)
	}

	return msg, nil
}

// ResultFactory decodes the results of a batch.
//
// - implements validation.ResultFactory
type ResultFactory struct {
	fac serde.Factory
}

// NewResultFactory creates a new result factory.
func NewResultFactory(f txn.Factory) ResultFactory {
	return ResultFactory{fac: NewTransactionResultFactory(f)}
}

// Deserialize implements serde.Factory.
func (f ResultFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.ResultOf(ctx, data)
}

// ResultOf implements validation.ResultFactory.
func (f ResultFactory) ResultOf(ctx serde.Context, data []byte) (validation.Result, error) {
	format := resFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(serde.WithFactory(ctx, ResultKey{}, f.fac), data)
	if err != nil {
		return nil, xerrors.Errorf("decoding failed: %v", err)
	}

	res, ok := msg.(Result)
	if !ok {
		return nil, xerrors.Errorf("invalid result type '%T'", msg)
	}

	return res, nil
}
