// Package native implements an execution service for the contracts compiled
// with the application.
package native

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/store/kv"
	"golang.org/x/xerrors"
)

// ContractArg is the argument of a transaction that names the contract to
// execute.
const ContractArg = "go.dedis.ch/ballot.ContractArg"

var promExecution = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ballot_execution_duration_seconds",
	Help:    "time spent by the contracts to execute a transaction",
	Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
}, []string{"contract"})

func init() {
	ballot.PromCollectors = append(ballot.PromCollectors, promExecution)
}

// Contract is a contract executed natively. It has full access to the view of
// the ledger it is given.
type Contract interface {
	// Execute applies the current transaction of the step. An error rejects
	// the transaction. It is reported with its code when it implements
	// execution.CodedError.
	Execute(kv.WritableTx, execution.Step) error
}

// Service routes the transactions to the registered contracts.
//
// - implements execution.Service
type Service struct {
	contracts map[string]Contract
}

// NewExecution returns an execution service without any contract.
func NewExecution() *Service {
	return &Service{
		contracts: make(map[string]Contract),
	}
}

// Set registers the contract under the name a transaction refers to in
// ContractArg. It panics if the name is already taken, as it is a programming
// error.
func (ns *Service) Set(name string, contract Contract) {
	_, found := ns.contracts[name]
	if found {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	ns.contracts[name] = contract
}

// Execute implements execution.Service. A rejection is part of the result. An
// error is returned for a transaction that names no known contract.
func (ns *Service) Execute(tx kv.WritableTx, step execution.Step) (execution.Result, error) {
	name := string(step.Current.GetArg(ContractArg))

	contract, found := ns.contracts[name]
	if !found {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	start := time.Now()
	err := contract.Execute(tx, step)
	promExecution.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err == nil {
		return execution.Result{Accepted: true}, nil
	}

	res := execution.Result{Message: err.Error()}

	var coded execution.CodedError
	if errors.As(err, &coded) {
		res.Code = coded.Code()
		res.Message = coded.Error()
	}

	ballot.Logger.Debug().
		Str("contract", name).
		Hex("tx", step.Current.GetID()).
		Uint8("code", res.Code).
		Str("reason", res.Message).
		Msg("contract refused the transaction")

	return res, nil
}
