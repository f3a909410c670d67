// Package timestamp implements the native contract that maintains the trusted
// time of the ledger.
//
// A set of validators periodically publishes its local clock. The ledger time
// is the (f+1)-th highest time reported, where f = (n-1)/3 is the number of
// faulty validators tolerated among n, so that at least one honest validator
// has reached it. The ledger time never moves backwards.
package timestamp

import (
	"bytes"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/crypto"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/ballot.Timestamp"

	// TimeArg is the argument's name in the transaction that contains the time
	// reported by a validator.
	TimeArg = "timestamp:time"
)

var (
	validatorsBucket = []byte("timestamp:validators")
	timeBucket       = []byte("timestamp:time")
	timeKey          = []byte("now")
)

// ErrTimeNotSet is returned by the oracle when no time has been consolidated
// yet.
var ErrTimeNotSet = xerrors.New("ledger time is not set")

// RegisterContract registers the timestamp contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// NewArgs returns the transaction arguments to report the given time.
func NewArgs(now time.Time) ([]txn.Arg, error) {
	data, err := now.UTC().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal time: %v", err)
	}

	args := []txn.Arg{
		{Key: native.ContractArg, Value: []byte(ContractName)},
		{Key: TimeArg, Value: data},
	}

	return args, nil
}

// Contract is the smart contract that consolidates the times reported by the
// validators.
//
// - implements native.Contract
type Contract struct {
	validators [][]byte
	logger     zerolog.Logger
}

// NewContract returns a new timestamp contract that accepts the times of the
// given validators only.
func NewContract(validators []crypto.PublicKey) (Contract, error) {
	keys := make([][]byte, len(validators))

	for i, pk := range validators {
		key, err := pk.MarshalBinary()
		if err != nil {
			return Contract{}, xerrors.Errorf("failed to marshal validator: %v", err)
		}

		keys[i] = key
	}

	c := Contract{
		validators: keys,
		logger:     ballot.Logger.With().Str("contract", "timestamp").Logger(),
	}

	return c, nil
}

// Execute implements native.Contract. It stores the time of the validator and
// moves the ledger time forward if the new consolidated time is later.
func (c Contract) Execute(tx kv.WritableTx, step execution.Step) error {
	author, err := step.Current.GetIdentity().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal identity: %v", err)
	}

	if !c.isValidator(author) {
		return xerrors.Errorf("identity %#x is not a validator", author)
	}

	data := step.Current.GetArg(TimeArg)
	if len(data) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", TimeArg)
	}

	reported, err := decodeTime(data)
	if err != nil {
		return err
	}

	bucket, err := tx.GetBucketOrCreate(validatorsBucket)
	if err != nil {
		return xerrors.Errorf("failed to get bucket: %v", err)
	}

	prev := bucket.Get(author)
	if prev != nil {
		prevTime, err := decodeTime(prev)
		if err != nil {
			return err
		}

		if !reported.After(prevTime) {
			return xerrors.Errorf("time %v is not after the previous one %v", reported, prevTime)
		}
	}

	err = bucket.Set(author, data)
	if err != nil {
		return xerrors.Errorf("failed to store validator time: %v", err)
	}

	return c.consolidate(tx, bucket)
}

func (c Contract) consolidate(tx kv.WritableTx, bucket kv.Bucket) error {
	times := make([]time.Time, 0, len(c.validators))

	for _, key := range c.validators {
		data := bucket.Get(key)
		if data == nil {
			continue
		}

		t, err := decodeTime(data)
		if err != nil {
			return err
		}

		times = append(times, t)
	}

	f := (len(c.validators) - 1) / 3
	if len(times) < f+1 {
		return nil
	}

	sort.Slice(times, func(i, j int) bool {
		return times[i].After(times[j])
	})

	candidate := times[f]

	current, err := NewOracle().Now(tx)
	if err != nil && err != ErrTimeNotSet {
		return xerrors.Errorf("failed to read ledger time: %v", err)
	}

	if err == nil && !candidate.After(current) {
		return nil
	}

	data, err := candidate.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal time: %v", err)
	}

	timeB, err := tx.GetBucketOrCreate(timeBucket)
	if err != nil {
		return xerrors.Errorf("failed to get bucket: %v", err)
	}

	err = timeB.Set(timeKey, data)
	if err != nil {
		return xerrors.Errorf("failed to store ledger time: %v", err)
	}

	c.logger.Debug().Time("time", candidate).Msg("ledger time updated")

	return nil
}

func (c Contract) isValidator(key []byte) bool {
	for _, v := range c.validators {
		if bytes.Equal(v, key) {
			return true
		}
	}

	return false
}

// Oracle reads the trusted time recorded in the ledger.
type Oracle struct{}

// NewOracle returns a new oracle.
func NewOracle() Oracle {
	return Oracle{}
}

// Now returns the current ledger time, or ErrTimeNotSet if the validators have
// not published enough times yet.
func (o Oracle) Now(tx kv.ReadableTx) (time.Time, error) {
	bucket := tx.GetBucket(timeBucket)
	if bucket == nil {
		return time.Time{}, ErrTimeNotSet
	}

	data := bucket.Get(timeKey)
	if data == nil {
		return time.Time{}, ErrTimeNotSet
	}

	return decodeTime(data)
}

func decodeTime(data []byte) (time.Time, error) {
	var t time.Time

	err := t.UnmarshalBinary(data)
	if err != nil {
		return t, xerrors.Errorf("failed to decode time: %v", err)
	}

	return t.UTC(), nil
}
