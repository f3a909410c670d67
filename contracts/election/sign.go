package election

import (
	"encoding/binary"
	"io"

	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

// NewArgs returns the transaction arguments that route the command to the
// election contract. They can be given to a transaction manager.
func NewArgs(cmd types.Command) ([]txn.Arg, error) {
	data, err := cmd.Serialize(json.NewContext())
	if err != nil {
		return nil, xerrors.Errorf("failed to serialize command: %v", err)
	}

	args := []txn.Arg{
		{Key: native.ContractArg, Value: []byte(ContractName)},
		{Key: CmdArg, Value: data},
	}

	return args, nil
}

// Sign creates a transaction for the command with the given nonce and signs it
// with the signer. Nothing is validated until the transaction is executed.
func Sign(cmd types.Command, nonce uint64, signer crypto.Signer,
	opts ...signed.TransactionOption) (*signed.Transaction, error) {

	args, err := NewArgs(cmd)
	if err != nil {
		return nil, err
	}

	txOpts := make([]signed.TransactionOption, 0, len(args)+len(opts))
	for _, arg := range args {
		txOpts = append(txOpts, signed.WithArg(arg.Key, arg.Value))
	}

	txOpts = append(txOpts, opts...)

	tx, err := signed.NewTransaction(nonce, signer.GetPublicKey(), txOpts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	err = tx.Sign(signer)
	if err != nil {
		return nil, xerrors.Errorf("failed to sign tx: %v", err)
	}

	return tx, nil
}

// NewVote returns a vote for the option of the election with a random seed, so
// that two votes with the same choice produce different transactions.
func NewVote(electionID int64, optionID int32) (types.Vote, error) {
	return newVote(electionID, optionID, crypto.CryptographicRandomGenerator{})
}

func newVote(electionID int64, optionID int32, rand io.Reader) (types.Vote, error) {
	buffer := make([]byte, 8)

	_, err := io.ReadFull(rand, buffer)
	if err != nil {
		return types.Vote{}, xerrors.Errorf("failed to read seed: %v", err)
	}

	vote := types.Vote{
		ElectionID: electionID,
		OptionID:   optionID,
		Seed:       int64(binary.LittleEndian.Uint64(buffer)),
	}

	return vote, nil
}
