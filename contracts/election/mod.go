// Package election implements the native contract of the election ledger.
//
// Participants and administrations register themselves, administrations issue
// elections with a list of options and participants cast one vote per
// election while it is active. The lifecycle of an election is derived from
// the ledger time and never stored.
//
// A rejected transaction returns an Error which carries the code of the
// reason. Any other error means the transaction could not be interpreted at
// all, for instance a malformed command.
package election

import (
	"time"

	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/contracts/election/types"
	// Registers the JSON format of the commands and the entities.
	_ "go.dedis.ch/ballot/contracts/election/types/json"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/ballot.Election"

	// CmdArg is the argument's name in the transaction that contains the
	// serialized command.
	CmdArg = "election:command"
)

// Clock is the source of the trusted time of the ledger. It must read the time
// from the ledger state so that every replica gets the same value.
type Clock interface {
	Now(tx kv.ReadableTx) (time.Time, error)
}

// commands defines the commands of the election contract. This interface helps
// in testing the contract.
type commands interface {
	createParticipant(tx kv.WritableTx, step execution.Step, cmd types.CreateParticipant) error
	createAdministration(tx kv.WritableTx, step execution.Step, cmd types.CreateAdministration) error
	issueElection(tx kv.WritableTx, step execution.Step, cmd types.IssueElection) error
	vote(tx kv.WritableTx, step execution.Step, cmd types.Vote) error
}

// RegisterContract registers the election contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Contract is the election smart contract.
//
// - implements native.Contract
type Contract struct {
	clock   Clock
	context serde.Context
	factory types.CommandFactory
	logger  zerolog.Logger

	// cmd provides the commands executions
	cmd commands
}

// NewContract creates a new election contract that reads the time from the
// clock.
func NewContract(clock Clock) Contract {
	contract := Contract{
		clock:   clock,
		context: json.NewContext(),
		factory: types.NewCommandFactory(),
		logger:  ballot.Logger.With().Str("contract", "election").Logger(),
	}

	contract.cmd = electionCommand{Contract: &contract}

	return contract
}

// Execute implements native.Contract. It decodes the command of the
// transaction and runs it.
func (c Contract) Execute(tx kv.WritableTx, step execution.Step) error {
	data := step.Current.GetArg(CmdArg)
	if len(data) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	cmd, err := c.factory.CommandOf(c.context, data)
	if err != nil {
		return xerrors.Errorf("failed to decode command: %v", err)
	}

	switch in := cmd.(type) {
	case types.CreateParticipant:
		err = c.cmd.createParticipant(tx, step, in)
		if err != nil {
			return xerrors.Errorf("failed to create participant: %w", err)
		}
	case types.CreateAdministration:
		err = c.cmd.createAdministration(tx, step, in)
		if err != nil {
			return xerrors.Errorf("failed to create administration: %w", err)
		}
	case types.IssueElection:
		err = c.cmd.issueElection(tx, step, in)
		if err != nil {
			return xerrors.Errorf("failed to issue election: %w", err)
		}
	case types.Vote:
		err = c.cmd.vote(tx, step, in)
		if err != nil {
			return xerrors.Errorf("failed to vote: %w", err)
		}
	default:
		return xerrors.Errorf("unknown command '%T'", cmd)
	}

	return nil
}

// electionCommand implements the commands of the election contract.
//
// - implements commands
type electionCommand struct {
	*Contract
}

func (c electionCommand) createParticipant(tx kv.WritableTx, step execution.Step,
	cmd types.CreateParticipant) error {

	author, err := authorOf(step)
	if err != nil {
		return err
	}

	schema := NewSchema(tx, WithContext(c.context))

	_, found, err := schema.Participant(author)
	if err != nil {
		return xerrors.Errorf("failed to read participant: %v", err)
	}

	if found {
		return ErrParticipantAlreadyExists
	}

	err = schema.CreateParticipant(author, cmd.Name, cmd.Email, cmd.PhoneNumber,
		cmd.PassCode, step.Current.GetID())
	if err != nil {
		return xerrors.Errorf("failed to store participant: %v", err)
	}

	c.logger.Debug().Hex("key", author).Str("name", cmd.Name).Msg("participant created")

	return nil
}

func (c electionCommand) createAdministration(tx kv.WritableTx, step execution.Step,
	cmd types.CreateAdministration) error {

	author, err := authorOf(step)
	if err != nil {
		return err
	}

	schema := NewSchema(tx, WithContext(c.context))

	_, found, err := schema.Administration(author)
	if err != nil {
		return xerrors.Errorf("failed to read administration: %v", err)
	}

	if found {
		return ErrAdministrationAlreadyExists
	}

	err = schema.CreateAdministration(author, cmd.Name, cmd.PrincipalKey, step.Current.GetID())
	if err != nil {
		return xerrors.Errorf("failed to store administration: %v", err)
	}

	c.logger.Debug().Hex("key", author).Str("name", cmd.Name).Msg("administration created")

	return nil
}

func (c electionCommand) issueElection(tx kv.WritableTx, step execution.Step,
	cmd types.IssueElection) error {

	author, err := authorOf(step)
	if err != nil {
		return err
	}

	schema := NewSchema(tx, WithContext(c.context))

	_, found, err := schema.Administration(author)
	if err != nil {
		return xerrors.Errorf("failed to read administration: %v", err)
	}

	if !found {
		return ErrAdministrationNotFound
	}

	if !cmd.FinishDate.After(cmd.StartDate) {
		return ErrElectionFinishedEarlierStart
	}

	id, err := schema.IssueElection(cmd.Name, author, cmd.StartDate, cmd.FinishDate,
		cmd.Options, step.Current.GetID())
	if err != nil {
		return xerrors.Errorf("failed to store election: %v", err)
	}

	c.logger.Debug().Int64("id", id).Str("name", cmd.Name).Msg("election issued")

	return nil
}

// vote checks, in order, the participant, the election, the lifecycle at the
// ledger time, the option and the previous votes.
func (c electionCommand) vote(tx kv.WritableTx, step execution.Step, cmd types.Vote) error {
	voter, err := authorOf(step)
	if err != nil {
		return err
	}

	schema := NewSchema(tx, WithContext(c.context))

	_, found, err := schema.Participant(voter)
	if err != nil {
		return xerrors.Errorf("failed to read participant: %v", err)
	}

	if !found {
		return ErrParticipantNotFound
	}

	election, found, err := schema.Election(cmd.ElectionID)
	if err != nil {
		return xerrors.Errorf("failed to read election: %v", err)
	}

	if !found {
		return ErrElectionNotFound
	}

	now, err := c.clock.Now(tx)
	if err != nil {
		return xerrors.Errorf("failed to read ledger time: %v", err)
	}

	switch election.StatusAt(now) {
	case types.StatusNotStarted:
		return ErrElectionNotStartedYet
	case types.StatusFinished:
		return ErrElectionInactive
	}

	if !election.HasOption(cmd.OptionID) {
		return ErrOptionNotFound
	}

	_, found, err = schema.VoteOf(cmd.ElectionID, voter)
	if err != nil {
		return xerrors.Errorf("failed to read vote: %v", err)
	}

	if found {
		return ErrVotedYet
	}

	err = schema.Vote(cmd.ElectionID, voter, cmd.OptionID, step.Current.GetID())
	if err != nil {
		return xerrors.Errorf("failed to store vote: %v", err)
	}

	c.logger.Debug().Int64("election", cmd.ElectionID).Hex("voter", voter).Msg("vote counted")

	return nil
}

func authorOf(step execution.Step) ([]byte, error) {
	author, err := step.Current.GetIdentity().MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal identity: %v", err)
	}

	return author, nil
}
