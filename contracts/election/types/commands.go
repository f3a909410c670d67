package types

import (
	"time"

	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"golang.org/x/xerrors"
)

var cmdFormats = registry.NewSimpleRegistry()

// RegisterCommandFormat registers the engine for the provided format.
func RegisterCommandFormat(f serde.Format, e serde.FormatEngine) {
	cmdFormats.Register(f, e)
}

// Command is the payload of an election transaction. The set of commands is
// closed: only the types of this package implement it.
type Command interface {
	serde.Message

	command()
}

// CreateParticipant registers the author of the transaction as a participant.
//
// - implements types.Command
type CreateParticipant struct {
	Name        string
	Email       string
	PhoneNumber string
	PassCode    string
}

func (CreateParticipant) command() {}

// Serialize implements serde.Message.
func (c CreateParticipant) Serialize(ctx serde.Context) ([]byte, error) {
	return encodeCommand(ctx, c)
}

// CreateAdministration registers the author of the transaction as an
// administration. A nil principal key means there is none.
//
// - implements types.Command
type CreateAdministration struct {
	Name         string
	PrincipalKey []byte
}

func (CreateAdministration) command() {}

// Serialize implements serde.Message.
func (c CreateAdministration) Serialize(ctx serde.Context) ([]byte, error) {
	return encodeCommand(ctx, c)
}

// IssueElection creates a new election issued by the author of the
// transaction.
//
// - implements types.Command
type IssueElection struct {
	Name       string
	StartDate  time.Time
	FinishDate time.Time
	Options    []string
}

func (IssueElection) command() {}

// Serialize implements serde.Message.
func (c IssueElection) Serialize(ctx serde.Context) ([]byte, error) {
	return encodeCommand(ctx, c)
}

// Vote casts the vote of the author of the transaction. The seed only makes two
// otherwise identical votes differ and is never interpreted.
//
// - implements types.Command
type Vote struct {
	ElectionID int64
	OptionID   int32
	Seed       int64
}

func (Vote) command() {}

// Serialize implements serde.Message.
func (c Vote) Serialize(ctx serde.Context) ([]byte, error) {
	return encodeCommand(ctx, c)
}

// CommandFactory is the factory to deserialize the commands.
//
// - implements serde.Factory
type CommandFactory struct{}

// NewCommandFactory returns a new command factory.
func NewCommandFactory() CommandFactory {
	return CommandFactory{}
}

// Deserialize implements serde.Factory.
func (f CommandFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return f.CommandOf(ctx, data)
}

// CommandOf returns the command of the data if appropriate, otherwise an
// error.
func (f CommandFactory) CommandOf(ctx serde.Context, data []byte) (Command, error) {
	format := cmdFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	cmd, ok := msg.(Command)
	if !ok {
		return nil, xerrors.Errorf("invalid command of type '%T'", msg)
	}

	return cmd, nil
}

func encodeCommand(ctx serde.Context, cmd Command) ([]byte, error) {
	format := cmdFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, cmd)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode command: %v", err)
	}

	return data, nil
}
