// Package json implements the JSON format of the election entities and
// commands.
//
// Commands are wrapped in a versioned envelope where the name of the field
// identifies the kind, for instance {"Version":1,"Vote":{...}}.
package json

import (
	"time"

	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

// Version is the version of the envelope produced by the engines.
const Version = 1

func init() {
	types.RegisterCommandFormat(serde.FormatJSON, cmdFormat{})
	types.RegisterMessageFormat(serde.FormatJSON, msgFormat{})
}

// CreateParticipantJSON is the JSON message of a participant registration.
type CreateParticipantJSON struct {
	Name        string
	Email       string
	PhoneNumber string
	PassCode    string
}

// CreateAdministrationJSON is the JSON message of an administration
// registration.
type CreateAdministrationJSON struct {
	Name         string
	PrincipalKey []byte `json:",omitempty"`
}

// IssueElectionJSON is the JSON message of an election issuance.
type IssueElectionJSON struct {
	Name       string
	StartDate  time.Time
	FinishDate time.Time
	Options    []string
}

// VoteJSON is the JSON message of a vote.
type VoteJSON struct {
	ElectionID int64
	OptionID   int32
	Seed       int64
}

// CommandJSON is the envelope of a command. Exactly one of the fields is
// expected to be set.
type CommandJSON struct {
	Version              int
	CreateParticipant    *CreateParticipantJSON    `json:",omitempty"`
	CreateAdministration *CreateAdministrationJSON `json:",omitempty"`
	IssueElection        *IssueElectionJSON        `json:",omitempty"`
	Vote                 *VoteJSON                 `json:",omitempty"`
}

// cmdFormat is the engine to encode and decode commands in JSON format.
//
// - implements serde.FormatEngine
type cmdFormat struct{}

// Encode implements serde.FormatEngine. It returns the JSON envelope of the
// command.
func (f cmdFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	m := CommandJSON{Version: Version}

	switch in := msg.(type) {
	case types.CreateParticipant:
		m.CreateParticipant = &CreateParticipantJSON{
			Name:        in.Name,
			Email:       in.Email,
			PhoneNumber: in.PhoneNumber,
			PassCode:    in.PassCode,
		}
	case types.CreateAdministration:
		m.CreateAdministration = &CreateAdministrationJSON{
			Name:         in.Name,
			PrincipalKey: in.PrincipalKey,
		}
	case types.IssueElection:
		m.IssueElection = &IssueElectionJSON{
			Name:       in.Name,
			StartDate:  in.StartDate.UTC(),
			FinishDate: in.FinishDate.UTC(),
			Options:    in.Options,
		}
	case types.Vote:
		m.Vote = &VoteJSON{
			ElectionID: in.ElectionID,
			OptionID:   in.OptionID,
			Seed:       in.Seed,
		}
	default:
		return nil, xerrors.Errorf("unsupported command '%T'", msg)
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine. It populates the command of the
// envelope if appropriate, otherwise it returns an error.
func (f cmdFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := CommandJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	if m.Version != Version {
		return nil, xerrors.Errorf("unsupported version %d", m.Version)
	}

	var cmds []types.Command

	if m.CreateParticipant != nil {
		cmds = append(cmds, types.CreateParticipant{
			Name:        m.CreateParticipant.Name,
			Email:       m.CreateParticipant.Email,
			PhoneNumber: m.CreateParticipant.PhoneNumber,
			PassCode:    m.CreateParticipant.PassCode,
		})
	}

	if m.CreateAdministration != nil {
		cmds = append(cmds, types.CreateAdministration{
			Name:         m.CreateAdministration.Name,
			PrincipalKey: m.CreateAdministration.PrincipalKey,
		})
	}

	if m.IssueElection != nil {
		cmds = append(cmds, types.IssueElection{
			Name:       m.IssueElection.Name,
			StartDate:  m.IssueElection.StartDate,
			FinishDate: m.IssueElection.FinishDate,
			Options:    m.IssueElection.Options,
		})
	}

	if m.Vote != nil {
		cmds = append(cmds, types.Vote{
			ElectionID: m.Vote.ElectionID,
			OptionID:   m.Vote.OptionID,
			Seed:       m.Vote.Seed,
		})
	}

	switch len(cmds) {
	case 0:
		return nil, xerrors.New("command is empty")
	case 1:
		return cmds[0], nil
	default:
		return nil, xerrors.Errorf("envelope has %d commands", len(cmds))
	}
}

// OptionJSON is the JSON message of an election option.
type OptionJSON struct {
	ID    int32
	Title string
}

// ParticipantJSON is the JSON message of a stored participant.
type ParticipantJSON struct {
	Key         []byte
	Name        string
	Email       string
	PhoneNumber string
	PassCode    string
	TxHash      []byte
}

// AdministrationJSON is the JSON message of a stored administration.
type AdministrationJSON struct {
	Key          []byte
	Name         string
	PrincipalKey []byte `json:",omitempty"`
	TxHash       []byte
}

// ElectionJSON is the JSON message of a stored election.
type ElectionJSON struct {
	ID         int64
	Name       string
	Issuer     []byte
	StartDate  time.Time
	FinishDate time.Time
	Options    []OptionJSON
	TxHash     []byte
}

// VoteRecordJSON is the JSON message of a stored vote.
type VoteRecordJSON struct {
	ElectionID int64
	Voter      []byte
	OptionID   int32
	TxHash     []byte
}

// MessageJSON is the envelope of a stored entity.
type MessageJSON struct {
	Version        int
	Participant    *ParticipantJSON    `json:",omitempty"`
	Administration *AdministrationJSON `json:",omitempty"`
	Election       *ElectionJSON       `json:",omitempty"`
	VoteRecord     *VoteRecordJSON     `json:",omitempty"`
}

// msgFormat is the engine to encode and decode the entities in JSON format.
//
// - implements serde.FormatEngine
type msgFormat struct{}

// Encode implements serde.FormatEngine.
func (f msgFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	m := MessageJSON{Version: Version}

	switch in := msg.(type) {
	case types.Participant:
		p := ParticipantJSON(in)
		m.Participant = &p
	case types.Administration:
		a := AdministrationJSON(in)
		m.Administration = &a
	case types.Election:
		options := make([]OptionJSON, len(in.Options))
		for i, opt := range in.Options {
			options[i] = OptionJSON(opt)
		}

		m.Election = &ElectionJSON{
			ID:         in.ID,
			Name:       in.Name,
			Issuer:     in.Issuer,
			StartDate:  in.StartDate.UTC(),
			FinishDate: in.FinishDate.UTC(),
			Options:    options,
			TxHash:     in.TxHash,
		}
	case types.VoteRecord:
		v := VoteRecordJSON(in)
		m.VoteRecord = &v
	default:
		return nil, xerrors.Errorf("unsupported message '%T'", msg)
	}

	data, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal: %v", err)
	}

	return data, nil
}

// Decode implements serde.FormatEngine.
func (f msgFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	m := MessageJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	if m.Version != Version {
		return nil, xerrors.Errorf("unsupported version %d", m.Version)
	}

	switch {
	case m.Participant != nil:
		return types.Participant(*m.Participant), nil
	case m.Administration != nil:
		return types.Administration(*m.Administration), nil
	case m.Election != nil:
		options := make([]types.Option, len(m.Election.Options))
		for i, opt := range m.Election.Options {
			options[i] = types.Option(opt)
		}

		return types.Election{
			ID:         m.Election.ID,
			Name:       m.Election.Name,
			Issuer:     m.Election.Issuer,
			StartDate:  m.Election.StartDate,
			FinishDate: m.Election.FinishDate,
			Options:    options,
			TxHash:     m.Election.TxHash,
		}, nil
	case m.VoteRecord != nil:
		return types.VoteRecord(*m.VoteRecord), nil
	default:
		return nil, xerrors.New("message is empty")
	}
}
