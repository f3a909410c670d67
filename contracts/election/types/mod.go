// Package types defines the entities stored by the election contract and the
// commands a transaction can carry.
//
// Every type implements serde.Message and looks up the engine of the context
// format in the package registries. The JSON engine lives in the json
// subpackage and must be imported for the messages to be serializable.
package types

import (
	"time"

	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/registry"
	"golang.org/x/xerrors"
)

var msgFormats = registry.NewSimpleRegistry()

// RegisterMessageFormat registers the engine for the provided format.
func RegisterMessageFormat(f serde.Format, e serde.FormatEngine) {
	msgFormats.Register(f, e)
}

// Status is the lifecycle state of an election. It is never stored but always
// derived from the ledger time.
type Status uint8

const (
	// StatusNotStarted is the state of an election before its start date.
	StatusNotStarted Status = iota
	// StatusActive is the state of an election that accepts votes.
	StatusActive
	// StatusFinished is the state of an election after its finish date.
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not started"
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Participant is a registered voter.
//
// - implements serde.Message
type Participant struct {
	Key         []byte
	Name        string
	Email       string
	PhoneNumber string
	PassCode    string
	TxHash      []byte
}

// Serialize implements serde.Message.
func (p Participant) Serialize(ctx serde.Context) ([]byte, error) {
	return encode(ctx, p, "participant")
}

// Administration is a registered authority allowed to issue elections. The
// principal key is a weak reference that is never resolved.
//
// - implements serde.Message
type Administration struct {
	Key          []byte
	Name         string
	PrincipalKey []byte
	TxHash       []byte
}

// Serialize implements serde.Message.
func (a Administration) Serialize(ctx serde.Context) ([]byte, error) {
	return encode(ctx, a, "administration")
}

// Option is a choice of an election. Its identifier is the position in the
// list of options.
type Option struct {
	ID    int32
	Title string
}

// Election is an election issued by an administration.
//
// - implements serde.Message
type Election struct {
	ID         int64
	Name       string
	Issuer     []byte
	StartDate  time.Time
	FinishDate time.Time
	Options    []Option
	TxHash     []byte
}

// NewOptions returns the options of an election for the titles, in the same
// order. Titles are not checked for emptiness nor duplicates.
func NewOptions(titles []string) []Option {
	options := make([]Option, len(titles))
	for i, title := range titles {
		options[i] = Option{ID: int32(i), Title: title}
	}

	return options
}

// StatusAt returns the lifecycle state of the election at the given time. The
// start date is inclusive and the finish date is exclusive.
func (e Election) StatusAt(now time.Time) Status {
	if now.Before(e.StartDate) {
		return StatusNotStarted
	}

	if now.Before(e.FinishDate) {
		return StatusActive
	}

	return StatusFinished
}

// IsActive returns true if the election accepts votes at the given time.
func (e Election) IsActive(now time.Time) bool {
	return e.StatusAt(now) == StatusActive
}

// NotStartedYet returns true if the given time is before the start date.
func (e Election) NotStartedYet(now time.Time) bool {
	return e.StatusAt(now) == StatusNotStarted
}

// HasOption returns true if the identifier matches one of the options.
func (e Election) HasOption(id int32) bool {
	for _, opt := range e.Options {
		if opt.ID == id {
			return true
		}
	}

	return false
}

// Serialize implements serde.Message.
func (e Election) Serialize(ctx serde.Context) ([]byte, error) {
	return encode(ctx, e, "election")
}

// VoteRecord is a vote that has been counted for a participant.
//
// - implements serde.Message
type VoteRecord struct {
	ElectionID int64
	Voter      []byte
	OptionID   int32
	TxHash     []byte
}

// Serialize implements serde.Message.
func (v VoteRecord) Serialize(ctx serde.Context) ([]byte, error) {
	return encode(ctx, v, "vote record")
}

// MessageFactory is the factory to deserialize the entities.
//
// - implements serde.Factory
type MessageFactory struct{}

// NewMessageFactory returns a new message factory.
func NewMessageFactory() MessageFactory {
	return MessageFactory{}
}

// Deserialize implements serde.Factory. It looks up the format and populates
// the entity from the data.
func (f MessageFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	format := msgFormats.Get(ctx.GetFormat())

	msg, err := format.Decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	return msg, nil
}

func encode(ctx serde.Context, msg serde.Message, name string) ([]byte, error) {
	format := msgFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, msg)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode %s: %v", name, err)
	}

	return data, nil
}
