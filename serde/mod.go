// Package serde defines the primitives to serialize and deserialize (serde)
// the messages stored in the ledger or sent to it.
//
// A message looks up the engine of the format carried by the context, so that
// a data model is independent from its encoding. Only JSON is implemented but
// the registries allow a different format to be plugged per message.
package serde

import "io"

// Format is the identifier of a serialization format.
type Format string

// FormatJSON is the identifier of the JSON format.
const FormatJSON Format = "JSON"

// Message is the interface a data model should implement to be serialized.
type Message interface {
	// Serialize returns the data of the message in the format of the context.
	Serialize(ctx Context) ([]byte, error)
}

// Fingerprinter is the interface of a message that can write a deterministic
// binary representation of itself, usually to compute a digest.
type Fingerprinter interface {
	Fingerprint(writer io.Writer) error
}

// Factory is the interface to implement to instantiate a message from its
// serialized data.
type Factory interface {
	Deserialize(ctx Context, data []byte) (Message, error)
}

// FormatEngine is the interface of an engine that encodes and decodes the
// messages of a package for a given format.
type FormatEngine interface {
	Encode(ctx Context, message Message) ([]byte, error)

	Decode(ctx Context, data []byte) (Message, error)
}
