package fake

import (
	"encoding/json"
	"io"

	"go.dedis.ch/ballot/serde"
)

const (
	// GoodFormat is the name of a format that works.
	GoodFormat = serde.Format("FakeGood")

	// BadFormat is the name of a format that always returns an error.
	BadFormat = serde.Format("FakeBad")

	// MsgFormat is the name of a format that returns fake messages.
	MsgFormat = serde.Format("FakeMsg")
)

// fakeFormatValue is the value returned by the encoding of the fake formats.
var fakeFormatValue = []byte("fake format")

// GetFakeFormatValue returns the value returned by the fake formats when
// encoding.
func GetFakeFormatValue() []byte {
	return append([]byte{}, fakeFormatValue...)
}

// Message is a fake implementation of a message.
//
// - implements serde.Message
// - implements serde.Fingerprinter
type Message struct {
	Digest []byte
	err    error
}

// NewBadMessage returns a message that fails to serialize.
func NewBadMessage() Message {
	return Message{err: GetError()}
}

// Serialize implements serde.Message.
func (m Message) Serialize(ctx serde.Context) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}

	return GetFakeFormatValue(), nil
}

// Fingerprint implements serde.Fingerprinter.
func (m Message) Fingerprint(w io.Writer) error {
	if m.err != nil {
		return m.err
	}

	_, err := w.Write(m.Digest)
	return err
}

// MessageFactory is a fake implementation of a message factory.
//
// - implements serde.Factory
type MessageFactory struct {
	err error
}

// NewBadMessageFactory returns a message factory that always fails.
func NewBadMessageFactory() MessageFactory {
	return MessageFactory{err: GetError()}
}

// Deserialize implements serde.Factory.
func (f MessageFactory) Deserialize(ctx serde.Context, data []byte) (serde.Message, error) {
	return Message{}, f.err
}

// Format is a fake format engine.
//
// - implements serde.FormatEngine
type Format struct {
	Msg  serde.Message
	Err  error
	Call *Call
}

// NewBadFormat returns a format engine that always returns an error.
func NewBadFormat() Format {
	return Format{Err: GetError()}
}

// Encode implements serde.FormatEngine.
func (f Format) Encode(ctx serde.Context, m serde.Message) ([]byte, error) {
	f.Call.Add(ctx, m)

	if f.Err != nil {
		return nil, f.Err
	}

	return GetFakeFormatValue(), nil
}

// Decode implements serde.FormatEngine.
func (f Format) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	f.Call.Add(ctx, data)

	if f.Err != nil {
		return nil, f.Err
	}

	return f.Msg, nil
}

// ContextEngine is a fake context engine that uses JSON under the hood unless
// it is configured to fail.
//
// - implements serde.ContextEngine
type ContextEngine struct {
	format serde.Format
	err    error
}

// NewContext returns a new serde context using the good format.
func NewContext() serde.Context {
	return serde.NewContext(ContextEngine{format: GoodFormat})
}

// NewContextWithFormat returns a new serde context using the given format.
func NewContextWithFormat(f serde.Format) serde.Context {
	return serde.NewContext(ContextEngine{format: f})
}

// NewBadContext returns a new serde context that fails to marshal and
// unmarshal, and uses the bad format.
func NewBadContext() serde.Context {
	return serde.NewContext(ContextEngine{format: BadFormat, err: GetError()})
}

// NewMsgContext returns a context using the fake message format.
func NewMsgContext() serde.Context {
	return serde.NewContext(ContextEngine{format: MsgFormat})
}

// GetFormat implements serde.ContextEngine.
func (ctx ContextEngine) GetFormat() serde.Format {
	return ctx.format
}

// Marshal implements serde.ContextEngine.
func (ctx ContextEngine) Marshal(m interface{}) ([]byte, error) {
	if ctx.err != nil {
		return nil, ctx.err
	}

	return json.Marshal(m)
}

// Unmarshal implements serde.ContextEngine.
func (ctx ContextEngine) Unmarshal(data []byte, m interface{}) error {
	if ctx.err != nil {
		return ctx.err
	}

	return json.Unmarshal(data, m)
}
