// Package json defines the JSON messages of the Ed25519 public keys and
// signatures. Importing the package registers the formats.
package json

import (
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

func init() {
	ed25519.RegisterPublicKeyFormat(serde.FormatJSON, pubkeyFormat{})
	ed25519.RegisterSignatureFormat(serde.FormatJSON, sigFormat{})
}

// KeyJSON is the JSON message of both the public keys and the signatures. The
// scheme tells which primitive produced the data.
type KeyJSON struct {
	Scheme string
	Data   []byte
}

func encode(ctx serde.Context, data []byte) ([]byte, error) {
	m := KeyJSON{
		Scheme: ed25519.Scheme,
		Data:   data,
	}

	res, err := ctx.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal: %v", err)
	}

	return res, nil
}

func decode(ctx serde.Context, data []byte) ([]byte, error) {
	m := KeyJSON{}

	err := ctx.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("couldn't unmarshal: %v", err)
	}

	if m.Scheme != ed25519.Scheme {
		return nil, xerrors.Errorf("unsupported scheme '%s'", m.Scheme)
	}

	return m.Data, nil
}

// pubkeyFormat is the engine to encode and decode public keys.
//
// - implements serde.FormatEngine
type pubkeyFormat struct{}

func (pubkeyFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	pubkey, ok := msg.(ed25519.PublicKey)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	point, err := pubkey.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("couldn't marshal point: %v", err)
	}

	return encode(ctx, point)
}

func (pubkeyFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	point, err := decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("public key: %v", err)
	}

	pubkey, err := ed25519.NewPublicKey(point)
	if err != nil {
		return nil, xerrors.Errorf("couldn't create public key: %v", err)
	}

	return pubkey, nil
}

// sigFormat is the engine to encode and decode signatures.
//
// - implements serde.FormatEngine
type sigFormat struct{}

func (sigFormat) Encode(ctx serde.Context, msg serde.Message) ([]byte, error) {
	sig, ok := msg.(ed25519.Signature)
	if !ok {
		return nil, xerrors.Errorf("unsupported message of type '%T'", msg)
	}

	data, _ := sig.MarshalBinary()

	return encode(ctx, data)
}

func (sigFormat) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	raw, err := decode(ctx, data)
	if err != nil {
		return nil, xerrors.Errorf("signature: %v", err)
	}

	return ed25519.NewSignature(raw), nil
}
