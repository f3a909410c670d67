package signed

import (
	"encoding/binary"
	"io"
	"sort"

	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

// Transaction is a transaction signed by its author.
//
// - implements txn.Transaction
type Transaction struct {
	nonce  uint64
	args   map[string][]byte
	pubkey crypto.PublicKey
	sig    crypto.Signature
	hash   []byte
}

type txConfig struct {
	args    map[string][]byte
	sig     crypto.Signature
	hashFac crypto.HashFactory
}

// TransactionOption is the type of options to create a transaction.
type TransactionOption func(*txConfig)

// WithArg sets the argument of the given key.
func WithArg(key string, value []byte) TransactionOption {
	return func(cfg *txConfig) {
		cfg.args[key] = value
	}
}

// WithSignature sets the signature of a decoded transaction. It must verify
// against the identifier for the transaction to be created.
func WithSignature(sig crypto.Signature) TransactionOption {
	return func(cfg *txConfig) {
		cfg.sig = sig
	}
}

// WithHashFactory sets the hash algorithm of the identifier. SHA-256 is used by
// default.
func WithHashFactory(f crypto.HashFactory) TransactionOption {
	return func(cfg *txConfig) {
		cfg.hashFac = f
	}
}

// NewTransaction creates a transaction of the author with the given nonce.
func NewTransaction(nonce uint64, pk crypto.PublicKey, opts ...TransactionOption) (*Transaction, error) {
	cfg := txConfig{
		args:    make(map[string][]byte),
		hashFac: crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	tx := &Transaction{
		nonce:  nonce,
		args:   cfg.args,
		pubkey: pk,
	}

	h := cfg.hashFac.New()

	err := tx.Fingerprint(h)
	if err != nil {
		return nil, xerrors.Errorf("couldn't fingerprint tx: %v", err)
	}

	tx.hash = h.Sum(nil)

	if cfg.sig != nil {
		err = pk.Verify(tx.hash, cfg.sig)
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}

		tx.sig = cfg.sig
	}

	return tx, nil
}

// GetID implements txn.Transaction.
func (t *Transaction) GetID() []byte {
	return t.hash
}

// GetNonce implements txn.Transaction.
func (t *Transaction) GetNonce() uint64 {
	return t.nonce
}

// GetIdentity implements txn.Transaction.
func (t *Transaction) GetIdentity() crypto.PublicKey {
	return t.pubkey
}

// GetSignature returns the signature, or nil if the transaction is not signed
// yet.
func (t *Transaction) GetSignature() crypto.Signature {
	return t.sig
}

// GetArgs returns the keys of the arguments in ascending order.
func (t *Transaction) GetArgs() []string {
	keys := make([]string, 0, len(t.args))
	for key := range t.args {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// GetArg implements txn.Transaction.
func (t *Transaction) GetArg(key string) []byte {
	return t.args[key]
}

// Sign signs the identifier with the signer, which must be the author.
func (t *Transaction) Sign(signer crypto.Signer) error {
	if len(t.hash) == 0 {
		return xerrors.New("missing digest in transaction")
	}

	if !signer.GetPublicKey().Equal(t.pubkey) {
		return xerrors.New("mismatch signer and identity")
	}

	sig, err := signer.Sign(t.hash)
	if err != nil {
		return xerrors.Errorf("signer: %v", err)
	}

	t.sig = sig

	return nil
}

// Fingerprint implements serde.Fingerprinter.
func (t *Transaction) Fingerprint(w io.Writer) error {
	keys := t.GetArgs()

	header := make([]byte, 0, 12)
	header = binary.LittleEndian.AppendUint64(header, t.nonce)
	header = binary.LittleEndian.AppendUint32(header, uint32(len(keys)))

	_, err := w.Write(header)
	if err != nil {
		return xerrors.Errorf("couldn't write nonce: %v", err)
	}

	for _, key := range keys {
		_, err = w.Write(lengthPrefixed([]byte(key), t.args[key]))
		if err != nil {
			return xerrors.Errorf("couldn't write arg: %v", err)
		}
	}

	pubkey, err := t.pubkey.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	_, err = w.Write(lengthPrefixed(pubkey))
	if err != nil {
		return xerrors.Errorf("couldn't write public key: %v", err)
	}

	return nil
}

// Serialize implements serde.Message.
func (t *Transaction) Serialize(ctx serde.Context) ([]byte, error) {
	format := txFormats.Get(ctx.GetFormat())

	data, err := format.Encode(ctx, t)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return data, nil
}

func lengthPrefixed(parts ...[]byte) []byte {
	size := 0
	for _, part := range parts {
		size += 4 + len(part)
	}

	buffer := make([]byte, 0, size)
	for _, part := range parts {
		buffer = binary.LittleEndian.AppendUint32(buffer, uint32(len(part)))
		buffer = append(buffer, part...)
	}

	return buffer
}
