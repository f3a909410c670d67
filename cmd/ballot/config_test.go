package main

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestConfigReader_Defaults(t *testing.T) {
	reader := configReader{readFile: badReadFile}

	cfg, err := reader.read(cli.FlagSet{})
	require.NoError(t, err)
	require.Equal(t, "ballot.db", cfg.DB)
	require.Equal(t, "127.0.0.1:8080", cfg.Listen)
	require.Equal(t, crypto.NewSha256Factory(), cfg.Hash)
	require.Empty(t, cfg.Validators)
}

func TestConfigReader_File(t *testing.T) {
	pubkey := ed25519.NewSigner().GetPublicKey()
	key, err := pubkey.MarshalBinary()
	require.NoError(t, err)

	file := "db: /tmp/ledger.db\n" +
		"listen: 127.0.0.1:9000\n" +
		"hash: sha3-224\n" +
		"validators:\n" +
		"  - " + hex.EncodeToString(key) + "\n"

	reader := configReader{readFile: func(string) ([]byte, error) {
		return []byte(file), nil
	}}

	cfg, err := reader.read(cli.FlagSet{"config": "ballot.yaml"})
	require.NoError(t, err)
	require.Equal(t, "/tmp/ledger.db", cfg.DB)
	require.Equal(t, "127.0.0.1:9000", cfg.Listen)
	require.Equal(t, crypto.NewHashFactory(crypto.Sha3_224), cfg.Hash)
	require.Len(t, cfg.Validators, 1)
	require.True(t, pubkey.Equal(cfg.Validators[0]))

	// The command line overrides the file.
	cfg, err = reader.read(cli.FlagSet{"config": "ballot.yaml", "db": "other.db"})
	require.NoError(t, err)
	require.Equal(t, "other.db", cfg.DB)
	require.Equal(t, "127.0.0.1:9000", cfg.Listen)
}

func TestConfigReader_Failures(t *testing.T) {
	reader := configReader{readFile: badReadFile}

	_, err := reader.read(cli.FlagSet{"config": "ballot.yaml"})
	require.EqualError(t, err, fake.Err("failed to read config"))

	reader.readFile = func(string) ([]byte, error) { return []byte("db: [oops"), nil }

	_, err = reader.read(cli.FlagSet{"config": "ballot.yaml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse config: ")

	_, err = reader.read(cli.FlagSet{"hash": "md5"})
	require.EqualError(t, err, "invalid hash: unknown hash algorithm 'md5'")

	_, err = reader.read(cli.FlagSet{"validators": []string{"zz"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid validators: key 'zz' is not hexadecimal: ")

	_, err = reader.read(cli.FlagSet{"validators": []string{"aabb"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid validators: key 'aabb' is malformed: ")
}

// -----------------------------------------------------------------------------
// Utility functions

func badReadFile(string) ([]byte, error) {
	return nil, fake.GetError()
}
