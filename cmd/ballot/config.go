package main

import (
	"encoding/hex"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// defaults are the values used when neither the command line nor the
// configuration file sets them.
var defaults = cli.FlagSet{
	"db":     "ballot.db",
	"listen": "127.0.0.1:8080",
	"hash":   crypto.Sha256.String(),
}

// config is the resolved configuration of a command.
type config struct {
	DB         string
	Listen     string
	Hash       crypto.HashFactory
	Validators []crypto.PublicKey
}

// configReader reads the configuration of a command. The file given by the
// "config" flag, if any, provides the values missing from the command line.
type configReader struct {
	readFile func(path string) ([]byte, error)
}

func (r configReader) read(flags cli.Flags) (config, error) {
	layers := []cli.Flags{flags}

	path := flags.Path("config")
	if path != "" {
		data, err := r.readFile(path)
		if err != nil {
			return config{}, xerrors.Errorf("failed to read config: %v", err)
		}

		file := cli.FlagSet{}

		err = yaml.Unmarshal(data, &file)
		if err != nil {
			return config{}, xerrors.Errorf("failed to parse config: %v", err)
		}

		layers = append(layers, file)
	}

	layers = append(layers, defaults)

	return parseConfig(cli.Overlay(layers...))
}

func parseConfig(flags cli.Flags) (config, error) {
	algo, err := crypto.ParseHashAlgorithm(flags.String("hash"))
	if err != nil {
		return config{}, xerrors.Errorf("invalid hash: %v", err)
	}

	validators, err := parseValidators(flags.StringSlice("validators"))
	if err != nil {
		return config{}, xerrors.Errorf("invalid validators: %v", err)
	}

	cfg := config{
		DB:         flags.Path("db"),
		Listen:     flags.String("listen"),
		Hash:       crypto.NewHashFactory(algo),
		Validators: validators,
	}

	return cfg, nil
}

func parseValidators(keys []string) ([]crypto.PublicKey, error) {
	factory := ed25519.NewPublicKeyFactory()

	validators := make([]crypto.PublicKey, len(keys))

	for i, key := range keys {
		data, err := hex.DecodeString(key)
		if err != nil {
			return nil, xerrors.Errorf("key '%s' is not hexadecimal: %v", key, err)
		}

		validators[i], err = factory.FromBytes(data)
		if err != nil {
			return nil, xerrors.Errorf("key '%s' is malformed: %v", key, err)
		}
	}

	return validators, nil
}

// configFlags are the flags shared by the commands that open the ledger.
var configFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config",
		Env:   "BALLOT_CONFIG",
		Usage: "path to a YAML configuration file",
	},
	cli.StringFlag{
		Name:  "db",
		Env:   "BALLOT_DB",
		Usage: "path to the ledger database (default: ballot.db)",
	},
	cli.StringFlag{
		Name:  "hash",
		Env:   "BALLOT_HASH",
		Usage: "hash algorithm of the identifiers and digests: [sha256 | sha3-224]",
	},
	cli.StringSliceFlag{
		Name:  "validators",
		Env:   "BALLOT_VALIDATORS",
		Usage: "hexadecimal public keys allowed to publish the ledger time",
	},
}
