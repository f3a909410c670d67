// Package main provides the CLI of the election ledger. It creates the key
// pairs of the participants, signs their transactions and applies batches of
// transactions to a local ledger that can be served over HTTP.
//
// Example of a referendum:
//
//	ballot signer new --save admin.key
//	ballot signer new --save voter.key
//	ballot signer new --save clock.key
//	ballot tx administration --signer admin.key --name gov >> batch.txt
//	ballot tx participant --signer voter.key --name alice >> batch.txt
//	ballot tx time --signer clock.key --validators <clock key> >> batch.txt
//	ballot ledger apply --file batch.txt --validators <clock key>
//	ballot ledger show
//
// The database, the listening address, the hash algorithm and the validators
// can be set in a YAML file given by the --config flag.
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/ucli"

	// Formats of the messages exchanged by the commands.
	_ "go.dedis.ch/ballot/contracts/election/types/json"
	_ "go.dedis.ch/ballot/core/txn/signed/json"
	_ "go.dedis.ch/ballot/core/validation/simple/json"
	_ "go.dedis.ch/ballot/crypto/ed25519/json"
)

var builder cli.Builder = ucli.NewBuilder("ballot", nil)
var printer io.Writer = os.Stderr
var exit = os.Exit

func main() {
	err := run(os.Args, signerInitializer{}, txInitializer{}, ledgerInitializer{})
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
		exit(1)
	}
}

func run(args []string, inits ...cli.Initializer) error {
	for _, init := range inits {
		init.SetCommands(builder)
	}

	app := builder.Build()
	err := app.Run(args)
	if err != nil {
		return err
	}

	return nil
}
