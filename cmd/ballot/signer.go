package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/crypto/loader"
	"golang.org/x/xerrors"
)

const (
	// FormatHex prints the public key in hexadecimal, as expected by the
	// configuration and the read API.
	FormatHex = "HEX"
	// FormatText prints the public key with its scheme prefix.
	FormatText = "TEXT"
)

// signerInitializer contributes the commands to manage the key pairs of the
// participants.
//
// - implements cli.Initializer
type signerInitializer struct{}

// SetCommands implements cli.Initializer.
func (signerInitializer) SetCommands(builder cli.Builder) {
	action := signerAction{
		printer:   os.Stdout,
		genSigner: ed25519.NewSigner().MarshalBinary,
		readFile:  readKeyFile,
		saveFile:  saveKeyFile,
	}

	signer := builder.SetCommand("signer")
	signer.SetDescription("manage the key pairs")

	cmd := signer.SetSubCommand("new")
	cmd.SetDescription("create a new signer")
	cmd.SetFlags(cli.StringFlag{
		Name:  "save",
		Usage: "if provided, save the signer to that file",
	}, cli.BoolFlag{
		Name:  "force",
		Usage: "in the case it saves the signer, will overwrite if needed",
	})
	cmd.SetAction(action.newSignerAction)

	cmd = signer.SetSubCommand("read")
	cmd.SetDescription("print the public key of a signer")
	cmd.SetFlags(cli.StringFlag{
		Name:     "path",
		Usage:    "path to the signer's file",
		Required: true,
	}, cli.StringFlag{
		Name:  "format",
		Usage: "output format: [HEX | TEXT]",
		Value: FormatHex,
	})
	cmd.SetAction(action.readSignerAction)
}

// signerAction defines the actions of the signer commands. Defining the
// functions and the printer helps in testing the commands.
type signerAction struct {
	printer io.Writer

	genSigner func() ([]byte, error)
	readFile  func(path string) ([]byte, error)
	saveFile  func(path string, force bool, data []byte) error
}

func (a signerAction) newSignerAction(flags cli.Flags) error {
	data, err := a.genSigner()
	if err != nil {
		return xerrors.Errorf("failed to marshal signer: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	path := flags.String("save")
	if path != "" {
		err = a.saveFile(path, flags.Bool("force"), data)
		if err != nil {
			return xerrors.Errorf("failed to save file: %v", err)
		}
	} else {
		fmt.Fprintln(a.printer, hex.EncodeToString(data))
	}

	return printPublicKey(a.printer, signer.GetPublicKey(), FormatHex)
}

func (a signerAction) readSignerAction(flags cli.Flags) error {
	data, err := a.readFile(flags.Path("path"))
	if err != nil {
		return xerrors.Errorf("failed to read data: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return printPublicKey(a.printer, signer.GetPublicKey(), flags.String("format"))
}

func printPublicKey(out io.Writer, pubkey crypto.PublicKey, format string) error {
	var text []byte
	var err error

	switch format {
	case FormatHex:
		text, err = pubkey.MarshalBinary()
		text = []byte(hex.EncodeToString(text))
	case FormatText:
		text, err = pubkey.MarshalText()
	default:
		return xerrors.Errorf("unknown format '%s'", format)
	}

	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	fmt.Fprintln(out, string(text))

	return nil
}

// loadSigner returns the signer stored in the file.
func loadSigner(readFile func(string) ([]byte, error), path string) (crypto.Signer, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read signer: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to unmarshal signer: %v", err)
	}

	return signer, nil
}

func readKeyFile(path string) ([]byte, error) {
	return loader.NewFileLoader(path).Load()
}

// saveKeyFile writes the key atomically with read permission for the current
// user only.
func saveKeyFile(path string, force bool, data []byte) error {
	err := loader.NewFileLoader(path).Store(data, force)
	if xerrors.Is(err, loader.ErrExists) {
		return xerrors.Errorf("file '%s' already exists, use --force if you "+
			"want to overwrite", path)
	}
	if err != nil {
		return xerrors.Errorf("failed to write file: %v", err)
	}

	return nil
}
