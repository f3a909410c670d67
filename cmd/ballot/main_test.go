package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/ucli"
)

func TestMain_Happy(t *testing.T) {
	oldPrinter := printer
	defer func() {
		printer = oldPrinter
	}()

	builder = &fakeBuilder{}
	buf := new(bytes.Buffer)
	printer = buf

	main()

	require.Empty(t, buf)
}

func TestMain_Error(t *testing.T) {
	oldPrinter := printer
	oldExit := exit
	defer func() {
		printer = oldPrinter
		exit = oldExit
	}()

	builder = &fakeBuilder{err: errors.New("fake")}
	buf := new(bytes.Buffer)
	printer = buf

	code := 0
	exit = func(c int) { code = c }

	main()
	require.Equal(t, "fake\n", buf.String())
	require.Equal(t, 1, code)
}

func TestRun(t *testing.T) {
	b := &fakeBuilder{}
	builder = b
	init := &fakeInit{}

	err := run([]string{"ballot"}, init)
	require.NoError(t, err)

	require.True(t, b.called)
	require.True(t, init.called)
}

func TestRun_SignerNew(t *testing.T) {
	builder = ucli.NewBuilder("ballot", nil)

	path := filepath.Join(t.TempDir(), "private.key")

	err := run([]string{"ballot", "signer", "new", "--save", path}, signerInitializer{})
	require.NoError(t, err)
	require.FileExists(t, path)

	_, err = loadSigner(readKeyFile, path)
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Utility functions

type fakeBuilder struct {
	cli.Builder
	err    error
	called bool
}

func (f *fakeBuilder) Build() cli.Application {
	f.called = true
	return &fakeApp{err: f.err}
}

func (f *fakeBuilder) SetCommand(name string) cli.CommandBuilder {
	return fakeCommandBuilder{}
}

type fakeCommandBuilder struct{}

func (b fakeCommandBuilder) SetSubCommand(name string) cli.CommandBuilder {
	return b
}

func (b fakeCommandBuilder) SetDescription(value string) {}

func (b fakeCommandBuilder) SetFlags(flags ...cli.Flag) {}

func (b fakeCommandBuilder) SetAction(a cli.Action) {}

type fakeApp struct {
	err error
}

func (f fakeApp) Run(arguments []string) error {
	return f.err
}

type fakeInit struct {
	called bool
}

func (f *fakeInit) SetCommands(cli.Builder) {
	f.called = true
}
