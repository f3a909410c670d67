// Package cli defines the interfaces to declare the commands of an
// application independently of the library that parses the arguments.
//
// Components contribute their commands through an Initializer:
//
//	builder := ucli.NewBuilder("ballot", nil)
//
//	cmd := builder.SetCommand("ledger")
//	cmd.SetDescription("read and update the ledger")
//
//	show := cmd.SetSubCommand("show")
//	show.SetFlags(cli.StringFlag{Name: "db", Env: "BALLOT_DB"})
//	show.SetAction(func(flags cli.Flags) error {
//		fmt.Println(flags.Path("db"))
//		return nil
//	})
//
//	builder.Build().Run(os.Args)
//
// Actions read their flags through the Flags interface so that they can be
// tested with a FlagSet, and combined with other sources with Overlay.
package cli

import "time"

// Builder collects the commands of an application.
type Builder interface {
	// SetCommand adds a command to the application and returns its builder.
	SetCommand(name string) CommandBuilder

	// Build returns the application.
	Build() Application
}

// Application runs the command matching the arguments.
type Application interface {
	Run(arguments []string) error
}

// CommandBuilder defines a command and its subcommands.
type CommandBuilder interface {
	SetDescription(value string)

	// SetFlags replaces the flags of the command.
	SetFlags(...Flag)

	SetAction(Action)

	// SetSubCommand adds a subcommand and returns its builder.
	SetSubCommand(name string) CommandBuilder
}

// Action is executed when a command is invoked.
type Action func(Flags) error

// Flag is the definition of a flag. The supported definitions are listed in
// flag.go.
type Flag interface {
	Flag()
}

// Flags gives access to the values of the flags. A missing flag returns the
// zero value.
type Flags interface {
	String(name string) string

	StringSlice(name string) []string

	Duration(name string) time.Duration

	Path(name string) string

	Int(name string) int

	Bool(name string) bool
}

// Initializer contributes commands to an application.
type Initializer interface {
	SetCommands(Builder)
}
