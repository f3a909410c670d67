// Package ucli implements the cli builder with the urfave/cli library.
package ucli

import (
	"fmt"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/ballot/cli"
)

// Builder is a cli builder producing urfave applications.
//
// - implements cli.Builder
type Builder struct {
	name     string
	action   cli.Action
	flags    []cli.Flag
	commands []*cmdBuilder
}

// NewBuilder returns a new builder for the application of the given name. The
// action is executed when no command is given, and can be nil. The flags are
// available to the root action only.
func NewBuilder(name string, action cli.Action, flags ...cli.Flag) cli.Builder {
	return &Builder{
		name:   name,
		action: action,
		flags:  flags,
	}
}

// Build implements cli.Builder. It returns the urfave application.
func (b *Builder) Build() cli.Application {
	app := &urfave.App{
		Name:     b.name,
		Commands: buildCommands(b.commands),
		Action:   makeAction(b.action),
		Flags:    buildFlags(b.flags),
	}

	app.Setup()

	return app
}

// SetCommand implements cli.Builder. It adds a command to the application.
func (b *Builder) SetCommand(name string) cli.CommandBuilder {
	cmd := &cmdBuilder{name: name}
	b.commands = append(b.commands, cmd)

	return cmd
}

// cmdBuilder collects the properties of a command until the application is
// built.
//
// - implements cli.CommandBuilder
type cmdBuilder struct {
	name        string
	description string
	action      cli.Action
	flags       []cli.Flag
	subcommands []*cmdBuilder
}

// SetDescription implements cli.CommandBuilder.
func (b *cmdBuilder) SetDescription(value string) {
	b.description = value
}

// SetFlags implements cli.CommandBuilder. It replaces the flags of the
// command.
func (b *cmdBuilder) SetFlags(flags ...cli.Flag) {
	b.flags = flags
}

// SetAction implements cli.CommandBuilder.
func (b *cmdBuilder) SetAction(action cli.Action) {
	b.action = action
}

// SetSubCommand implements cli.CommandBuilder.
func (b *cmdBuilder) SetSubCommand(name string) cli.CommandBuilder {
	sub := &cmdBuilder{name: name}
	b.subcommands = append(b.subcommands, sub)

	return sub
}

func buildCommands(cmds []*cmdBuilder) []*urfave.Command {
	commands := make([]*urfave.Command, len(cmds))

	for i, cmd := range cmds {
		commands[i] = &urfave.Command{
			Name:        cmd.name,
			Usage:       cmd.description,
			Action:      makeAction(cmd.action),
			Flags:       buildFlags(cmd.flags),
			Subcommands: buildCommands(cmd.subcommands),
		}
	}

	return commands
}

// buildFlags converts the flag definitions to their urfave counterpart. It
// panics for an unknown definition as it is a programming error.
func buildFlags(flags []cli.Flag) []urfave.Flag {
	res := make([]urfave.Flag, len(flags))

	for i, f := range flags {
		switch e := f.(type) {
		case cli.StringFlag:
			res[i] = &urfave.StringFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(e.Env),
			}
		case cli.StringSliceFlag:
			res[i] = &urfave.StringSliceFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    urfave.NewStringSlice(e.Value...),
				EnvVars:  envVars(e.Env),
			}
		case cli.DurationFlag:
			res[i] = &urfave.DurationFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(e.Env),
			}
		case cli.IntFlag:
			res[i] = &urfave.IntFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(e.Env),
			}
		case cli.BoolFlag:
			res[i] = &urfave.BoolFlag{
				Name:     e.Name,
				Usage:    e.Usage,
				Required: e.Required,
				Value:    e.Value,
				EnvVars:  envVars(e.Env),
			}
		default:
			panic(fmt.Sprintf("flag type '%T' not supported", f))
		}
	}

	return res
}

func envVars(name string) []string {
	if name == "" {
		return nil
	}

	return []string{name}
}

// makeAction wraps the action so that it reads the flags from the urfave
// context.
func makeAction(action cli.Action) urfave.ActionFunc {
	if action == nil {
		return nil
	}

	return func(ctx *urfave.Context) error {
		return action(ctx)
	}
}
