package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/contracts/election"
	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/contracts/timestamp"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

// txInitializer contributes the commands that create signed transactions. The
// transactions are printed in JSON, one per line, so that they can be
// collected into a batch.
//
// - implements cli.Initializer
type txInitializer struct{}

// SetCommands implements cli.Initializer.
func (txInitializer) SetCommands(builder cli.Builder) {
	action := txAction{
		printer:  os.Stdout,
		config:   configReader{readFile: os.ReadFile},
		readFile: readKeyFile,
		openDB:   kv.New,
		now:      time.Now,
		newVote:  election.NewVote,
	}

	common := append([]cli.Flag{
		cli.StringFlag{
			Name:     "signer",
			Usage:    "path to the signer's file",
			Required: true,
		},
		cli.StringFlag{
			Name:  "nonce",
			Usage: "nonce of the transaction, read from the ledger if not provided",
		},
	}, configFlags...)

	tx := builder.SetCommand("tx")
	tx.SetDescription("create a signed transaction")

	cmd := tx.SetSubCommand("participant")
	cmd.SetDescription("register the signer as a participant")
	cmd.SetFlags(append([]cli.Flag{
		cli.StringFlag{Name: "name", Usage: "name of the participant", Required: true},
		cli.StringFlag{Name: "email", Usage: "email address of the participant"},
		cli.StringFlag{Name: "phone", Usage: "phone number of the participant"},
		cli.StringFlag{Name: "passcode", Usage: "pass code of the participant"},
	}, common...)...)
	cmd.SetAction(action.participantAction)

	cmd = tx.SetSubCommand("administration")
	cmd.SetDescription("register the signer as an administration")
	cmd.SetFlags(append([]cli.Flag{
		cli.StringFlag{Name: "name", Usage: "name of the administration", Required: true},
		cli.StringFlag{Name: "principal", Usage: "hexadecimal key of the principal administration"},
	}, common...)...)
	cmd.SetAction(action.administrationAction)

	cmd = tx.SetSubCommand("election")
	cmd.SetDescription("issue an election on behalf of the signer's administration")
	cmd.SetFlags(append([]cli.Flag{
		cli.StringFlag{Name: "name", Usage: "name of the election", Required: true},
		cli.StringFlag{Name: "start", Usage: "start date in RFC3339", Required: true},
		cli.StringFlag{Name: "finish", Usage: "finish date in RFC3339", Required: true},
		cli.StringSliceFlag{Name: "option", Usage: "title of an option, in order", Required: true},
	}, common...)...)
	cmd.SetAction(action.electionAction)

	cmd = tx.SetSubCommand("vote")
	cmd.SetDescription("vote for an option of an election")
	cmd.SetFlags(append([]cli.Flag{
		cli.IntFlag{Name: "election", Usage: "identifier of the election", Required: true},
		cli.IntFlag{Name: "option", Usage: "identifier of the option", Required: true},
	}, common...)...)
	cmd.SetAction(action.voteAction)

	cmd = tx.SetSubCommand("time")
	cmd.SetDescription("publish the clock of a validator")
	cmd.SetFlags(append([]cli.Flag{
		cli.StringFlag{Name: "time", Usage: "time in RFC3339, the local clock if not provided"},
	}, common...)...)
	cmd.SetAction(action.timeAction)
}

// txAction defines the actions of the transaction commands. Defining the
// functions and the printer helps in testing the commands.
type txAction struct {
	printer io.Writer
	config  configReader

	readFile func(path string) ([]byte, error)
	openDB   func(path string) (kv.DB, error)
	now      func() time.Time
	newVote  func(electionID int64, optionID int32) (types.Vote, error)
}

func (a txAction) participantAction(flags cli.Flags) error {
	cmd := types.CreateParticipant{
		Name:        flags.String("name"),
		Email:       flags.String("email"),
		PhoneNumber: flags.String("phone"),
		PassCode:    flags.String("passcode"),
	}

	return a.makeCommand(flags, cmd)
}

func (a txAction) administrationAction(flags cli.Flags) error {
	var principal []byte

	if flags.String("principal") != "" {
		var err error
		principal, err = hex.DecodeString(flags.String("principal"))
		if err != nil {
			return xerrors.Errorf("invalid principal: %v", err)
		}
	}

	cmd := types.CreateAdministration{
		Name:         flags.String("name"),
		PrincipalKey: principal,
	}

	return a.makeCommand(flags, cmd)
}

func (a txAction) electionAction(flags cli.Flags) error {
	start, err := time.Parse(time.RFC3339, flags.String("start"))
	if err != nil {
		return xerrors.Errorf("invalid start date: %v", err)
	}

	finish, err := time.Parse(time.RFC3339, flags.String("finish"))
	if err != nil {
		return xerrors.Errorf("invalid finish date: %v", err)
	}

	cmd := types.IssueElection{
		Name:       flags.String("name"),
		StartDate:  start,
		FinishDate: finish,
		Options:    flags.StringSlice("option"),
	}

	return a.makeCommand(flags, cmd)
}

func (a txAction) voteAction(flags cli.Flags) error {
	cmd, err := a.newVote(int64(flags.Int("election")), int32(flags.Int("option")))
	if err != nil {
		return xerrors.Errorf("failed to create vote: %v", err)
	}

	return a.makeCommand(flags, cmd)
}

func (a txAction) timeAction(flags cli.Flags) error {
	now := a.now()

	if flags.String("time") != "" {
		var err error
		now, err = time.Parse(time.RFC3339, flags.String("time"))
		if err != nil {
			return xerrors.Errorf("invalid time: %v", err)
		}
	}

	args, err := timestamp.NewArgs(now)
	if err != nil {
		return xerrors.Errorf("failed to create args: %v", err)
	}

	return a.makeTx(flags, args)
}

func (a txAction) makeCommand(flags cli.Flags, cmd types.Command) error {
	args, err := election.NewArgs(cmd)
	if err != nil {
		return xerrors.Errorf("failed to create args: %v", err)
	}

	return a.makeTx(flags, args)
}

// makeTx creates the transaction with the arguments, signs it and prints it.
func (a txAction) makeTx(flags cli.Flags, args []txn.Arg) error {
	cfg, err := a.config.read(flags)
	if err != nil {
		return err
	}

	signer, err := loadSigner(a.readFile, flags.Path("signer"))
	if err != nil {
		return err
	}

	var client signed.Client

	if flags.String("nonce") != "" {
		nonce, err := strconv.ParseUint(flags.String("nonce"), 10, 64)
		if err != nil {
			return xerrors.Errorf("invalid nonce: %v", err)
		}

		client = fixedNonce(nonce)
	} else {
		n, err := openNode(cfg, a.openDB)
		if err != nil {
			return err
		}

		defer n.close()

		client = n
	}

	mgr := signed.NewManager(signer, client, signed.WithManagerHashFactory(cfg.Hash))

	err = mgr.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := mgr.Make(args...)
	if err != nil {
		return xerrors.Errorf("failed to make tx: %v", err)
	}

	data, err := tx.Serialize(json.NewContext())
	if err != nil {
		return xerrors.Errorf("failed to serialize tx: %v", err)
	}

	fmt.Fprintln(a.printer, string(data))

	return nil
}
