package main

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/contracts/election"
	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/contracts/timestamp"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
	"go.dedis.ch/ballot/serde/json"
)

var epoch = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

func TestTxAction_Participant(t *testing.T) {
	keys := newKeyring("voter")
	buf := new(bytes.Buffer)

	action := newTxAction(buf, keys)

	flags := cli.FlagSet{
		"signer":   "voter",
		"nonce":    "3",
		"name":     "alice",
		"email":    "alice@example.com",
		"passcode": "1234",
	}

	err := action.participantAction(flags)
	require.NoError(t, err)

	tx := decodeTx(t, buf.Bytes())
	require.Equal(t, uint64(3), tx.GetNonce())
	require.True(t, keys.signers["voter"].GetPublicKey().Equal(tx.GetIdentity()))

	cmd := decodeCommand(t, tx)
	require.Equal(t, types.CreateParticipant{
		Name:     "alice",
		Email:    "alice@example.com",
		PassCode: "1234",
	}, cmd)
}

func TestTxAction_Administration(t *testing.T) {
	keys := newKeyring("admin")
	buf := new(bytes.Buffer)

	action := newTxAction(buf, keys)

	flags := cli.FlagSet{
		"signer":    "admin",
		"nonce":     "0",
		"name":      "gov",
		"principal": "aabb",
	}

	err := action.administrationAction(flags)
	require.NoError(t, err)

	cmd := decodeCommand(t, decodeTx(t, buf.Bytes()))
	require.Equal(t, types.CreateAdministration{
		Name:         "gov",
		PrincipalKey: []byte{0xaa, 0xbb},
	}, cmd)

	flags["principal"] = "xyz"
	err = action.administrationAction(flags)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid principal: ")
}

func TestTxAction_Election(t *testing.T) {
	keys := newKeyring("admin")
	buf := new(bytes.Buffer)

	action := newTxAction(buf, keys)

	flags := cli.FlagSet{
		"signer": "admin",
		"nonce":  "1",
		"name":   "referendum",
		"start":  "2021-06-01T12:00:00Z",
		"finish": "2021-06-01T13:00:00Z",
		"option": []string{"Yes", "No"},
	}

	err := action.electionAction(flags)
	require.NoError(t, err)

	cmd := decodeCommand(t, decodeTx(t, buf.Bytes()))
	require.Equal(t, types.IssueElection{
		Name:       "referendum",
		StartDate:  epoch,
		FinishDate: epoch.Add(time.Hour),
		Options:    []string{"Yes", "No"},
	}, cmd)

	flags["finish"] = "tomorrow"
	err = action.electionAction(flags)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid finish date: ")

	flags["start"] = "today"
	err = action.electionAction(flags)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid start date: ")
}

func TestTxAction_Vote(t *testing.T) {
	keys := newKeyring("voter")
	buf := new(bytes.Buffer)

	action := newTxAction(buf, keys)

	flags := cli.FlagSet{
		"signer":   "voter",
		"nonce":    "1",
		"election": 2,
		"option":   1,
	}

	err := action.voteAction(flags)
	require.NoError(t, err)

	cmd := decodeCommand(t, decodeTx(t, buf.Bytes()))
	vote, ok := cmd.(types.Vote)
	require.True(t, ok)
	require.Equal(t, int64(2), vote.ElectionID)
	require.Equal(t, int32(1), vote.OptionID)

	action.newVote = func(int64, int32) (types.Vote, error) {
		return types.Vote{}, fake.GetError()
	}

	err = action.voteAction(flags)
	require.EqualError(t, err, fake.Err("failed to create vote"))
}

func TestTxAction_Time(t *testing.T) {
	keys := newKeyring("clock")
	buf := new(bytes.Buffer)

	action := newTxAction(buf, keys)

	flags := cli.FlagSet{"signer": "clock", "nonce": "0"}

	err := action.timeAction(flags)
	require.NoError(t, err)

	tx := decodeTx(t, buf.Bytes())
	require.Equal(t, []byte(timestamp.ContractName), tx.GetArg(native.ContractArg))

	expected, err := timestamp.NewArgs(epoch)
	require.NoError(t, err)
	require.Equal(t, expected[1].Value, tx.GetArg(timestamp.TimeArg))

	buf.Reset()
	flags["time"] = "2021-06-01T12:30:00Z"

	err = action.timeAction(flags)
	require.NoError(t, err)

	expected, err = timestamp.NewArgs(epoch.Add(30 * time.Minute))
	require.NoError(t, err)
	require.Equal(t, expected[1].Value, decodeTx(t, buf.Bytes()).GetArg(timestamp.TimeArg))

	flags["time"] = "noon"
	err = action.timeAction(flags)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid time: ")
}

func TestTxAction_NonceFromLedger(t *testing.T) {
	keys := newKeyring("voter")
	buf := new(bytes.Buffer)

	action := newTxAction(buf, keys)

	flags := cli.FlagSet{
		"signer": "voter",
		"name":   "alice",
		"db":     filepath.Join(t.TempDir(), "ledger.db"),
	}

	err := action.participantAction(flags)
	require.NoError(t, err)
	require.Equal(t, uint64(0), decodeTx(t, buf.Bytes()).GetNonce())

	action.openDB = func(string) (kv.DB, error) {
		return nil, fake.GetError()
	}

	err = action.participantAction(flags)
	require.EqualError(t, err, fake.Err("failed to open database"))

	action.openDB = func(string) (kv.DB, error) {
		return fake.NewBadDB(), nil
	}

	err = action.participantAction(flags)
	require.EqualError(t, err,
		fake.Err("failed to sync manager: client: failed to read nonce"))
}

func TestTxAction_Failures(t *testing.T) {
	keys := newKeyring("voter")

	action := newTxAction(new(bytes.Buffer), keys)

	err := action.participantAction(cli.FlagSet{"signer": "voter", "hash": "md5"})
	require.EqualError(t, err, "invalid hash: unknown hash algorithm 'md5'")

	err = action.participantAction(cli.FlagSet{"signer": "unknown"})
	require.EqualError(t, err, fake.Err("failed to read signer"))

	err = action.participantAction(cli.FlagSet{"signer": "voter", "nonce": "abc"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid nonce: ")
}

// -----------------------------------------------------------------------------
// Utility functions

type keyring struct {
	signers map[string]ed25519.Signer
}

func newKeyring(names ...string) keyring {
	k := keyring{signers: make(map[string]ed25519.Signer)}
	for _, name := range names {
		k.signers[name] = ed25519.NewSigner()
	}

	return k
}

func (k keyring) read(path string) ([]byte, error) {
	signer, found := k.signers[path]
	if !found {
		return nil, fake.GetError()
	}

	return signer.MarshalBinary()
}

func (k keyring) hexKey(t *testing.T, name string) string {
	data, err := k.signers[name].GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	return hex.EncodeToString(data)
}

func newTxAction(buf *bytes.Buffer, keys keyring) txAction {
	return txAction{
		printer:  buf,
		config:   configReader{readFile: badReadFile},
		readFile: keys.read,
		openDB:   kv.New,
		now:      func() time.Time { return epoch },
		newVote:  election.NewVote,
	}
}

func decodeTx(t *testing.T, data []byte) *signed.Transaction {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	tx, err := signed.NewTransactionFactory().TransactionOf(json.NewContext(), []byte(lines[len(lines)-1]))
	require.NoError(t, err)

	return tx.(*signed.Transaction)
}

func decodeCommand(t *testing.T, tx *signed.Transaction) types.Command {
	cmd, err := types.NewCommandFactory().CommandOf(json.NewContext(), tx.GetArg(election.CmdArg))
	require.NoError(t, err)

	return cmd
}
