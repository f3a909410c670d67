package election

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestSchema_Participant(t *testing.T) {
	schema := NewSchema(fake.NewTx())

	_, found, err := schema.Participant([]byte("A"))
	require.NoError(t, err)
	require.False(t, found)

	err = schema.CreateParticipant([]byte("A"), "alice", "a@b.c", "123", "secret", []byte{1})
	require.NoError(t, err)

	p, found, err := schema.Participant([]byte("A"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.Participant{
		Key:         []byte("A"),
		Name:        "alice",
		Email:       "a@b.c",
		PhoneNumber: "123",
		PassCode:    "secret",
		TxHash:      []byte{1},
	}, p)

	err = NewSchema(fake.NewBadTx()).CreateParticipant(nil, "", "", "", "", nil)
	require.EqualError(t, err, fake.Err("participant: failed to get bucket"))

	err = NewSchema(fake.NewTxWithBucket(fake.NewBadWriteBucket())).CreateParticipant(nil, "", "", "", "", nil)
	require.EqualError(t, err, fake.Err("participant: failed to set"))

	err = NewSchema(fake.NewTx(), WithContext(fake.NewBadContext())).
		CreateParticipant(nil, "", "", "", "", nil)
	require.EqualError(t, err, "participant: failed to serialize: "+
		"failed to encode participant: format 'FakeBad' is not implemented")

	err = NewSchema(readOnlyTx{}).CreateParticipant(nil, "", "", "", "", nil)
	require.EqualError(t, err, "participant: transaction 'election.readOnlyTx' is not writable")
}

func TestSchema_Participant_Corrupted(t *testing.T) {
	bucket := fake.NewBucket()
	require.NoError(t, bucket.Set([]byte("A"), []byte("{}")))

	schema := NewSchema(fake.NewTxWithBucket(bucket))

	_, _, err := schema.Participant([]byte("A"))
	require.EqualError(t, err, "participant: failed to deserialize: "+
		"failed to decode: unsupported version 0")

	// An entity of the wrong type is reported.
	require.NoError(t, schema.CreateAdministration([]byte("B"), "gov", nil, nil))

	_, _, err = schema.Participant([]byte("B"))
	require.EqualError(t, err, "invalid participant of type 'types.Administration'")
}

func TestSchema_Administration(t *testing.T) {
	schema := NewSchema(fake.NewTx())

	_, found, err := schema.Administration([]byte("A"))
	require.NoError(t, err)
	require.False(t, found)

	err = schema.CreateAdministration([]byte("A"), "gov", nil, []byte{2})
	require.NoError(t, err)

	a, found, err := schema.Administration([]byte("A"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.Administration{Key: []byte("A"), Name: "gov", TxHash: []byte{2}}, a)

	err = NewSchema(fake.NewBadTx()).CreateAdministration(nil, "", nil, nil)
	require.EqualError(t, err, fake.Err("administration: failed to get bucket"))
}

func TestSchema_IssueElection(t *testing.T) {
	schema := NewSchema(fake.NewTx())

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))

	for i := 1; i <= 3; i++ {
		id, err := schema.IssueElection("e", []byte("A"), start, start.Add(time.Hour),
			[]string{"Yes", "No"}, nil)
		require.NoError(t, err)
		require.Equal(t, int64(i), id)
	}

	e, found, err := schema.Election(2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(2), e.ID)
	require.True(t, start.Equal(e.StartDate))
	require.Equal(t, time.UTC, e.StartDate.Location())

	_, found, err = schema.Election(4)
	require.NoError(t, err)
	require.False(t, found)

	elections, err := schema.Elections()
	require.NoError(t, err)
	require.Len(t, elections, 3)

	for i, e := range elections {
		require.Equal(t, int64(i+1), e.ID)
	}

	_, err = NewSchema(fake.NewTxWithBucket(fake.NewBadSequenceBucket())).
		IssueElection("", nil, start, start, nil, nil)
	require.EqualError(t, err, fake.Err("failed to get next identifier"))

	_, err = NewSchema(fake.NewBadTx()).IssueElection("", nil, start, start, nil, nil)
	require.EqualError(t, err, fake.Err("election: failed to get bucket"))

	_, err = NewSchema(fake.NewTxWithBucket(fake.NewBadWriteBucket())).
		IssueElection("", nil, start, start, nil, nil)
	require.EqualError(t, err, fake.Err("election: failed to set"))
}

func TestSchema_Elections(t *testing.T) {
	elections, err := NewSchema(fake.NewTx()).Elections()
	require.NoError(t, err)
	require.Empty(t, elections)

	_, err = NewSchema(fake.NewTxWithBucket(fake.NewBadBucket())).Elections()
	require.EqualError(t, err, fake.Err("failed to read elections"))

	bucket := fake.NewBucket()
	require.NoError(t, bucket.Set(electionKey(1), []byte("{}")))

	_, err = NewSchema(fake.NewTxWithBucket(bucket)).Elections()
	require.EqualError(t, err, "failed to read elections: election 0x0000000000000001: "+
		"failed to decode: unsupported version 0")
}

func TestSchema_Votes(t *testing.T) {
	schema := NewSchema(fake.NewTx())

	_, err := schema.IssueElection("a", nil, time.Time{}, time.Time{}, []string{"Yes", "No"}, nil)
	require.NoError(t, err)

	_, err = schema.IssueElection("b", nil, time.Time{}, time.Time{}, []string{"Yes"}, nil)
	require.NoError(t, err)

	votes, err := schema.ElectionVotes(1)
	require.NoError(t, err)
	require.Empty(t, votes)

	require.NoError(t, schema.Vote(1, []byte("A"), 0, []byte{1}))
	require.NoError(t, schema.Vote(1, []byte("B"), 1, []byte{2}))
	require.NoError(t, schema.Vote(1, []byte("C"), 0, []byte{3}))
	require.NoError(t, schema.Vote(2, []byte("A"), 0, []byte{4}))

	vote, found, err := schema.VoteOf(1, []byte("B"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.VoteRecord{ElectionID: 1, Voter: []byte("B"), OptionID: 1, TxHash: []byte{2}}, vote)

	_, found, err = schema.VoteOf(2, []byte("B"))
	require.NoError(t, err)
	require.False(t, found)

	votes, err = schema.ElectionVotes(1)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	require.Equal(t, int32(1), votes[hex.EncodeToString([]byte("B"))].OptionID)

	tally, err := schema.Tally(1)
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 1}, tally)

	tally, err = schema.Tally(2)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, tally)

	_, err = schema.Tally(3)
	require.EqualError(t, err, "election 3 not found")

	err = NewSchema(fake.NewBadTx()).Vote(1, nil, 0, nil)
	require.EqualError(t, err, fake.Err("vote: failed to get bucket"))

	_, err = NewSchema(fake.NewTxWithBucket(fake.NewBadBucket())).ElectionVotes(1)
	require.EqualError(t, err, fake.Err("failed to read votes"))
}

func TestSchema_StateHash(t *testing.T) {
	empty := NewSchema(fake.NewTx())

	hashes, err := empty.StateHash()
	require.NoError(t, err)
	require.Len(t, hashes, 4)

	emptyDigest := crypto.NewSha256Factory().New().Sum(nil)
	for _, h := range hashes {
		require.Equal(t, emptyDigest, h)
	}

	// Two ledgers with the same content in a different insertion order agree
	// on the digests.
	a := NewSchema(fake.NewTx())
	require.NoError(t, a.CreateParticipant([]byte("A"), "alice", "", "", "", nil))
	require.NoError(t, a.CreateParticipant([]byte("B"), "bob", "", "", "", nil))

	b := NewSchema(fake.NewTx())
	require.NoError(t, b.CreateParticipant([]byte("B"), "bob", "", "", "", nil))
	require.NoError(t, b.CreateParticipant([]byte("A"), "alice", "", "", "", nil))

	hashA, err := a.StateHash()
	require.NoError(t, err)

	hashB, err := b.StateHash()
	require.NoError(t, err)
	require.Equal(t, hashA, hashB)
	require.NotEqual(t, emptyDigest, hashA[0])
	require.Equal(t, emptyDigest, hashA[1])

	require.NoError(t, b.CreateAdministration([]byte("A"), "gov", nil, nil))

	hashB, err = b.StateHash()
	require.NoError(t, err)
	require.Equal(t, hashA[0], hashB[0])
	require.NotEqual(t, hashA[1], hashB[1])

	sha3, err := NewSchema(b.tx, WithHashFactory(crypto.NewHashFactory(crypto.Sha3_224))).StateHash()
	require.NoError(t, err)
	require.Len(t, sha3[0], 28)

	_, err = NewSchema(b.tx, WithHashFactory(fake.NewHashFactory(fake.NewBadHash()))).StateHash()
	require.EqualError(t, err, fake.Err("failed to hash 'election:participants': failed to write"))
}

func TestKeys(t *testing.T) {
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, electionKey(258))
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1, 'A'}, voteKey(1, []byte("A")))
}

// -----------------------------------------------------------------------------
// Utility functions

type readOnlyTx struct{}

func (readOnlyTx) GetBucket([]byte) kv.Bucket {
	return nil
}
