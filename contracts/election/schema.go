package election

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"time"

	"go.dedis.ch/ballot/contracts/election/types"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/serde"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

var (
	participantsBucket    = []byte("election:participants")
	administrationsBucket = []byte("election:administrations")
	electionsBucket       = []byte("election:elections")
	votesBucket           = []byte("election:votes")
)

// collections is the list of buckets covered by the state hash, in order.
var collections = [][]byte{
	participantsBucket,
	administrationsBucket,
	electionsBucket,
	votesBucket,
}

// Schema is a typed view over the ledger state of the election contract. It
// does not validate anything: the preconditions are checked by the contract.
type Schema struct {
	tx          kv.ReadableTx
	context     serde.Context
	factory     types.MessageFactory
	hashFactory crypto.HashFactory
}

// SchemaOption is the type of options to create a schema.
type SchemaOption func(*Schema)

// WithHashFactory is an option to set the hash factory of the state hash.
func WithHashFactory(f crypto.HashFactory) SchemaOption {
	return func(s *Schema) {
		s.hashFactory = f
	}
}

// WithContext is an option to set the serialization context of the entities.
func WithContext(ctx serde.Context) SchemaOption {
	return func(s *Schema) {
		s.context = ctx
	}
}

// NewSchema returns a schema on top of the transaction. Writes are only
// possible when the transaction is writable.
func NewSchema(tx kv.ReadableTx, opts ...SchemaOption) Schema {
	s := Schema{
		tx:          tx,
		context:     json.NewContext(),
		factory:     types.NewMessageFactory(),
		hashFactory: crypto.NewSha256Factory(),
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// Participant returns the participant registered with the key, if any.
func (s Schema) Participant(key []byte) (types.Participant, bool, error) {
	msg, err := s.load(participantsBucket, key)
	if err != nil || msg == nil {
		return types.Participant{}, false, wrap("participant", err)
	}

	p, ok := msg.(types.Participant)
	if !ok {
		return p, false, xerrors.Errorf("invalid participant of type '%T'", msg)
	}

	return p, true, nil
}

// CreateParticipant stores a new participant for the key. An existing one is
// overwritten.
func (s Schema) CreateParticipant(key []byte, name, email, phone, passCode string, txHash []byte) error {
	p := types.Participant{
		Key:         key,
		Name:        name,
		Email:       email,
		PhoneNumber: phone,
		PassCode:    passCode,
		TxHash:      txHash,
	}

	err := s.store(participantsBucket, key, p)
	if err != nil {
		return xerrors.Errorf("participant: %v", err)
	}

	return nil
}

// Administration returns the administration registered with the key, if any.
func (s Schema) Administration(key []byte) (types.Administration, bool, error) {
	msg, err := s.load(administrationsBucket, key)
	if err != nil || msg == nil {
		return types.Administration{}, false, wrap("administration", err)
	}

	a, ok := msg.(types.Administration)
	if !ok {
		return a, false, xerrors.Errorf("invalid administration of type '%T'", msg)
	}

	return a, true, nil
}

// CreateAdministration stores a new administration for the key. The principal
// key is stored as is.
func (s Schema) CreateAdministration(key []byte, name string, principal, txHash []byte) error {
	a := types.Administration{
		Key:          key,
		Name:         name,
		PrincipalKey: principal,
		TxHash:       txHash,
	}

	err := s.store(administrationsBucket, key, a)
	if err != nil {
		return xerrors.Errorf("administration: %v", err)
	}

	return nil
}

// Elections returns all the elections in ascending order of identifier.
func (s Schema) Elections() ([]types.Election, error) {
	elections := []types.Election{}

	bucket := s.tx.GetBucket(electionsBucket)
	if bucket == nil {
		return elections, nil
	}

	err := bucket.ForEach(func(k, v []byte) error {
		msg, err := s.factory.Deserialize(s.context, v)
		if err != nil {
			return xerrors.Errorf("election %#x: %v", k, err)
		}

		e, ok := msg.(types.Election)
		if !ok {
			return xerrors.Errorf("invalid election of type '%T'", msg)
		}

		elections = append(elections, e)

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read elections: %v", err)
	}

	return elections, nil
}

// Election returns the election with the identifier, if any.
func (s Schema) Election(id int64) (types.Election, bool, error) {
	msg, err := s.load(electionsBucket, electionKey(id))
	if err != nil || msg == nil {
		return types.Election{}, false, wrap("election", err)
	}

	e, ok := msg.(types.Election)
	if !ok {
		return e, false, xerrors.Errorf("invalid election of type '%T'", msg)
	}

	return e, true, nil
}

// IssueElection stores a new election and returns its identifier. Identifiers
// start at 1 and are never reused. The options are numbered by position.
func (s Schema) IssueElection(name string, issuer []byte, start, finish time.Time,
	options []string, txHash []byte) (int64, error) {

	bucket, err := s.bucket(electionsBucket)
	if err != nil {
		return 0, xerrors.Errorf("election: %v", err)
	}

	seq, err := bucket.NextSequence()
	if err != nil {
		return 0, xerrors.Errorf("failed to get next identifier: %v", err)
	}

	e := types.Election{
		ID:         int64(seq),
		Name:       name,
		Issuer:     issuer,
		StartDate:  start.UTC(),
		FinishDate: finish.UTC(),
		Options:    types.NewOptions(options),
		TxHash:     txHash,
	}

	err = s.store(electionsBucket, electionKey(e.ID), e)
	if err != nil {
		return 0, xerrors.Errorf("election: %v", err)
	}

	return e.ID, nil
}

// ElectionVotes returns the votes of an election indexed by the hexadecimal
// representation of the voter key.
func (s Schema) ElectionVotes(id int64) (map[string]types.VoteRecord, error) {
	votes := make(map[string]types.VoteRecord)

	err := s.scanVotes(id, func(v types.VoteRecord) {
		votes[hex.EncodeToString(v.Voter)] = v
	})
	if err != nil {
		return nil, err
	}

	return votes, nil
}

// VoteOf returns the vote of the voter in the election, if any.
func (s Schema) VoteOf(id int64, voter []byte) (types.VoteRecord, bool, error) {
	msg, err := s.load(votesBucket, voteKey(id, voter))
	if err != nil || msg == nil {
		return types.VoteRecord{}, false, wrap("vote", err)
	}

	v, ok := msg.(types.VoteRecord)
	if !ok {
		return v, false, xerrors.Errorf("invalid vote of type '%T'", msg)
	}

	return v, true, nil
}

// Vote stores the vote of the voter in the election.
func (s Schema) Vote(id int64, voter []byte, optionID int32, txHash []byte) error {
	v := types.VoteRecord{
		ElectionID: id,
		Voter:      voter,
		OptionID:   optionID,
		TxHash:     txHash,
	}

	err := s.store(votesBucket, voteKey(id, voter), v)
	if err != nil {
		return xerrors.Errorf("vote: %v", err)
	}

	return nil
}

// Tally returns the number of votes per option of an election, indexed by the
// option identifier.
func (s Schema) Tally(id int64) ([]uint64, error) {
	election, found, err := s.Election(id)
	if err != nil {
		return nil, xerrors.Errorf("failed to read election: %v", err)
	}

	if !found {
		return nil, xerrors.Errorf("election %d not found", id)
	}

	counts := make([]uint64, len(election.Options))

	err = s.scanVotes(id, func(v types.VoteRecord) {
		if v.OptionID >= 0 && int(v.OptionID) < len(counts) {
			counts[v.OptionID]++
		}
	})
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// StateHash returns one digest per collection, in the order participants,
// administrations, elections and votes. A digest covers every key and value of
// the collection in key order so that two ledgers with the same content have
// the same digests.
func (s Schema) StateHash() ([][]byte, error) {
	hashes := make([][]byte, len(collections))

	for i, name := range collections {
		h := s.hashFactory.New()

		bucket := s.tx.GetBucket(name)
		if bucket != nil {
			err := bucket.ForEach(func(k, v []byte) error {
				return writeLengthPrefixed(h, k, v)
			})
			if err != nil {
				return nil, xerrors.Errorf("failed to hash '%s': %v", name, err)
			}
		}

		hashes[i] = h.Sum(nil)
	}

	return hashes, nil
}

func (s Schema) scanVotes(id int64, fn func(types.VoteRecord)) error {
	bucket := s.tx.GetBucket(votesBucket)
	if bucket == nil {
		return nil
	}

	err := bucket.Scan(electionKey(id), func(k, v []byte) error {
		msg, err := s.factory.Deserialize(s.context, v)
		if err != nil {
			return xerrors.Errorf("vote %#x: %v", k, err)
		}

		vote, ok := msg.(types.VoteRecord)
		if !ok {
			return xerrors.Errorf("invalid vote of type '%T'", msg)
		}

		fn(vote)

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to read votes: %v", err)
	}

	return nil
}

func (s Schema) load(name, key []byte) (serde.Message, error) {
	bucket := s.tx.GetBucket(name)
	if bucket == nil {
		return nil, nil
	}

	data := bucket.Get(key)
	if data == nil {
		return nil, nil
	}

	msg, err := s.factory.Deserialize(s.context, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to deserialize: %v", err)
	}

	return msg, nil
}

func (s Schema) bucket(name []byte) (kv.Bucket, error) {
	wtx, ok := s.tx.(kv.WritableTx)
	if !ok {
		return nil, xerrors.Errorf("transaction '%T' is not writable", s.tx)
	}

	bucket, err := wtx.GetBucketOrCreate(name)
	if err != nil {
		return nil, xerrors.Errorf("failed to get bucket: %v", err)
	}

	return bucket, nil
}

func (s Schema) store(name, key []byte, msg serde.Message) error {
	bucket, err := s.bucket(name)
	if err != nil {
		return err
	}

	data, err := msg.Serialize(s.context)
	if err != nil {
		return xerrors.Errorf("failed to serialize: %v", err)
	}

	err = bucket.Set(key, data)
	if err != nil {
		return xerrors.Errorf("failed to set: %v", err)
	}

	return nil
}

// wrap prefixes a non-nil error with the name of the entity.
func wrap(name string, err error) error {
	if err == nil {
		return nil
	}

	return xerrors.Errorf("%s: %v", name, err)
}

func electionKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))

	return key
}

func voteKey(id int64, voter []byte) []byte {
	return append(electionKey(id), voter...)
}

func writeLengthPrefixed(w io.Writer, parts ...[]byte) error {
	for _, part := range parts {
		buffer := binary.LittleEndian.AppendUint32(nil, uint32(len(part)))
		buffer = append(buffer, part...)

		_, err := w.Write(buffer)
		if err != nil {
			return xerrors.Errorf("failed to write: %v", err)
		}
	}

	return nil
}
