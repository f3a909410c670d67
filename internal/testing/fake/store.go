package fake

import (
	"bytes"
	"sort"
	"sync"

	"go.dedis.ch/ballot/core/store/kv"
)

// Bucket is an in-memory implementation of a bucket. Iterations follow the
// byte-wise order of the keys like the real database.
//
// - implements kv.Bucket
type Bucket struct {
	sync.Mutex
	values  map[string][]byte
	seq     uint64
	errSet  error
	errSeq  error
	errScan error
}

// NewBucket returns a new empty bucket.
func NewBucket() *Bucket {
	return &Bucket{values: make(map[string][]byte)}
}

// NewBadBucket returns a bucket that fails every write and iteration.
func NewBadBucket() *Bucket {
	return &Bucket{
		values:  make(map[string][]byte),
		errSet:  GetError(),
		errSeq:  GetError(),
		errScan: GetError(),
	}
}

// NewBadWriteBucket returns a bucket that fails when a key is written.
func NewBadWriteBucket() *Bucket {
	return &Bucket{values: make(map[string][]byte), errSet: GetError()}
}

// NewBadSequenceBucket returns a bucket that fails to generate the next
// sequence value.
func NewBadSequenceBucket() *Bucket {
	return &Bucket{values: make(map[string][]byte), errSeq: GetError()}
}

// Get implements kv.Bucket.
func (b *Bucket) Get(key []byte) []byte {
	b.Lock()
	defer b.Unlock()

	return b.values[string(key)]
}

// Set implements kv.Bucket.
func (b *Bucket) Set(key, value []byte) error {
	if b.errSet != nil {
		return b.errSet
	}

	b.Lock()
	b.values[string(key)] = append([]byte{}, value...)
	b.Unlock()

	return nil
}

// Delete implements kv.Bucket.
func (b *Bucket) Delete(key []byte) error {
	b.Lock()
	delete(b.values, string(key))
	b.Unlock()

	return nil
}

// NextSequence implements kv.Bucket.
func (b *Bucket) NextSequence() (uint64, error) {
	if b.errSeq != nil {
		return 0, b.errSeq
	}

	b.Lock()
	b.seq++
	seq := b.seq
	b.Unlock()

	return seq, nil
}

// ForEach implements kv.Bucket.
func (b *Bucket) ForEach(fn func(k, v []byte) error) error {
	return b.Scan(nil, fn)
}

// Scan implements kv.Bucket.
func (b *Bucket) Scan(prefix []byte, fn func(k, v []byte) error) error {
	if b.errScan != nil {
		return b.errScan
	}

	b.Lock()
	keys := make([]string, 0, len(b.values))
	for key := range b.values {
		if bytes.HasPrefix([]byte(key), prefix) {
			keys = append(keys, key)
		}
	}
	b.Unlock()

	sort.Strings(keys)

	for _, key := range keys {
		err := fn([]byte(key), b.Get([]byte(key)))
		if err != nil {
			return err
		}
	}

	return nil
}

// Tx is an in-memory implementation of a read-write transaction. Writes are
// applied immediately.
//
// - implements kv.ReadableTx
// - implements kv.WritableTx
type Tx struct {
	sync.Mutex
	buckets   map[string]*Bucket
	fixed     *Bucket
	err       error
	callbacks []func()
}

// NewTx returns a new empty transaction.
func NewTx() *Tx {
	return &Tx{buckets: make(map[string]*Bucket)}
}

// NewTxWithBucket returns a transaction that returns the given bucket for
// every name.
func NewTxWithBucket(b *Bucket) *Tx {
	return &Tx{buckets: make(map[string]*Bucket), fixed: b}
}

// NewBadTx returns a transaction that fails to create buckets.
func NewBadTx() *Tx {
	return &Tx{buckets: make(map[string]*Bucket), err: GetError()}
}

// GetBucket implements kv.ReadableTx.
func (tx *Tx) GetBucket(name []byte) kv.Bucket {
	if tx.fixed != nil {
		return tx.fixed
	}

	tx.Lock()
	defer tx.Unlock()

	b, found := tx.buckets[string(name)]
	if !found {
		return nil
	}

	return b
}

// GetBucketOrCreate implements kv.WritableTx.
func (tx *Tx) GetBucketOrCreate(name []byte) (kv.Bucket, error) {
	if tx.err != nil {
		return nil, tx.err
	}

	if tx.fixed != nil {
		return tx.fixed, nil
	}

	tx.Lock()
	defer tx.Unlock()

	b, found := tx.buckets[string(name)]
	if !found {
		b = NewBucket()
		tx.buckets[string(name)] = b
	}

	return b, nil
}

// OnCommit implements store.Transaction.
func (tx *Tx) OnCommit(fn func()) {
	tx.Lock()
	tx.callbacks = append(tx.callbacks, fn)
	tx.Unlock()
}

// DB is a fake implementation of a key/value database. It does not support
// rollbacks.
//
// - implements kv.DB
type DB struct {
	tx  *Tx
	err error
}

// NewInMemoryDB returns a new database keeping the buckets in memory.
func NewInMemoryDB() DB {
	return DB{tx: NewTx()}
}

// NewBadDB returns a database that fails to open any transaction.
func NewBadDB() DB {
	return DB{err: GetError()}
}

// View implements kv.DB.
func (db DB) View(fn func(kv.ReadableTx) error) error {
	if db.err != nil {
		return db.err
	}

	return fn(db.tx)
}

// Update implements kv.DB. The commit callbacks are called when the function
// returns no error.
func (db DB) Update(fn func(kv.WritableTx) error) error {
	if db.err != nil {
		return db.err
	}

	err := fn(db.tx)

	db.tx.Lock()
	callbacks := db.tx.callbacks
	db.tx.callbacks = nil
	db.tx.Unlock()

	if err != nil {
		return err
	}

	for _, fn := range callbacks {
		fn()
	}

	return nil
}

// Close implements kv.DB.
func (db DB) Close() error {
	return nil
}
