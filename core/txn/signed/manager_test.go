package signed

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/crypto"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestManager_Make(t *testing.T) {
	mgr := NewManager(fake.NewSigner(), nil)

	tx, err := mgr.Make(txn.Arg{Key: "a", Value: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, uint64(0), tx.GetNonce())
	require.Equal(t, []byte{1, 2, 3}, tx.GetArg("a"))

	tx, err = mgr.Make()
	require.NoError(t, err)
	require.Equal(t, uint64(1), tx.GetNonce())

	mgr.hashFac = fake.NewHashFactory(fake.NewBadHash())
	_, err = mgr.Make()
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to create tx: ")

	mgr.hashFac = crypto.NewSha256Factory()
	mgr.signer = fake.NewBadSigner()
	_, err = mgr.Make()
	require.EqualError(t, err, fake.Err("failed to sign: signer"))

	// Failures do not consume a nonce.
	require.Equal(t, uint64(2), mgr.nonce)
}

func TestManager_MakeConcurrently(t *testing.T) {
	mgr := NewManager(ed25519.NewSigner(), nil)

	nonces := make(chan uint64, 20)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tx, err := mgr.Make()
			require.NoError(t, err)

			nonces <- tx.GetNonce()
		}()
	}

	wg.Wait()
	close(nonces)

	seen := make(map[uint64]struct{})
	for nonce := range nonces {
		seen[nonce] = struct{}{}
	}

	require.Len(t, seen, 20)
}

func TestManager_Options(t *testing.T) {
	mgr := NewManager(fake.NewSigner(), nil,
		WithManagerHashFactory(crypto.NewHashFactory(crypto.Sha3_224)))

	tx, err := mgr.Make()
	require.NoError(t, err)
	require.Len(t, tx.GetID(), 28)
}

func TestManager_Sync(t *testing.T) {
	mgr := NewManager(fake.NewSigner(), fixedClient{nonce: 42})

	err := mgr.Sync()
	require.NoError(t, err)
	require.Equal(t, uint64(42), mgr.nonce)

	mgr = NewManager(fake.NewSigner(), fixedClient{err: fake.GetError()})
	err = mgr.Sync()
	require.EqualError(t, err, fake.Err("client"))
}

func ExampleTransactionManager_Make() {
	admin := ed25519.NewSigner()

	// The ledger has already seen five transactions of the administrator.
	manager := NewManager(admin, fixedClient{nonce: 5})

	err := manager.Sync()
	if err != nil {
		panic("failed to synchronize: " + err.Error())
	}

	for i := 0; i < 2; i++ {
		tx, err := manager.Make(txn.Arg{Key: "election:command", Value: []byte("ISSUE_ELECTION")})
		if err != nil {
			panic("failed to create the transaction: " + err.Error())
		}

		fmt.Println(tx.GetNonce())
	}

	// Output: 5
	// 6
}

// -----------------------------------------------------------------------------
// Utility functions

// fixedClient always returns the same nonce.
//
// - implements signed.Client
type fixedClient struct {
	nonce uint64
	err   error
}

func (c fixedClient) GetNonce(crypto.PublicKey) (uint64, error) {
	return c.nonce, c.err
}
