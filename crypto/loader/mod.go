// Package loader defines where the private keys of the signers are kept
// between two invocations of the command line.
package loader

import "golang.org/x/xerrors"

// ErrExists is returned when a key would overwrite an existing one.
var ErrExists = xerrors.New("key already exists")

// Loader reads and writes a marshaled private key.
type Loader interface {
	// Load returns the key if it exists, otherwise an error.
	Load() ([]byte, error)

	// Store writes the key. It returns ErrExists when a key is already
	// stored, unless overwrite is true.
	Store(data []byte, overwrite bool) error
}
