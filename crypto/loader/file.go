package loader

import (
	"io"
	"os"

	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

// keyPerm only allows the current user to read the key.
const keyPerm = os.FileMode(0400)

// fileLoader keeps the key in a single file. The file is replaced atomically
// so that a crash never leaves a truncated key behind.
//
// - implements loader.Loader
type fileLoader struct {
	path string

	openFn  func(path string) (*os.File, error)
	writeFn func(path string, data []byte, perms os.FileMode) error
	statFn  func(path string) (os.FileInfo, error)
}

// NewFileLoader returns a loader for the key stored at the path.
func NewFileLoader(path string) Loader {
	return fileLoader{
		path:    path,
		openFn:  os.Open,
		writeFn: renameio.WriteFile,
		statFn:  os.Stat,
	}
}

// Load implements loader.Loader.
func (l fileLoader) Load() ([]byte, error) {
	file, err := l.openFn(l.path)
	if err != nil {
		return nil, xerrors.Errorf("while opening file: %v", err)
	}

	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Errorf("while reading file: %v", err)
	}

	return data, nil
}

// Store implements loader.Loader. Any stat result other than a missing file
// counts as an existing key.
func (l fileLoader) Store(data []byte, overwrite bool) error {
	if !overwrite {
		_, err := l.statFn(l.path)
		if !os.IsNotExist(err) {
			return xerrors.Errorf("%s: %w", l.path, ErrExists)
		}
	}

	err := l.writeFn(l.path, data, keyPerm)
	if err != nil {
		return xerrors.Errorf("while writing: %v", err)
	}

	return nil
}
