// Package registry implements the format registry mechanism. A package that
// defines messages owns a registry where the format engines register
// themselves, usually from the init function of a format subpackage.
package registry

import (
	"go.dedis.ch/ballot/serde"
	"golang.org/x/xerrors"
)

// Registry is an interface to register and get format engines for a specific
// format.
type Registry interface {
	Register(serde.Format, serde.FormatEngine)

	Get(serde.Format) serde.FormatEngine
}

// SimpleRegistry is a map-based registry. It always returns an engine so that
// an unknown format fails with a meaningful error at encoding time.
//
// - implements registry.Registry
type SimpleRegistry struct {
	store map[serde.Format]serde.FormatEngine
}

// NewSimpleRegistry returns a new empty registry.
func NewSimpleRegistry() *SimpleRegistry {
	return &SimpleRegistry{
		store: make(map[serde.Format]serde.FormatEngine),
	}
}

// Register implements registry.Registry. It registers the engine for the given
// format, replacing any previous one.
func (r *SimpleRegistry) Register(name serde.Format, f serde.FormatEngine) {
	r.store[name] = f
}

// Get implements registry.Registry. It returns the format engine associated
// with the format if it exists, otherwise it returns an empty format.
func (r *SimpleRegistry) Get(name serde.Format) serde.FormatEngine {
	fmt := r.store[name]
	if fmt == nil {
		return emptyFormat{name: name}
	}

	return fmt
}

// emptyFormat is the engine returned for unknown formats.
//
// - implements serde.FormatEngine
type emptyFormat struct {
	name serde.Format
}

// Encode implements serde.FormatEngine. It always returns an error.
func (f emptyFormat) Encode(serde.Context, serde.Message) ([]byte, error) {
	return nil, xerrors.Errorf("format '%s' is not implemented", f.name)
}

// Decode implements serde.FormatEngine. It always returns an error.
func (f emptyFormat) Decode(serde.Context, []byte) (serde.Message, error) {
	return nil, xerrors.Errorf("format '%s' is not implemented", f.name)
}
