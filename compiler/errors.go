package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/updater/registry"
)

var (
	ErrEmptyPath           = errors.New("empty path")
	ErrEmptyMember         = errors.New("empty member name")
	ErrUnterminatedIndexer = errors.New("could not find indexer end ']'")
	ErrUnterminatedCast    = errors.New("could not find cast end ')'")
	ErrUnresolvedType      = errors.New("could not resolve type")
	ErrInvalidCast         = errors.New("invalid cast")
	ErrNotEnterable        = errors.New("member cannot be entered")
	ErrNotSettable         = errors.New("member cannot be set")
	ErrBadDataOffset       = errors.New("bad data offset")

	// ErrUnresolvedMember matches members and indexers with no accessor.
	ErrUnresolvedMember = registry.ErrNotFound
	// ErrBadIndexer matches malformed or out-of-range indexer text.
	ErrBadIndexer = registry.ErrBadIndex
)

// PathError reports a failure to compile one path of a batch. Offset is the
// byte offset of the offending segment within Path.
type PathError struct {
	Path   string
	Offset int
	Err    error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("property path %q at %d: %v", e.Path, e.Offset, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func pathErrorf(path string, offset int, err error, format string, args ...any) *PathError {
	return &PathError{
		Path:   path,
		Offset: offset,
		Err:    fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)),
	}
}
