// Package vectorstore declares the error taxonomy shared by store
// implementations.
package vectorstore

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch means a vector's length disagrees with the
	// store's fixed dimensionality.
	ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")
	// ErrDuplicateID means an id is already present in the store.
	ErrDuplicateID = errors.New("vectorstore: duplicate id")
	// ErrLengthMismatch means the id/text/vector/metadata sequences passed
	// to Add have differing lengths.
	ErrLengthMismatch = errors.New("vectorstore: input sequence length mismatch")
	// ErrCorruptIndex means the persisted artifacts disagree or are
	// unreadable. Never repaired automatically; the operator decides.
	ErrCorruptIndex = errors.New("vectorstore: corrupt index")
)

// OpError wraps an error with the store operation that produced it.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return fmt.Sprintf("vectorstore.%s: %v", e.Op, e.Err) }

func (e *OpError) Unwrap() error { return e.Err }

// Wrap annotates err with op, passing nil through.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}
