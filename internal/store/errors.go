package store

import "errors"

var (
	// ErrEmptyVector indicates an attempt to store an empty embedding.
	ErrEmptyVector = errors.New("store: empty embedding vector")
	// ErrEmptyID indicates a message or vector without an identifier.
	ErrEmptyID = errors.New("store: empty identifier")
)
