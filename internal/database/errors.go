package database

import "errors"

var (
	// ErrNotFound is returned by writes addressing a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrLoanConflict means the stored loan changed between read and write.
	ErrLoanConflict = errors.New("loan state changed concurrently")
	// ErrItemHeld means another identity already holds the item.
	ErrItemHeld = errors.New("item is held by another identity")
	// ErrInvalidLoan is returned for loans breaking the state/item pairing.
	ErrInvalidLoan = errors.New("invalid loan: item must be set exactly when holding")
	// ErrDimensionMismatch is returned for embeddings of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrInvalidEmbedding is returned for embeddings with a NaN or infinite component.
	ErrInvalidEmbedding = errors.New("embedding has a non-finite component")
	// ErrCorruptEmbedding is returned when a stored embedding cannot be decoded.
	ErrCorruptEmbedding = errors.New("stored embedding is corrupt")
)
