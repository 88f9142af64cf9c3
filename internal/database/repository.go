package database

import (
	"context"
)

// RosterReader provides the read paths used by matching.
type RosterReader interface {
	// ListEmbeddings returns every record with an embedding, ordered by id.
	// Each call is an independent point-in-time snapshot.
	ListEmbeddings(ctx context.Context) ([]RosterEntry, error)
}

// RecordReader provides read-only access to identity records
type RecordReader interface {
	RosterReader

	// GetByName returns the record with the given name, nil if absent.
	// When several records share a name the lowest id wins.
	GetByName(ctx context.Context, name string) (*IdentityRecord, error)
	// FindHolder returns the record currently holding the item, nil if nobody does.
	FindHolder(ctx context.Context, item string) (*IdentityRecord, error)
	// ListRecords returns all records ordered by id
	ListRecords(ctx context.Context) ([]IdentityRecord, error)
	// ListEvents returns the newest circulation events for a name, newest first.
	ListEvents(ctx context.Context, name string, limit int) ([]CirculationEvent, error)
}

// RecordWriter provides write access to identity records
type RecordWriter interface {
	RecordReader

	// Insert creates a FREE record with the given embedding and returns its id.
	// Name uniqueness is not enforced here.
	Insert(ctx context.Context, name string, embedding []float32) (int64, error)

	// UpdateLoan moves the record resolved by name from expected to next.
	// It succeeds only if the stored loan still equals expected (compare-and-swap),
	// and appends the journal event in the same transaction.
	// Returns ErrNotFound, ErrLoanConflict, ErrItemHeld or ErrInvalidLoan.
	UpdateLoan(ctx context.Context, name string, expected, next Loan) (*CirculationEvent, error)
}

// RecordStore is a RecordWriter owning its connection.
type RecordStore interface {
	RecordWriter
	Close() error
}
