// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// ErrInjectedWriteFailure is returned when a write is aborted half way.
var ErrInjectedWriteFailure = errors.New("mock: injected write failure")

// MockRecordStore is an in-memory implementation of database.RecordStore.
// Writes are staged on a copy of the record and only swapped in when complete,
// which is how the SQL backends behave inside a transaction.
type MockRecordStore struct {
	mu      sync.RWMutex
	records []*database.IdentityRecord
	events  []database.CirculationEvent
	nextID  int64
	dim     int
	now     func() time.Time

	// Error injection
	ListEmbeddingsError error
	GetByNameError      error
	FindHolderError     error
	ListRecordsError    error
	ListEventsError     error
	InsertError         error
	UpdateLoanError     error

	// FailUpdateMidway makes the next UpdateLoan stage the new loan state,
	// then fail before the item and journal are written.
	FailUpdateMidway bool

	InsertCalls     int
	UpdateLoanCalls int
}

// NewMockRecordStore creates a new mock record store accepting embeddings of dim components.
// A dim of 0 accepts any non-empty embedding.
func NewMockRecordStore(dim int) *MockRecordStore {
	return &MockRecordStore{
		nextID: 1,
		dim:    dim,
		now:    time.Now,
	}
}

// AddRecord adds a record directly, bypassing Insert. The ID is assigned if zero.
func (m *MockRecordStore) AddRecord(rec database.IdentityRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		rec.ID = m.nextID
	}
	if rec.ID >= m.nextID {
		m.nextID = rec.ID + 1
	}
	if rec.Loan.State == "" {
		rec.Loan = database.Free()
	}
	m.records = append(m.records, &rec)
	sort.Slice(m.records, func(i, j int) bool { return m.records[i].ID < m.records[j].ID })
	return rec.ID
}

// Loan returns the stored loan for a name (zero Loan if absent).
func (m *MockRecordStore) Loan(name string) database.Loan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec := m.findByName(name); rec != nil {
		return rec.Loan
	}
	return database.Loan{}
}

// Len returns the number of stored records.
func (m *MockRecordStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Events returns a copy of the journal in append order.
func (m *MockRecordStore) Events() []database.CirculationEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.CirculationEvent(nil), m.events...)
}

func (m *MockRecordStore) findByName(name string) *database.IdentityRecord {
	for _, rec := range m.records {
		if rec.Name == name {
			return rec
		}
	}
	return nil
}

// ListEmbeddings returns every record with an embedding, ordered by id.
func (m *MockRecordStore) ListEmbeddings(ctx context.Context) ([]database.RosterEntry, error) {
	if m.ListEmbeddingsError != nil {
		return nil, m.ListEmbeddingsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var roster []database.RosterEntry
	for _, rec := range m.records {
		if !rec.HasEmbedding() {
			continue
		}
		roster = append(roster, database.RosterEntry{
			ID:        rec.ID,
			Name:      rec.Name,
			Embedding: append([]float32(nil), rec.Embedding...),
		})
	}
	return roster, nil
}

// GetByName returns a copy of the lowest-id record with the name.
func (m *MockRecordStore) GetByName(ctx context.Context, name string) (*database.IdentityRecord, error) {
	if m.GetByNameError != nil {
		return nil, m.GetByNameError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec := m.findByName(name); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

// FindHolder returns a copy of the record holding the item.
func (m *MockRecordStore) FindHolder(ctx context.Context, item string) (*database.IdentityRecord, error) {
	if m.FindHolderError != nil {
		return nil, m.FindHolderError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.Loan.State == database.LoanHolding && rec.Loan.Item == item {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

// ListRecords returns copies of all records ordered by id.
func (m *MockRecordStore) ListRecords(ctx context.Context) ([]database.IdentityRecord, error) {
	if m.ListRecordsError != nil {
		return nil, m.ListRecordsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := make([]database.IdentityRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, *rec)
	}
	return records, nil
}

// ListEvents returns the newest events of the lowest-id record called name.
func (m *MockRecordStore) ListEvents(ctx context.Context, name string, limit int) ([]database.CirculationEvent, error) {
	if m.ListEventsError != nil {
		return nil, m.ListEventsError
	}
	if limit <= 0 {
		limit = database.DefaultEventLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec := m.findByName(name)
	if rec == nil {
		return nil, nil
	}
	var events []database.CirculationEvent
	for i := len(m.events) - 1; i >= 0 && len(events) < limit; i-- {
		if m.events[i].RecordID == rec.ID {
			events = append(events, m.events[i])
		}
	}
	return events, nil
}

// Insert stores a new FREE record.
func (m *MockRecordStore) Insert(ctx context.Context, name string, embedding []float32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	if err := database.CheckEmbedding(embedding, m.dim); err != nil {
		return 0, err
	}
	now := m.now()
	rec := &database.IdentityRecord{
		ID:        m.nextID,
		Name:      name,
		Embedding: append([]float32(nil), embedding...),
		Loan:      database.Free(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextID++
	m.records = append(m.records, rec)
	return rec.ID, nil
}

// UpdateLoan performs a compare-and-swap of the loan.
func (m *MockRecordStore) UpdateLoan(ctx context.Context, name string, expected, next database.Loan) (*database.CirculationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateLoanCalls++
	if m.UpdateLoanError != nil {
		return nil, m.UpdateLoanError
	}
	if !next.Valid() {
		return nil, database.ErrInvalidLoan
	}

	rec := m.findByName(name)
	if rec == nil {
		return nil, database.ErrNotFound
	}
	if rec.Loan != expected {
		return nil, database.ErrLoanConflict
	}
	if next.State == database.LoanHolding {
		for _, other := range m.records {
			if other.ID != rec.ID && other.Loan.State == database.LoanHolding && other.Loan.Item == next.Item {
				return nil, database.ErrItemHeld
			}
		}
	}

	staged := *rec
	staged.Loan.State = next.State
	if m.FailUpdateMidway {
		m.FailUpdateMidway = false
		// staged is discarded, the stored record is untouched
		return nil, ErrInjectedWriteFailure
	}
	staged.Loan.Item = next.Item
	staged.UpdatedAt = m.now()

	ev := database.NewCirculationEvent(rec.ID, rec.Name, expected, next, staged.UpdatedAt)
	*rec = staged
	m.events = append(m.events, ev)
	return &ev, nil
}

// Close is a no-op.
func (m *MockRecordStore) Close() error {
	return nil
}

var _ database.RecordStore = (*MockRecordStore)(nil)
