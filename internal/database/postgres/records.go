package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// uniqueViolation is the SQLSTATE raised when idx_identities_loan_item rejects a second holder.
const uniqueViolation = "23505"

// RecordRepository provides PostgreSQL-backed identity storage.
type RecordRepository struct {
	pool *Pool
	dim  int
}

// NewRecordRepository creates a new PostgreSQL record repository.
func NewRecordRepository(pool *Pool, dim int) *RecordRepository {
	return &RecordRepository{pool: pool, dim: dim}
}

const recordColumns = `id, name, embedding, loan_state, loan_item, created_at, updated_at`

// ListEmbeddings returns every enrolled identity ordered by id.
func (r *RecordRepository) ListEmbeddings(ctx context.Context) ([]database.RosterEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, embedding
		FROM identities
		WHERE embedding IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var roster []database.RosterEntry
	for rows.Next() {
		var entry database.RosterEntry
		var vec pgvector.Vector
		if err := rows.Scan(&entry.ID, &entry.Name, &vec); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		entry.Embedding = vec.Slice()
		if err := database.CheckDimension(entry.Embedding, r.dim); err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", entry.ID, database.ErrCorruptEmbedding)
		}
		roster = append(roster, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return roster, nil
}

// GetByName returns the lowest-id record with the given name, or nil if absent.
func (r *RecordRepository) GetByName(ctx context.Context, name string) (*database.IdentityRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM identities WHERE name = $1 ORDER BY id LIMIT 1`, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %q: %w", name, err)
	}
	return rec, nil
}

// FindHolder returns the record currently holding the item, or nil.
func (r *RecordRepository) FindHolder(ctx context.Context, item string) (*database.IdentityRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM identities WHERE loan_state = 'HOLDING' AND loan_item = $1`, item)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find holder of %q: %w", item, err)
	}
	return rec, nil
}

// ListRecords returns all records ordered by id.
func (r *RecordRepository) ListRecords(ctx context.Context) ([]database.IdentityRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []database.IdentityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ListEvents returns the newest circulation events of the identity GetByName
// resolves name to, in journal order.
func (r *RecordRepository) ListEvents(ctx context.Context, name string, limit int) ([]database.CirculationEvent, error) {
	if limit <= 0 {
		limit = database.DefaultEventLimit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, name, action, item, created_at
		FROM circulation_events
		WHERE identity_id = (SELECT MIN(id) FROM identities WHERE name = $1)
		ORDER BY seq DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []database.CirculationEvent
	for rows.Next() {
		var ev database.CirculationEvent
		var action string
		if err := rows.Scan(&ev.ID, &ev.RecordID, &ev.Name, &action, &ev.Item, &ev.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Action = database.CirculationAction(action)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Insert stores a new identity in the FREE state and returns its id.
func (r *RecordRepository) Insert(ctx context.Context, name string, embedding []float32) (int64, error) {
	if err := database.CheckEmbedding(embedding, r.dim); err != nil {
		return 0, err
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (name, embedding, loan_state)
		VALUES ($1, $2, 'FREE')
		RETURNING id
	`, name, pgvector.NewVector(embedding)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	return id, nil
}

// UpdateLoan swaps the loan of the named record from expected to next and
// journals the transition in the same transaction.
func (r *RecordRepository) UpdateLoan(ctx context.Context, name string, expected, next database.Loan) (*database.CirculationEvent, error) {
	if !next.Valid() {
		return nil, database.ErrInvalidLoan
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int64
	var current database.Loan
	var state string
	var item sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT id, loan_state, loan_item
		FROM identities
		WHERE name = $1
		ORDER BY id
		LIMIT 1
		FOR UPDATE
	`, name).Scan(&id, &state, &item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock record %q: %w", name, err)
	}
	current = database.Loan{State: database.LoanState(state), Item: item.String}
	if current != expected {
		return nil, database.ErrLoanConflict
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE identities SET loan_state = $1, loan_item = $2, updated_at = $3 WHERE id = $4
	`, string(next.State), next.ItemOrNil(), now, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, database.ErrItemHeld
		}
		return nil, fmt.Errorf("update loan: %w", err)
	}

	ev := database.NewCirculationEvent(id, name, expected, next, now)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO circulation_events (id, identity_id, name, action, item, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID, ev.RecordID, ev.Name, string(ev.Action), ev.Item, ev.At)
	if err != nil {
		return nil, fmt.Errorf("insert circulation event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit loan update: %w", err)
	}
	return &ev, nil
}

// Close closes the underlying pool.
func (r *RecordRepository) Close() error {
	return r.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*database.IdentityRecord, error) {
	var rec database.IdentityRecord
	var vec *pgvector.Vector
	var state string
	var item sql.NullString
	if err := row.Scan(&rec.ID, &rec.Name, &vec, &state, &item, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if vec != nil {
		rec.Embedding = vec.Slice()
	}
	rec.Loan = database.Loan{State: database.LoanState(state), Item: item.String}
	return &rec, nil
}

var _ database.RecordStore = (*RecordRepository)(nil)
