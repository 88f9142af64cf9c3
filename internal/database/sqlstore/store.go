// Package sqlstore implements database.RecordStore on database/sql engines
// that use '?' placeholders: SQLite (the default) and MariaDB.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/library-kiosk/internal/database"
)

// dialect captures what differs between the supported engines.
type dialect struct {
	name string
	// schema is a list of idempotent DDL statements separated by ';'.
	schema string
	// lockClause is appended to the row read at the start of UpdateLoan.
	lockClause string
	// isUniqueViolation reports whether err was raised by a unique index.
	isUniqueViolation func(err error) bool
}

// Store is a RecordStore on a database/sql handle.
type Store struct {
	db      *sql.DB
	dialect dialect
	dim     int
	now     func() time.Time
}

func newStore(ctx context.Context, db *sql.DB, d dialect, dim int) (*Store, error) {
	s := &Store{db: db, dialect: d, dim: dim, now: time.Now}
	if err := s.applySchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// applySchema creates tables and indexes if they don't exist.
func (s *Store) applySchema(ctx context.Context) error {
	for _, stmt := range strings.Split(s.dialect.schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}

const recordColumns = `id, name, embedding, loan_state, loan_item, created_at, updated_at`

// ListEmbeddings returns every enrolled identity ordered by id.
func (s *Store) ListEmbeddings(ctx context.Context) ([]database.RosterEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var raw []byte
		if err := rows.Scan(&entry.ID, &entry.Name, &raw); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		entry.Embedding, err = decodeEmbedding(raw, s.dim)
		if err != nil {
			return nil, fmt.Errorf("roster entry %d: %w", entry.ID, err)
		}
		roster = append(roster, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return roster, nil
}

// GetByName returns the lowest-id record with the given name, or nil if absent.
func (s *Store) GetByName(ctx context.Context, name string) (*database.IdentityRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM identities WHERE name = ? ORDER BY id LIMIT 1`, name)
	rec, err := s.scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %q: %w", name, err)
	}
	return rec, nil
}

// FindHolder returns the record currently holding the item, or nil.
func (s *Store) FindHolder(ctx context.Context, item string) (*database.IdentityRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM identities WHERE loan_state = 'HOLDING' AND loan_item = ?`, item)
	rec, err := s.scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find holder of %q: %w", item, err)
	}
	return rec, nil
}

// ListRecords returns all records ordered by id.
func (s *Store) ListRecords(ctx context.Context) ([]database.IdentityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []database.IdentityRecord
	for rows.Next() {
		rec, err := s.scanRecord(rows)
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
// resolves name to. Other identities sharing the name are not included.
func (s *Store) ListEvents(ctx context.Context, name string, limit int) ([]database.CirculationEvent, error) {
	if limit <= 0 {
		limit = database.DefaultEventLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_id, name, action, item, created_at
		FROM circulation_events
		WHERE identity_id = (SELECT MIN(id) FROM identities WHERE name = ?)
		ORDER BY seq DESC
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []database.CirculationEvent
	for rows.Next() {
		var ev database.CirculationEvent
		var action string
		var at int64
		if err := rows.Scan(&ev.ID, &ev.RecordID, &ev.Name, &action, &ev.Item, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Action = database.CirculationAction(action)
		ev.At = fromUnixNano(at)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Insert stores a new identity in the FREE state and returns its id.
func (s *Store) Insert(ctx context.Context, name string, embedding []float32) (int64, error) {
	if err := database.CheckEmbedding(embedding, s.dim); err != nil {
		return 0, err
	}
	encoded, err := encodeEmbedding(embedding)
	if err != nil {
		return 0, err
	}

	now := toUnixNano(s.now())
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (name, embedding, loan_state, loan_item, created_at, updated_at)
		VALUES (?, ?, 'FREE', NULL, ?, ?)
	`, name, encoded, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	return id, nil
}

// UpdateLoan swaps the loan of the named record from expected to next and
// journals the transition in the same transaction.
func (s *Store) UpdateLoan(ctx context.Context, name string, expected, next database.Loan) (*database.CirculationEvent, error) {
	if !next.Valid() {
		return nil, database.ErrInvalidLoan
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var state string
	var item sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT id, loan_state, loan_item
		FROM identities
		WHERE name = ?
		ORDER BY id
		LIMIT 1`+s.dialect.lockClause, name).Scan(&id, &state, &item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock record %q: %w", name, err)
	}
	if current := (database.Loan{State: database.LoanState(state), Item: item.String}); current != expected {
		return nil, database.ErrLoanConflict
	}

	at := s.now()
	_, err = tx.ExecContext(ctx, `
		UPDATE identities SET loan_state = ?, loan_item = ?, updated_at = ? WHERE id = ?
	`, string(next.State), next.ItemOrNil(), toUnixNano(at), id)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return nil, database.ErrItemHeld
		}
		return nil, fmt.Errorf("update loan: %w", err)
	}

	ev := database.NewCirculationEvent(id, name, expected, next, at)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO circulation_events (id, identity_id, name, action, item, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.RecordID, ev.Name, string(ev.Action), ev.Item, toUnixNano(ev.At))
	if err != nil {
		return nil, fmt.Errorf("insert circulation event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit loan update: %w", err)
	}
	return &ev, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRecord(row rowScanner) (*database.IdentityRecord, error) {
	var rec database.IdentityRecord
	var raw []byte
	var state string
	var item sql.NullString
	var created, updated int64
	if err := row.Scan(&rec.ID, &rec.Name, &raw, &state, &item, &created, &updated); err != nil {
		return nil, err
	}
	embedding, err := decodeEmbedding(raw, s.dim)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	rec.Embedding = embedding
	rec.Loan = database.Loan{State: database.LoanState(state), Item: item.String}
	rec.CreatedAt = fromUnixNano(created)
	rec.UpdatedAt = fromUnixNano(updated)
	return &rec, nil
}

var _ database.RecordStore = (*Store)(nil)
