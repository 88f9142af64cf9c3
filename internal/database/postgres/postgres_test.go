//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if _, err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestRecordRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRecordRepository(pool, 4)

	t.Run("InsertAndRoster", func(t *testing.T) {
		id, err := repo.Insert(ctx, "Ada", []float32{0.1, 0.2, 0.3, 0.4})
		if err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
		if id == 0 {
			t.Error("Expected non-zero id")
		}

		roster, err := repo.ListEmbeddings(ctx)
		if err != nil {
			t.Fatalf("Failed to list roster: %v", err)
		}
		if len(roster) != 1 || roster[0].Name != "Ada" {
			t.Fatalf("Unexpected roster: %+v", roster)
		}
		if len(roster[0].Embedding) != 4 {
			t.Errorf("Expected 4 components, got %d", len(roster[0].Embedding))
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := repo.Insert(ctx, "Short", []float32{1, 2})
		if !errors.Is(err, database.ErrDimensionMismatch) {
			t.Errorf("Expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("GetByNameMissing", func(t *testing.T) {
		rec, err := repo.GetByName(ctx, "nobody")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if rec != nil {
			t.Errorf("Expected nil record, got %+v", rec)
		}
	})

	t.Run("IssueReturn", func(t *testing.T) {
		ev, err := repo.UpdateLoan(ctx, "Ada", database.Free(), database.Holding("BOOK-1"))
		if err != nil {
			t.Fatalf("Failed to issue: %v", err)
		}
		if ev.Action != database.ActionIssue {
			t.Errorf("Expected issue event, got %s", ev.Action)
		}

		rec, err := repo.GetByName(ctx, "Ada")
		if err != nil || rec == nil {
			t.Fatalf("Failed to get record: %v", err)
		}
		if rec.Loan != database.Holding("BOOK-1") {
			t.Errorf("Expected HOLDING(BOOK-1), got %v", rec.Loan)
		}

		if _, err := repo.UpdateLoan(ctx, "Ada", database.Free(), database.Holding("BOOK-2")); !errors.Is(err, database.ErrLoanConflict) {
			t.Errorf("Expected ErrLoanConflict, got %v", err)
		}

		if _, err := repo.UpdateLoan(ctx, "Ada", database.Holding("BOOK-1"), database.Free()); err != nil {
			t.Fatalf("Failed to return: %v", err)
		}

		events, err := repo.ListEvents(ctx, "Ada", 10)
		if err != nil {
			t.Fatalf("Failed to list events: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(events))
		}
		if events[0].Action != database.ActionReturn {
			t.Errorf("Expected newest event to be a return, got %s", events[0].Action)
		}
	})

	t.Run("ItemHeld", func(t *testing.T) {
		if _, err := repo.Insert(ctx, "Grace", []float32{0.4, 0.3, 0.2, 0.1}); err != nil {
			t.Fatalf("Failed to insert: %v", err)
		}
		if _, err := repo.UpdateLoan(ctx, "Ada", database.Free(), database.Holding("BOOK-7")); err != nil {
			t.Fatalf("Failed to issue: %v", err)
		}
		_, err := repo.UpdateLoan(ctx, "Grace", database.Free(), database.Holding("BOOK-7"))
		if !errors.Is(err, database.ErrItemHeld) {
			t.Errorf("Expected ErrItemHeld, got %v", err)
		}

		holder, err := repo.FindHolder(ctx, "BOOK-7")
		if err != nil || holder == nil || holder.Name != "Ada" {
			t.Errorf("Expected Ada to hold BOOK-7, got %+v (%v)", holder, err)
		}
	})

	t.Run("CheckConstraint", func(t *testing.T) {
		_, err := pool.DB().ExecContext(ctx, `UPDATE identities SET loan_state = 'FREE' WHERE name = 'Ada'`)
		if err == nil {
			t.Error("Expected FREE with item to violate the CHECK constraint")
		}
	})

	t.Run("ListRecords", func(t *testing.T) {
		records, err := repo.ListRecords(ctx)
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].ID >= records[1].ID {
			t.Error("Expected records ordered by id")
		}
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	applied, err := pool.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no pending migrations, got %v", applied)
	}
}

func TestRecordRepository_History(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewRecordRepository(pool, 2)

	first, err := repo.Insert(ctx, "Sam", []float32{1, 0})
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	second, err := repo.Insert(ctx, "Sam", []float32{0, 1})
	if err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	t.Run("SharedNameKeepsHistoriesApart", func(t *testing.T) {
		if _, err := repo.UpdateLoan(ctx, "Sam", database.Free(), database.Holding("BOOK-1")); err != nil {
			t.Fatalf("Failed to issue: %v", err)
		}
		_, err := pool.DB().ExecContext(ctx, `
			INSERT INTO circulation_events (id, identity_id, name, action, item)
			VALUES ('00000000-0000-0000-0000-000000000001', $1, 'Sam', 'issue', 'BOOK-2')
		`, second)
		if err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}

		events, err := repo.ListEvents(ctx, "Sam", 10)
		if err != nil {
			t.Fatalf("Failed to list events: %v", err)
		}
		if len(events) != 1 || events[0].RecordID != first {
			t.Errorf("Expected only the first Sam's event, got %+v", events)
		}
	})

	t.Run("JournalOrderWithEqualTimestamps", func(t *testing.T) {
		_, err := pool.DB().ExecContext(ctx, `UPDATE circulation_events SET created_at = '2026-01-01T00:00:00Z'`)
		if err != nil {
			t.Fatalf("Failed to freeze timestamps: %v", err)
		}
		if _, err := repo.UpdateLoan(ctx, "Sam", database.Holding("BOOK-1"), database.Free()); err != nil {
			t.Fatalf("Failed to return: %v", err)
		}
		_, err = pool.DB().ExecContext(ctx, `UPDATE circulation_events SET created_at = '2026-01-01T00:00:00Z'`)
		if err != nil {
			t.Fatalf("Failed to freeze timestamps: %v", err)
		}

		events, err := repo.ListEvents(ctx, "Sam", 10)
		if err != nil {
			t.Fatalf("Failed to list events: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(events))
		}
		if events[0].Action != database.ActionReturn || events[1].Action != database.ActionIssue {
			t.Errorf("Expected return then issue, got %s then %s", events[0].Action, events[1].Action)
		}
	})
}
