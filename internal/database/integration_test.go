package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "speakwell_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestMigrationsCreateTables(t *testing.T) {
	db := openTestDB(t)

	tables := []string{"users", "sessions", "lessons", "test_results", "test_attempts", "feedback"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("recorded migrations = %d, want 2", count)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTx(func(tx *Tx) error {
		if _, err := tx.ExecReturningID(
			"INSERT INTO users (email, password_hash, name) VALUES (?, ?, ?)",
			"rollback@example.com", "hash", "Rollback",
		); err != nil {
			return err
		}
		return errTestRollback
	})
	if err != errTestRollback {
		t.Fatalf("WithTx() error = %v, want %v", err, errTestRollback)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", "rollback@example.com").Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to discard insert, found %d rows", count)
	}
}

func TestExecReturningID(t *testing.T) {
	db := openTestDB(t)

	first, err := db.ExecReturningID("INSERT INTO users (email, password_hash, name) VALUES (?, ?, ?)", "a@example.com", "h", "A")
	if err != nil {
		t.Fatalf("ExecReturningID() error = %v", err)
	}
	second, err := db.ExecReturningID("INSERT INTO users (email, password_hash, name) VALUES (?, ?, ?)", "b@example.com", "h", "B")
	if err != nil {
		t.Fatalf("ExecReturningID() error = %v", err)
	}
	if second <= first {
		t.Errorf("ids not increasing: %d then %d", first, second)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTestRollback = testError("rollback please")
