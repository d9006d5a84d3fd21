package shared

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path == "" {
			t.Error("default database path should be set")
		}
		if config.Engine.GateCapacity != 90 {
			t.Errorf("expected default gate capacity 90, got %d", config.Engine.GateCapacity)
		}
		if config.Engine.ConnRateLimit <= 0 {
			t.Errorf("expected positive rate limit, got %f", config.Engine.ConnRateLimit)
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[database]
path = "custom.db"
max_open_conns = 7

[engine]
gate_capacity = 12
conn_rate_limit = 5.0
conn_rate_burst = 10
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Database.Path != "custom.db" {
			t.Errorf("expected custom path, got %q", config.Database.Path)
		}
		if config.Engine.GateCapacity != 12 {
			t.Errorf("expected gate capacity 12, got %d", config.Engine.GateCapacity)
		}
	})

	t.Run("LoadConfigMissing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected missing config error, got %v", err)
		}
	})

	t.Run("LoadConfigInvalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		_, err := LoadConfig(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected invalid config error, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(path); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if err := CreateConfigFile(path); err == nil {
			t.Error("expected error when config already exists")
		}
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("%w: bad input", ErrValidation), KindValidation},
		{fmt.Errorf("%w: task 7", ErrNotFound), KindNotFound},
		{fmt.Errorf("%w: project 1", ErrAccessDenied), KindAccessDenied},
		{fmt.Errorf("%w: pointer moved", ErrConflict), KindConflict},
		{fmt.Errorf("%w: gate full", ErrUnavailable), KindUnavailable},
		{fmt.Errorf("%w: disk", ErrStorage), KindStorage},
		{errors.New("mystery"), KindInternal},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(ErrConflict) || !Retryable(ErrUnavailable) {
		t.Error("conflicts and gate exhaustion are retryable")
	}
	if Retryable(ErrValidation) || Retryable(ErrAccessDenied) || Retryable(ErrNotFound) {
		t.Error("caller errors are not retryable")
	}
}

func TestMigrations(t *testing.T) {
	t.Run("CommentSemicolons", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}

		// A semicolon inside a comment must not split the statement after it.
		script := `
-- first clause; second clause
CREATE TABLE scratch (id INTEGER PRIMARY KEY);
`
		if err := runStatements(db, Migration{Version: 99}, script, false); err != nil {
			t.Fatalf("script with commented semicolon failed: %v", err)
		}

		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='scratch'").Scan(&name)
		if err != nil {
			t.Errorf("expected scratch table to exist: %v", err)
		}
	})

	t.Run("RunAndRollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(1)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"projects", "collaborators", "tasks"} {
			var name string
			err := db.QueryRow(
				"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Errorf("expected table %s to exist: %v", table, err)
			}
		}

		// Idempotent: already-applied versions are skipped.
		if err := RunMigrations(db); err != nil {
			t.Fatalf("re-running migrations failed: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='tasks'").Scan(&name)
		if err == nil {
			t.Error("tasks table should be dropped after rollback")
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}
