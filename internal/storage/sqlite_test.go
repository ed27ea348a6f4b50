package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/claude/babytrack/internal/config"
)

func TestSQLiteSaveLoad(t *testing.T) {
	ctx := context.Background()
	kv := newTestSQLite(t)

	if _, err := kv.Load(ctx, "sleep"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing key error = %v, want ErrNotFound", err)
	}
	if err := kv.Save(ctx, "sleep", []byte(`[1]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := kv.Save(ctx, "sleep", []byte(`[1,2]`)); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, err := kv.Load(ctx, "sleep")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "[1,2]" {
		t.Errorf("Load = %s, want [1,2]", got)
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "babytrack.db")

	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := kv.Save(ctx, "notes", []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	kv, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer kv.Close()
	if got, err := kv.Load(ctx, "notes"); err != nil || string(got) != "[]" {
		t.Errorf("Load after reopen = %s, %v", got, err)
	}
}

func TestOpenSQLiteDriver(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "nested", "babytrack.db")

	kv, closeFn, err := Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: path}, "migrations", log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	if err := kv.Save(ctx, "water", []byte(`[]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := kv.(*SQLite); !ok {
		t.Errorf("Open returned %T, want *SQLite", kv)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, _, err := Open(context.Background(), config.StorageConfig{Driver: "mysql"}, "migrations", log); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
