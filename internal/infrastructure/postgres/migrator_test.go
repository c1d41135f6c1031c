package postgres

import (
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to open embedded migrations: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("expected at least one migration: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first migration version 1, got %d", first)
	}

	up, _, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("failed to read up migration: %v", err)
	}
	defer up.Close()

	body, err := io.ReadAll(up)
	if err != nil {
		t.Fatalf("failed to read migration body: %v", err)
	}
	if !strings.Contains(string(body), "account_snapshots") {
		t.Fatalf("expected account_snapshots table in first migration")
	}

	down, _, err := src.ReadDown(first)
	if err != nil {
		t.Fatalf("expected down migration: %v", err)
	}
	down.Close()
}

func TestRunMigrationsInvalidURL(t *testing.T) {
	if err := RunMigrations("not-a-url", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for invalid database URL")
	}
}

func TestRunMigrationsDownInvalidURL(t *testing.T) {
	if err := RunMigrationsDown("not-a-url", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for invalid database URL")
	}
}
